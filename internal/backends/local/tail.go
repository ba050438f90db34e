package local

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"conductor/pkg/logging"
)

// DefaultPollInterval is the fallback polling interval when fsnotify is not
// available.
const DefaultPollInterval = 250 * time.Millisecond

// LogTailerConfig holds configuration for a LogTailer.
type LogTailerConfig struct {
	// Path is the file to follow. It must exist when the tailer starts.
	Path string

	// PollInterval is used when fsnotify cannot watch the file.
	PollInterval time.Duration

	// OnLine is called for every complete line, in order.
	OnLine func(line string)
}

// LogTailer follows a growing log file and hands out complete lines. It
// uses fsnotify write events with a fallback to polling.
type LogTailer struct {
	mu sync.Mutex

	config LogTailerConfig

	// fsWatcher is nil while polling
	fsWatcher *fsnotify.Watcher

	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool

	file    *os.File
	reader  *bufio.Reader
	partial strings.Builder
}

// NewLogTailer creates a tailer; call Start to begin following.
func NewLogTailer(config LogTailerConfig) *LogTailer {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &LogTailer{config: config}
}

// Start opens the file and begins following it.
func (t *LogTailer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return nil
	}

	file, err := os.Open(t.config.Path)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", t.config.Path, err)
	}
	t.file = file
	t.reader = bufio.NewReader(file)
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Debug("LogTailer", "fsnotify not available, falling back to polling: %v", err)
		go t.poll(t.stopCh, t.doneCh)
		return nil
	}
	if err := watcher.Add(t.config.Path); err != nil {
		logging.Debug("LogTailer", "Failed to watch %s, falling back to polling: %v", t.config.Path, err)
		watcher.Close()
		go t.poll(t.stopCh, t.doneCh)
		return nil
	}
	t.fsWatcher = watcher

	go t.processEvents(watcher.Events, watcher.Errors, t.stopCh, t.doneCh)
	return nil
}

// processEvents reads new content on every write event.
func (t *LogTailer) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	// content written before the watch was established
	t.readAvailable()
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write != 0 {
				t.readAvailable()
			}

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("LogTailer", err, "fsnotify error on %s", t.config.Path)
		}
	}
}

// poll implements fallback polling when fsnotify is not available.
func (t *LogTailer) poll(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(t.config.PollInterval)
	defer ticker.Stop()

	for {
		t.readAvailable()
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// readAvailable emits every complete line written so far and keeps an
// unterminated tail for the next read.
func (t *LogTailer) readAvailable() {
	for {
		chunk, err := t.reader.ReadString('\n')
		if len(chunk) > 0 {
			if strings.HasSuffix(chunk, "\n") {
				t.partial.WriteString(chunk)
				t.emit(t.partial.String())
				t.partial.Reset()
			} else {
				t.partial.WriteString(chunk)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logging.Warn("LogTailer", "Failed to read %s: %v", t.config.Path, err)
			}
			return
		}
	}
}

func (t *LogTailer) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if t.config.OnLine != nil {
		t.config.OnLine(line)
	}
}

// Stop ends following, emits whatever was written since the last read,
// including an unterminated last line, and closes the file.
func (t *LogTailer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return nil
	}
	t.running = false
	close(t.stopCh)
	<-t.doneCh

	t.readAvailable()
	if t.partial.Len() > 0 {
		t.emit(t.partial.String())
		t.partial.Reset()
	}

	var errs []error
	if t.fsWatcher != nil {
		errs = append(errs, t.fsWatcher.Close())
		t.fsWatcher = nil
	}
	errs = append(errs, t.file.Close())
	return errors.Join(errs...)
}

// IsRunning returns whether the tailer is currently active.
func (t *LogTailer) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
