package local

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineCollector struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCollector) add(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *lineCollector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestLogTailer_FollowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	require.NoError(t, os.WriteFile(path, []byte("before start\n"), 0o644))

	collected := &lineCollector{}
	tailer := NewLogTailer(LogTailerConfig{Path: path, PollInterval: 10 * time.Millisecond, OnLine: collected.add})
	require.NoError(t, tailer.Start())
	assert.True(t, tailer.IsRunning())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString("first\r\nsec")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(collected.get()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"before start", "first"}, collected.get())

	_, err = f.WriteString("ond\nunterminated")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(collected.get()) == 3
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, tailer.Stop())
	assert.False(t, tailer.IsRunning())
	assert.Equal(t, []string{"before start", "first", "second", "unterminated"}, collected.get())

	// stopping twice is fine
	assert.NoError(t, tailer.Stop())
}

func TestLogTailer_MissingFile(t *testing.T) {
	tailer := NewLogTailer(LogTailerConfig{Path: filepath.Join(t.TempDir(), "missing.log")})
	assert.Error(t, tailer.Start())
	assert.False(t, tailer.IsRunning())
}
