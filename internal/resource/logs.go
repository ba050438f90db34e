package resource

import (
	"strings"
	"sync"
)

// DefaultLogBufferSize is the number of lines a LogBuffer retains.
const DefaultLogBufferSize = 10000

// LogBuffer accumulates the most recent output lines of a resource. It is
// written by log watchers and read by readiness checks.
type LogBuffer struct {
	mu    sync.RWMutex
	lines []string
	limit int
}

// NewLogBuffer creates a buffer keeping at most limit lines. A non-positive
// limit selects DefaultLogBufferSize.
func NewLogBuffer(limit int) *LogBuffer {
	if limit <= 0 {
		limit = DefaultLogBufferSize
	}
	return &LogBuffer{limit: limit}
}

// Add appends a line, dropping the oldest one when the buffer is full.
func (b *LogBuffer) Add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) >= b.limit {
		// shift in place to keep the backing array bounded
		copy(b.lines, b.lines[1:])
		b.lines[len(b.lines)-1] = line
		return
	}
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the retained lines, oldest first.
func (b *LogBuffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	copy(out, b.lines)
	return out
}

// Len returns the number of retained lines.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Reset drops all lines.
func (b *LogBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// LogChecker derives readiness from captured log lines.
type LogChecker struct {
	// Resource names the resource in FatalStartError
	Resource string
	// Started markers; any match means the resource is ready
	Started []string
	// Fatal markers; any match fails the start
	Fatal []string
}

// Check scans lines. Fatal markers take precedence over started markers.
// With no started markers configured, the resource counts as started.
func (c LogChecker) Check(lines []string) (bool, error) {
	started := len(c.Started) == 0
	for _, line := range lines {
		for _, marker := range c.Fatal {
			if strings.Contains(line, marker) {
				return false, &FatalStartError{Resource: c.Resource, Marker: marker, Line: line}
			}
		}
		if !started {
			for _, marker := range c.Started {
				if strings.Contains(line, marker) {
					started = true
					break
				}
			}
		}
	}
	return started, nil
}
