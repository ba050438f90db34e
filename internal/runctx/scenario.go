package runctx

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"conductor/internal/config"
	"conductor/pkg/strings"
)

// ScenarioOptions parameterizes NewScenarioContext.
type ScenarioOptions struct {
	Target      config.Target
	IDMaxLength int
	LogsDir     string
	TargetDir   string
	Debug       bool
	Now         func() time.Time
}

// ScenarioContext is the per-scenario run handle.
type ScenarioContext struct {
	mu        sync.RWMutex
	id        string
	className string
	method    string
	failed    bool
	debug     bool
	target    config.Target
	logFile   string
	targetDir string
	startedAt time.Time
}

// NewScenarioContext creates the run handle for the scenario className.
func NewScenarioContext(className string, opts ScenarioOptions) *ScenarioContext {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	if opts.IDMaxLength <= 0 {
		opts.IDMaxLength = config.DefaultScenarioIDMaxLength
	}
	if opts.LogsDir == "" {
		opts.LogsDir = config.DefaultLogsDir
	}
	if opts.TargetDir == "" {
		opts.TargetDir = config.DefaultTargetDir
	}
	if opts.Target == "" {
		opts.Target = config.TargetBareMetal
	}

	startedAt := now()
	return &ScenarioContext{
		id:        GenerateID(className, startedAt, opts.IDMaxLength),
		className: className,
		debug:     opts.Debug,
		target:    opts.Target,
		logFile:   filepath.Join(opts.LogsDir, className+".log"),
		targetDir: opts.TargetDir,
		startedAt: startedAt,
	}
}

// GenerateID builds a scenario id from the class name and the start time in
// unix milliseconds, truncated to maxLen runes.
func GenerateID(className string, at time.Time, maxLen int) string {
	return strings.Truncate(fmt.Sprintf("%s-%d", className, at.UnixMilli()), maxLen)
}

// ID returns the scenario run id.
func (s *ScenarioContext) ID() string { return s.id }

// ClassName returns the scenario class name.
func (s *ScenarioContext) ClassName() string { return s.className }

// Target returns the deployment target of this run.
func (s *ScenarioContext) Target() config.Target { return s.target }

// LogFile returns the path of the scenario log file.
func (s *ScenarioContext) LogFile() string { return s.logFile }

// Dir returns the directory holding the working directories of all services
// of this run.
func (s *ScenarioContext) Dir() string { return filepath.Join(s.targetDir, s.id) }

// StartedAt returns when the scenario run began.
func (s *ScenarioContext) StartedAt() time.Time { return s.startedAt }

// IsDebug reports whether the run was started in debug mode.
func (s *ScenarioContext) IsDebug() bool { return s.debug }

// SetMethod records the test method currently executing.
func (s *ScenarioContext) SetMethod(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.method = name
}

// Method returns the test method currently executing, if any.
func (s *ScenarioContext) Method() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.method
}

// MarkFailed flags the scenario as failed. The flag is never cleared.
func (s *ScenarioContext) MarkFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = true
}

// IsFailed reports whether any phase of the scenario has failed.
func (s *ScenarioContext) IsFailed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failed
}
