package runctx

import (
	"path/filepath"
	"strings"
	"sync"

	"conductor/internal/properties"
	"conductor/pkg/logging"
)

// Owner is the service a ServiceContext belongs to.
type Owner interface {
	GetName() string
	GetProperties() properties.Reader
}

// ServiceContext is the per-service run handle.
type ServiceContext struct {
	owner    Owner
	scenario *ScenarioContext
	props    *properties.Store
	workDir  string

	mu         sync.RWMutex
	store      map[string]any
	forwardLog bool
}

// NewServiceContext creates the context of owner inside scenario. props is the
// owner's writable property store; builders use it to seed defaults.
func NewServiceContext(owner Owner, scenario *ScenarioContext, props *properties.Store) *ServiceContext {
	return &ServiceContext{
		owner:      owner,
		scenario:   scenario,
		props:      props,
		workDir:    filepath.Join(scenario.Dir(), FolderName(owner.GetName())),
		store:      map[string]any{},
		forwardLog: true,
	}
}

// FolderName maps a service name to its directory name. Coordinate style
// names (group:artifact[:version]) collapse to the artifact segment.
func FolderName(name string) string {
	parts := strings.Split(name, ":")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	return name
}

// Name returns the owning service name.
func (c *ServiceContext) Name() string { return c.owner.GetName() }

// Owner returns the owning service.
func (c *ServiceContext) Owner() Owner { return c.owner }

// Scenario returns the scenario this service belongs to.
func (c *ServiceContext) Scenario() *ScenarioContext { return c.scenario }

// WorkDir returns <targetDir>/<scenarioId>/<folder>.
func (c *ServiceContext) WorkDir() string { return c.workDir }

// Properties returns a read-only view of the service properties.
func (c *ServiceContext) Properties() properties.Reader { return c.props }

// SetDefaultProperty sets key unless the service already configured it.
func (c *ServiceContext) SetDefaultProperty(key, value string) {
	c.props.SetDefault(key, value)
}

// Put stores a side-channel value.
func (c *ServiceContext) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

// Get returns a side-channel value.
func (c *ServiceContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.store[key]
	return v, ok
}

// Value returns the side-channel value stored under key if it has type T.
func Value[T any](c *ServiceContext, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// SetLogForwarding toggles forwarding of captured output to the scenario log.
func (c *ServiceContext) SetLogForwarding(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forwardLog = enabled
}

// ForwardLog writes a captured output line of the service to the scenario
// log, using the service name as subsystem.
func (c *ServiceContext) ForwardLog(line string) {
	c.mu.RLock()
	enabled := c.forwardLog
	c.mu.RUnlock()
	if enabled {
		logging.Info(c.Name(), "%s", line)
	}
}
