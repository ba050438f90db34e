package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"conductor/internal/config"
	"conductor/internal/properties"
	"conductor/internal/resource"
	"conductor/internal/runctx"
	"conductor/pkg/logging"
)

// BaseService provides the lifecycle façade over one ManagedResource.
// Custom service types embed *BaseService and add domain helpers.
type BaseService struct {
	mu                  sync.RWMutex
	name                string
	props               *properties.Store
	scenario            *runctx.ScenarioContext
	svcCtx              *runctx.ServiceContext
	res                 resource.ManagedResource
	preStart            []Hook
	postStart           []Hook
	autoStart           bool
	startupTimeout      time.Duration
	pollInterval        time.Duration
	deleteFolderOnClose bool
	state               ServiceState
	lastError           error
	stateChangeCb       StateChangeCallback
}

// NewBaseService creates an unregistered service with default settings.
func NewBaseService() *BaseService {
	return &BaseService{
		props:               properties.NewStore(),
		autoStart:           true,
		startupTimeout:      config.DefaultStartupTimeout,
		pollInterval:        config.DefaultStartupCheckPollInterval,
		deleteFolderOnClose: true,
		state:               StateUnknown,
	}
}

// WithProperty sets an immediate property value.
func (b *BaseService) WithProperty(key, value string) *BaseService {
	b.props.Set(key, value)
	return b
}

// WithFutureProperty registers a property computed right before start.
func (b *BaseService) WithFutureProperty(key string, supplier properties.Supplier) *BaseService {
	b.props.SetFuture(key, supplier)
	return b
}

// WithAutoStart controls whether the orchestrator starts the service.
func (b *BaseService) WithAutoStart(autoStart bool) *BaseService {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.autoStart = autoStart
	return b
}

// WithStartupTimeout bounds the readiness poll.
func (b *BaseService) WithStartupTimeout(timeout time.Duration) *BaseService {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.startupTimeout = timeout
	return b
}

// WithStartupCheckPollInterval sets the pause between readiness checks.
func (b *BaseService) WithStartupCheckPollInterval(interval time.Duration) *BaseService {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pollInterval = interval
	return b
}

// OnPreStart appends a hook run before the resource starts.
func (b *BaseService) OnPreStart(hook Hook) *BaseService {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preStart = append(b.preStart, hook)
	return b
}

// OnPostStart appends a hook run once the resource is ready.
func (b *BaseService) OnPostStart(hook Hook) *BaseService {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.postStart = append(b.postStart, hook)
	return b
}

// Register binds the service to its name and scenario and applies the
// external configuration for that name. Configured values override the ones
// set in code. Future properties are recomputed on every start by a pre-start
// hook that runs ahead of all other hooks.
func (b *BaseService) Register(name string, scenario *runctx.ScenarioContext, cfg config.ConductorConfig) error {
	if name == "" {
		return fmt.Errorf("service has empty name")
	}
	if scenario == nil {
		return fmt.Errorf("service %s registered without a scenario", name)
	}

	external, configured := cfg.Services[name]
	sc := cfg.Service(name)
	for k, v := range sc.Properties {
		b.props.Set(k, v)
	}

	b.mu.Lock()
	b.name = name
	b.scenario = scenario
	b.autoStart = sc.IsAutoStart(b.autoStart)
	if configured && external.StartupTimeout > 0 {
		b.startupTimeout = external.StartupTimeout
	}
	if configured && external.StartupCheckPollInterval > 0 {
		b.pollInterval = external.StartupCheckPollInterval
	}
	b.deleteFolderOnClose = sc.ShouldDeleteFolderOnClose()
	b.preStart = append([]Hook{b.resolveFutureProperties}, b.preStart...)
	b.mu.Unlock()

	svcCtx := runctx.NewServiceContext(b, scenario, b.props)
	svcCtx.SetLogForwarding(sc.IsLogEnabled())

	b.mu.Lock()
	b.svcCtx = svcCtx
	b.mu.Unlock()

	logging.Debug("Service", "Registered service %s in scenario %s", name, scenario.ID())
	return nil
}

func (b *BaseService) resolveFutureProperties(context.Context, Service) error {
	return b.props.ResolveFutures()
}

// Init builds the backing resource.
func (b *BaseService) Init(ctx context.Context, builder resource.Builder) error {
	svcCtx := b.GetContext()
	if svcCtx == nil {
		return fmt.Errorf("service must be registered before init")
	}

	res, err := builder.Build(ctx, svcCtx)
	if err != nil {
		b.UpdateState(StateFailed, err)
		return fmt.Errorf("failed to build service %s: %w", b.GetName(), err)
	}

	b.mu.Lock()
	b.res = res
	b.mu.Unlock()

	logging.Debug("Service", "Service %s bound to %s", b.GetName(), res.DisplayName())
	return nil
}

func (b *BaseService) resource() (resource.ManagedResource, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.res == nil {
		return nil, fmt.Errorf("service %s has not been initialized", b.name)
	}
	return b.res, nil
}

// Start runs the pre-start hooks, starts the resource, waits until it
// reports running and runs the post-start hooks. It does nothing when the
// resource is already running.
//
// The resource's IsRunning is called once before launch for the
// already-running check. After launch the readiness poll checks at once and
// then every poll interval, so a resource that reports ready on its n-th
// check after Start sees n readiness calls and n-1 waits.
func (b *BaseService) Start(ctx context.Context) error {
	res, err := b.resource()
	if err != nil {
		return err
	}
	name := b.GetName()

	if b.IsRunning(ctx) {
		logging.Debug("Service", "Service %s is already running", name)
		return nil
	}

	b.UpdateState(StateStarting, nil)
	logging.Info("Service", "Starting service %s (%s)", name, res.DisplayName())
	started := time.Now()

	b.mu.RLock()
	preStart := slices.Clone(b.preStart)
	postStart := slices.Clone(b.postStart)
	b.mu.RUnlock()

	for _, hook := range preStart {
		if err := hook(ctx, b); err != nil {
			return b.failStart(fmt.Errorf("pre-start hook of service %s failed: %w", name, err))
		}
	}

	if err := res.Start(ctx); err != nil {
		return b.failStart(fmt.Errorf("failed to start service %s: %w", name, err))
	}

	if err := b.waitUntilRunning(ctx, res); err != nil {
		return b.failStart(err)
	}

	for _, hook := range postStart {
		if err := hook(ctx, b); err != nil {
			return b.failStart(fmt.Errorf("post-start hook of service %s failed: %w", name, err))
		}
	}

	b.UpdateState(StateRunning, nil)
	logging.Info("Service", "Service %s started in %s", name, time.Since(started).Round(time.Millisecond))
	return nil
}

func (b *BaseService) failStart(err error) error {
	b.UpdateState(StateFailed, err)
	logging.Error("Service", err, "Service %s failed to start", b.GetName())
	return err
}

// waitUntilRunning polls the resource until it reports running. Transient
// errors are ignored; a fatal start error ends the wait at once.
func (b *BaseService) waitUntilRunning(ctx context.Context, res resource.ManagedResource) error {
	b.mu.RLock()
	name := b.name
	timeout := b.startupTimeout
	interval := b.pollInterval
	b.mu.RUnlock()

	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		running, err := res.IsRunning(ctx)
		if err != nil {
			if resource.IsFatalStart(err) {
				return false, err
			}
			logging.Debug("Service", "Ignoring transient error while waiting for %s: %v", name, err)
			return false, nil
		}
		return running, nil
	})

	switch {
	case err == nil:
		return nil
	case resource.IsFatalStart(err):
		return fmt.Errorf("service %s failed to start: %w", name, err)
	case ctx.Err() != nil:
		return fmt.Errorf("start of service %s interrupted: %w", name, ctx.Err())
	case wait.Interrupted(err):
		return &StartTimeoutError{Service: name, Timeout: timeout}
	default:
		return err
	}
}

// Stop stops the resource. It does nothing when the resource is not running.
func (b *BaseService) Stop(ctx context.Context) error {
	res, err := b.resource()
	if err != nil {
		return err
	}
	name := b.GetName()

	if !b.IsRunning(ctx) {
		logging.Debug("Service", "Service %s is not running", name)
		return nil
	}

	b.UpdateState(StateStopping, nil)
	if err := res.Stop(ctx); err != nil {
		b.UpdateState(StateFailed, err)
		return fmt.Errorf("failed to stop service %s: %w", name, err)
	}
	b.UpdateState(StateStopped, nil)
	logging.Info("Service", "Service %s stopped", name)
	return nil
}

// Restart delegates to the resource restart. Hooks are not run again.
func (b *BaseService) Restart(ctx context.Context) error {
	res, err := b.resource()
	if err != nil {
		return err
	}
	name := b.GetName()

	logging.Info("Service", "Restarting service %s", name)
	if err := res.Restart(ctx); err != nil {
		b.UpdateState(StateFailed, err)
		return fmt.Errorf("failed to restart service %s: %w", name, err)
	}
	b.UpdateState(StateRunning, nil)
	return nil
}

// Close releases the resource and removes the working directory unless the
// scenario failed or folder deletion is disabled. Benign stream errors during
// shutdown are dropped.
func (b *BaseService) Close(ctx context.Context) error {
	b.mu.RLock()
	res := b.res
	name := b.name
	scenario := b.scenario
	svcCtx := b.svcCtx
	deleteFolder := b.deleteFolderOnClose
	b.mu.RUnlock()

	var errs []error
	if res != nil {
		// resources stop idempotently; this also ends log watchers of
		// resources that exited on their own
		if err := res.Stop(ctx); err != nil && !resource.IsBenign(err) {
			errs = append(errs, fmt.Errorf("failed to stop service %s: %w", name, err))
		}
		b.UpdateState(StateStopped, nil)
	}

	if deleteFolder && svcCtx != nil && scenario != nil && !scenario.IsFailed() {
		if err := os.RemoveAll(svcCtx.WorkDir()); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete folder of service %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// IsRunning reports whether the resource currently reports running.
func (b *BaseService) IsRunning(ctx context.Context) bool {
	res, err := b.resource()
	if err != nil {
		return false
	}
	running, err := res.IsRunning(ctx)
	return err == nil && running
}

// IsAutoStart reports whether the orchestrator starts this service.
func (b *BaseService) IsAutoStart() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.autoStart
}

// GetName returns the service name
func (b *BaseService) GetName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// GetDisplayName returns the service name and backend
func (b *BaseService) GetDisplayName() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.res == nil {
		return b.name
	}
	return fmt.Sprintf("%s (%s)", b.name, b.res.DisplayName())
}

// GetContext returns the service context, nil before Register
func (b *BaseService) GetContext() *runctx.ServiceContext {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.svcCtx
}

// GetProperties returns the read-only property view
func (b *BaseService) GetProperties() properties.Reader {
	return b.props
}

// GetProperty returns a property value or fallback
func (b *BaseService) GetProperty(key, fallback string) string {
	return b.props.GetOrDefault(key, fallback)
}

// GetLogs returns the captured resource output
func (b *BaseService) GetLogs() []string {
	res, err := b.resource()
	if err != nil {
		return nil
	}
	return res.Logs()
}

// URI returns where the resource serves protocol
func (b *BaseService) URI(protocol resource.Protocol) (resource.URILike, error) {
	res, err := b.resource()
	if err != nil {
		return resource.URILike{}, err
	}
	return res.URI(protocol)
}

// GetState returns the current state
func (b *BaseService) GetState() ServiceState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// GetLastError returns the last error
func (b *BaseService) GetLastError() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastError
}

// SetStateChangeCallback sets the state change callback
func (b *BaseService) SetStateChangeCallback(callback StateChangeCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stateChangeCb = callback
}

// UpdateState updates the service state and notifies the callback
func (b *BaseService) UpdateState(newState ServiceState, err error) {
	b.mu.Lock()
	oldState := b.state
	b.state = newState
	b.lastError = err
	callback := b.stateChangeCb
	name := b.name
	b.mu.Unlock()

	// Call the callback outside of the lock to avoid deadlocks
	if callback != nil && oldState != newState {
		callback(name, oldState, newState, err)
	}
}
