package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"

	"conductor/internal/binding"
	"conductor/internal/config"
	"conductor/internal/runctx"
	"conductor/internal/services"
	"conductor/pkg/logging"
)

// Options configures an Orchestrator.
type Options struct {
	Config     config.ConductorConfig
	Bindings   *binding.Registry
	Extensions []Extension

	// LinuxContainers reports whether this host can run Linux containers.
	// Nil means they are assumed available.
	LinuxContainers func() bool

	// Now overrides the clock used for scenario ids.
	Now func() time.Time

	// NewDefaultService creates the service synthesized when a scenario
	// declares none. Defaults to services.NewBaseService.
	NewDefaultService func() services.Service
}

// Orchestrator drives the service lifecycle of one scenario. Its methods
// mirror the phases of a test class run and must be called from a single
// goroutine: BeforeAll, then BeforeEach/AfterEach around every test method
// with one of TestSuccessful/TestFailed/TestDisabled, and finally AfterAll.
type Orchestrator struct {
	cfg        config.ConductorConfig
	bindings   *binding.Registry
	extensions []Extension
	opts       Options

	class     *Class
	scenario  *runctx.ScenarioContext
	services  *services.Registry
	active    []Extension
	detachLog func() error
}

// New creates an orchestrator. Extensions keep the given order for hooks
// and parameter resolution.
func New(opts Options) *Orchestrator {
	if opts.Bindings == nil {
		opts.Bindings = binding.NewRegistry()
	}
	if opts.NewDefaultService == nil {
		opts.NewDefaultService = func() services.Service { return services.NewBaseService() }
	}
	return &Orchestrator{
		cfg:        opts.Config,
		bindings:   opts.Bindings,
		extensions: opts.Extensions,
		opts:       opts,
		services:   services.NewRegistry(),
	}
}

// Scenario returns the context of the running scenario, nil before BeforeAll.
func (o *Orchestrator) Scenario() *runctx.ScenarioContext {
	return o.scenario
}

// Services returns the registered services in registration order.
func (o *Orchestrator) Services() []services.Service {
	return o.services.GetAll()
}

// Service returns the registered service name.
func (o *Orchestrator) Service(name string) (services.Service, bool) {
	return o.services.Get(name)
}

// BeforeAll creates the scenario context, runs extension setup, registers
// every declared field and launches the auto-start services in declaration
// order.
func (o *Orchestrator) BeforeAll(ctx context.Context, class *Class) error {
	if class == nil {
		return fmt.Errorf("scenario class is nil")
	}
	o.class = class
	o.scenario = runctx.NewScenarioContext(class.Name, runctx.ScenarioOptions{
		Target:      o.cfg.Target,
		IDMaxLength: o.cfg.Scenario.IDMaxLength,
		LogsDir:     o.cfg.LogsDir,
		TargetDir:   o.cfg.TargetDir,
		Debug:       o.cfg.Debug,
		Now:         o.opts.Now,
	})

	detach, err := logging.AttachFile(o.scenario.LogFile())
	if err != nil {
		logging.Warn("Scenario", "Scenario log file disabled: %v", err)
	} else {
		o.detachLog = detach
	}
	logging.Info("Scenario", "Starting scenario %s (%s) on %s", class.Name, o.scenario.ID(), o.scenario.Target())

	for _, ext := range o.extensions {
		if ext.AppliesFor(o.scenario) {
			o.active = append(o.active, ext)
		}
	}

	for _, ext := range o.active {
		if h, ok := ext.(BeforeAllHook); ok {
			if err := h.BeforeAll(ctx, o.scenario); err != nil {
				return o.fail(ctx, "beforeAll", fmt.Errorf("extension %T: %w", ext, err))
			}
		}
	}

	for _, f := range class.Fields() {
		if err := o.registerField(ctx, f); err != nil {
			return o.fail(ctx, "beforeAll", err)
		}
	}

	if o.services.Len() == 0 && o.cfg.AutoDefaultService {
		if err := o.registerDefaultService(ctx); err != nil {
			return o.fail(ctx, "beforeAll", err)
		}
	}

	for _, svc := range o.services.GetAll() {
		if !svc.IsAutoStart() {
			continue
		}
		if err := o.launch(ctx, svc); err != nil {
			return o.fail(ctx, "beforeAll", err)
		}
	}
	return nil
}

func (o *Orchestrator) registerField(ctx context.Context, f Field) error {
	switch f.Kind {
	case FieldLookup:
		svc, ok := o.services.Get(f.Name)
		if !ok {
			return fmt.Errorf("lookup of service %s: no such service registered", f.Name)
		}
		if err := assign(f.Target, svc); err != nil {
			return fmt.Errorf("lookup of service %s: %w", f.Name, err)
		}
		return nil
	case FieldService:
		if f.Service == nil {
			return fmt.Errorf("field %s declares no service", f.Name)
		}
		return o.registerService(ctx, f.Name, f.Service, f.Declaration)
	case FieldInject:
		t, err := targetType(f.Target)
		if err != nil {
			return fmt.Errorf("injection into %s: %w", f.Name, err)
		}
		value, err := o.Parameter(t)
		if err != nil {
			var paramErr *ParameterNotFoundError
			if errors.As(err, &paramErr) {
				paramErr.Field = f.Name
			}
			return err
		}
		return assign(f.Target, value)
	default:
		return fmt.Errorf("field %s has unknown kind %d", f.Name, f.Kind)
	}
}

func (o *Orchestrator) registerService(ctx context.Context, name string, svc services.Service, decl binding.Declaration) error {
	if _, exists := o.services.Get(name); exists {
		return fmt.Errorf("service %s already registered", name)
	}
	builder, err := o.bindings.BuilderFor(binding.Field{Name: name, Declaration: decl})
	if err != nil {
		return err
	}
	if err := svc.Register(name, o.scenario, o.cfg); err != nil {
		return err
	}
	for _, ext := range o.active {
		if u, ok := ext.(ServiceContextUpdater); ok {
			u.UpdateServiceContext(svc.GetContext())
		}
	}
	if err := svc.Init(ctx, builder); err != nil {
		return err
	}
	if err := o.services.Register(svc); err != nil {
		return err
	}
	logging.Debug("Scenario", "Registered service %s as %s", name, binding.Describe(decl))
	return nil
}

func (o *Orchestrator) registerDefaultService(ctx context.Context) error {
	def := o.cfg.DefaultService
	name := def.Name
	if name == "" {
		name = config.DefaultServiceName
	}
	logging.Info("Scenario", "No services declared, registering default service %s", name)
	decl := binding.LocalApp{
		Command:      def.Command,
		BuildCommand: def.BuildCommand,
		Artifact:     def.Artifact,
		Dir:          def.Dir,
	}
	return o.registerService(ctx, name, o.opts.NewDefaultService(), decl)
}

func (o *Orchestrator) launch(ctx context.Context, svc services.Service) error {
	for _, ext := range o.active {
		if h, ok := ext.(ServiceLaunchHook); ok {
			if err := h.OnServiceLaunch(ctx, o.scenario, svc); err != nil {
				return fmt.Errorf("extension %T refused launch of %s: %w", ext, svc.GetName(), err)
			}
		}
	}
	return svc.Start(ctx)
}

// Parameter resolves an injectable value of type t from the first
// extension that provides one.
func (o *Orchestrator) Parameter(t reflect.Type) (any, error) {
	for _, ext := range o.active {
		if p, ok := ext.(ParameterProvider); ok {
			if v, found := p.Parameter(t); found {
				return v, nil
			}
		}
	}
	return nil, &ParameterNotFoundError{Type: t.String()}
}

// Param resolves an injectable value of type T.
func Param[T any](o *Orchestrator) (T, error) {
	var zero T
	v, err := o.Parameter(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("extension provided %T for %s", v, reflect.TypeFor[T]())
	}
	return typed, nil
}

// BeforeEach records the test method, runs extension hooks and starts every
// auto-start service that is not running, such as one a previous test
// stopped.
func (o *Orchestrator) BeforeEach(ctx context.Context, method string) error {
	if o.scenario == nil {
		return fmt.Errorf("BeforeEach called before BeforeAll")
	}
	o.scenario.SetMethod(method)

	for _, ext := range o.active {
		if h, ok := ext.(BeforeEachHook); ok {
			if err := h.BeforeEach(ctx, o.scenario); err != nil {
				return o.fail(ctx, "beforeEach", fmt.Errorf("extension %T: %w", ext, err))
			}
		}
	}

	for _, svc := range o.services.GetAll() {
		if svc.IsAutoStart() && !svc.IsRunning(ctx) {
			if err := o.launch(ctx, svc); err != nil {
				return o.fail(ctx, "beforeEach", err)
			}
		}
	}
	return nil
}

// AfterEach runs extension hooks after a test method.
func (o *Orchestrator) AfterEach(ctx context.Context) error {
	if o.scenario == nil {
		return nil
	}
	for _, ext := range o.active {
		if h, ok := ext.(AfterEachHook); ok {
			if err := h.AfterEach(ctx, o.scenario); err != nil {
				return o.fail(ctx, "afterEach", fmt.Errorf("extension %T: %w", ext, err))
			}
		}
	}
	return nil
}

// TestSuccessful notifies extensions of a passing test method.
func (o *Orchestrator) TestSuccessful(ctx context.Context, method string) {
	if o.scenario == nil {
		return
	}
	logging.Debug("Scenario", "Test %s passed", method)
	for _, ext := range o.active {
		if h, ok := ext.(SuccessHook); ok {
			h.OnSuccess(ctx, o.scenario)
		}
	}
}

// TestFailed marks the scenario failed and notifies extensions, unless the
// cause was already reported.
func (o *Orchestrator) TestFailed(ctx context.Context, method string, cause error) {
	if cause == nil {
		cause = fmt.Errorf("test %s failed", method)
	}
	_ = o.fail(ctx, "test "+method, cause)
}

// TestDisabled notifies extensions of a skipped test method.
func (o *Orchestrator) TestDisabled(ctx context.Context, method, reason string) {
	if o.scenario == nil {
		return
	}
	logging.Info("Scenario", "Test %s disabled: %s", method, reason)
	for _, ext := range o.active {
		if h, ok := ext.(DisabledHook); ok {
			h.OnDisabled(ctx, o.scenario, reason)
		}
	}
}

// AfterAll closes every registered service in reverse registration order,
// continuing past failures, then runs extension teardown and removes the
// scenario log file if the scenario passed.
func (o *Orchestrator) AfterAll(ctx context.Context) error {
	if o.scenario == nil {
		return nil
	}

	var closeErrs []error
	for _, svc := range o.services.GetAllReversed() {
		if err := svc.Close(ctx); err != nil {
			logging.Error("Scenario", err, "Failed to close service %s", svc.GetName())
			closeErrs = append(closeErrs, err)
		}
	}
	var errs []error
	if len(closeErrs) > 0 {
		errs = append(errs, o.fail(ctx, "afterAll", errors.Join(closeErrs...)))
	}

	for _, ext := range o.active {
		if h, ok := ext.(AfterAllHook); ok {
			if err := h.AfterAll(ctx, o.scenario); err != nil {
				errs = append(errs, o.fail(ctx, "afterAll", fmt.Errorf("extension %T: %w", ext, err)))
			}
		}
	}

	passed := !o.scenario.IsFailed()
	if passed {
		logging.Info("Scenario", "Scenario %s passed", o.scenario.ID())
	} else {
		logging.Warn("Scenario", "Scenario %s failed, logs kept at %s", o.scenario.ID(), o.scenario.LogFile())
	}

	if o.detachLog != nil {
		if err := o.detachLog(); err != nil {
			logging.Warn("Scenario", "Failed to close scenario log: %v", err)
		}
		o.detachLog = nil
	}
	if passed {
		if err := os.Remove(o.scenario.LogFile()); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.Warn("Scenario", "Failed to delete scenario log %s: %v", o.scenario.LogFile(), err)
		}
	}
	return errors.Join(errs...)
}

// fail is the single failure path of every phase: it marks the scenario
// failed and notifies extensions once per error.
func (o *Orchestrator) fail(ctx context.Context, phase string, err error) error {
	if err == nil {
		return nil
	}
	var reported *reportedError
	if errors.As(err, &reported) {
		return err
	}

	if o.scenario != nil {
		o.scenario.MarkFailed()
		logging.Error("Scenario", err, "Scenario %s failed during %s", o.scenario.ID(), phase)
		for _, ext := range o.active {
			if h, ok := ext.(ErrorHook); ok {
				h.OnError(ctx, o.scenario, err)
			}
		}
	}
	return &reportedError{phase: phase, err: err}
}
