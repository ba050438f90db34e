package scenario

import (
	"context"
	"reflect"

	"conductor/internal/runctx"
	"conductor/internal/services"
)

// Extension is a cross-cutting plugin of the orchestrator. Only extensions
// whose AppliesFor returns true take part in a scenario. Every other hook is
// an optional interface below; an extension implements the ones it needs.
type Extension interface {
	AppliesFor(sc *runctx.ScenarioContext) bool
}

// BeforeAllHook runs once when the scenario starts, before services are
// registered.
type BeforeAllHook interface {
	BeforeAll(ctx context.Context, sc *runctx.ScenarioContext) error
}

// AfterAllHook runs once after all services are closed.
type AfterAllHook interface {
	AfterAll(ctx context.Context, sc *runctx.ScenarioContext) error
}

// BeforeEachHook runs before every test method.
type BeforeEachHook interface {
	BeforeEach(ctx context.Context, sc *runctx.ScenarioContext) error
}

// AfterEachHook runs after every test method.
type AfterEachHook interface {
	AfterEach(ctx context.Context, sc *runctx.ScenarioContext) error
}

// SuccessHook is notified of a passing test method.
type SuccessHook interface {
	OnSuccess(ctx context.Context, sc *runctx.ScenarioContext)
}

// ErrorHook is notified once of every scenario failure.
type ErrorHook interface {
	OnError(ctx context.Context, sc *runctx.ScenarioContext, err error)
}

// DisabledHook is notified of a skipped test method.
type DisabledHook interface {
	OnDisabled(ctx context.Context, sc *runctx.ScenarioContext, reason string)
}

// ServiceLaunchHook runs right before the orchestrator starts a service.
type ServiceLaunchHook interface {
	OnServiceLaunch(ctx context.Context, sc *runctx.ScenarioContext, svc services.Service) error
}

// ServiceContextUpdater may seed the side-store of a freshly registered
// service before its resource is built.
type ServiceContextUpdater interface {
	UpdateServiceContext(svcCtx *runctx.ServiceContext)
}

// ParameterProvider supplies injectable values by type.
type ParameterProvider interface {
	Parameter(t reflect.Type) (any, bool)
}
