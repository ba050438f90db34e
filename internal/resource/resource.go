package resource

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"conductor/internal/runctx"
)

// Protocol names an endpoint a resource exposes.
type Protocol string

const (
	ProtocolHTTP       Protocol = "http"
	ProtocolHTTPS      Protocol = "https"
	ProtocolGRPC       Protocol = "grpc"
	ProtocolManagement Protocol = "management"
)

// URILike is a host/port pair with an optional scheme and path.
type URILike struct {
	Scheme string
	Host   string
	Port   int
	Path   string
}

// WithPath returns a copy with the path replaced.
func (u URILike) WithPath(path string) URILike {
	u.Path = path
	return u
}

// WithPort returns a copy with the port replaced.
func (u URILike) WithPort(port int) URILike {
	u.Port = port
	return u
}

// WithScheme returns a copy with the scheme replaced.
func (u URILike) WithScheme(scheme string) URILike {
	u.Scheme = scheme
	return u
}

// HostPort returns host:port, or only the host when no port is set.
func (u URILike) HostPort() string {
	if u.Port <= 0 {
		return u.Host
	}
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// String renders the URI, e.g. http://localhost:8080/health.
func (u URILike) String() string {
	s := u.HostPort()
	if u.Scheme != "" {
		s = u.Scheme + "://" + s
	}
	if u.Path != "" {
		if u.Path[0] != '/' {
			s += "/"
		}
		s += u.Path
	}
	return s
}

// ManagedResource is the backend-specific life support of one service.
type ManagedResource interface {
	// Start launches the resource. It returns once the launch was issued;
	// readiness is observed through IsRunning.
	Start(ctx context.Context) error
	// Stop halts the resource and any background log watching.
	Stop(ctx context.Context) error
	// Restart stops and starts the resource, rebuilding its artifact first
	// when build-time properties changed.
	Restart(ctx context.Context) error
	// URI returns where the given protocol is reachable.
	URI(protocol Protocol) (URILike, error)
	// IsRunning re-derives the current status. A FatalStartError means the
	// resource will never become ready.
	IsRunning(ctx context.Context) (bool, error)
	// IsFailed reports whether the resource has terminated abnormally.
	IsFailed() bool
	// Logs returns the captured output lines.
	Logs() []string
	// DisplayName identifies the backend in log messages.
	DisplayName() string
	// Validate performs backend-specific sanity checks after build.
	Validate() error
}

// Builder creates the ManagedResource for a service. Build is called once
// per service registration.
type Builder interface {
	Build(ctx context.Context, sc *runctx.ServiceContext) (ManagedResource, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, sc *runctx.ServiceContext) (ManagedResource, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, sc *runctx.ServiceContext) (ManagedResource, error) {
	return f(ctx, sc)
}

// ArtifactResource is a resource that runs a build artifact.
type ArtifactResource interface {
	ManagedResource
	NeedsBuildArtifact() bool
	UseArtifact(path string)
}

// ResourceBinding selects a concrete resource for a declaration of type D.
type ResourceBinding[D any] interface {
	AppliesFor(sc *runctx.ServiceContext) bool
	Init(sc *runctx.ServiceContext, decl D) (ManagedResource, error)
}

// SelectResource returns the resource of the first binding that applies, or
// the result of fallback when none does.
func SelectResource[D any](sc *runctx.ServiceContext, decl D, bindings []ResourceBinding[D], fallback func(*runctx.ServiceContext, D) (ManagedResource, error)) (ManagedResource, error) {
	for _, b := range bindings {
		if b.AppliesFor(sc) {
			return b.Init(sc, decl)
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("no resource binding applies to service %s", sc.Name())
	}
	return fallback(sc, decl)
}
