package resource

import (
	"context"
	"fmt"
	"sync"

	"conductor/internal/properties"
	"conductor/internal/runctx"
	"conductor/pkg/logging"
)

// DefaultBuildTimePatterns match property keys whose change invalidates a
// previously built artifact.
var DefaultBuildTimePatterns = properties.MustCompilePatterns(
	`^build\.`,
	`^package\.`,
	`^native\.`,
	`\.build-time\.`,
	`^app\.profile$`,
)

// Baseline logging properties seeded into every built service.
const (
	PropertyLogLevel  = "log.level"
	PropertyLogFormat = "log.format"
)

// RequiresRebuild decides whether an artifact built with previous properties
// can serve current ones. Any key in the symmetric difference that matches a
// build-time pattern forces a rebuild, even if the actual build inputs are
// unaffected.
func RequiresRebuild(previous, current map[string]string, patterns properties.Patterns, customSelection bool) bool {
	if customSelection {
		return true
	}
	return patterns.MatchesAny(properties.Diff(previous, current))
}

// ArtifactCache remembers the last artifact and the properties it was built
// with.
type ArtifactCache struct {
	mu       sync.Mutex
	built    bool
	artifact string
	snapshot map[string]string
	builds   int
}

// Ensure returns an artifact valid for the current properties, running build
// when RequiresRebuild says the cached one is stale. The property snapshot is
// taken before build runs; comparison, build and snapshot update hold the
// cache lock.
func (c *ArtifactCache) Ensure(props properties.Reader, patterns properties.Patterns, customSelection bool, build func() (string, error)) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := props.Snapshot()
	if c.built && !RequiresRebuild(c.snapshot, current, patterns, customSelection) {
		return c.artifact, false, nil
	}

	artifact, err := build()
	if err != nil {
		return "", false, err
	}
	c.built = true
	c.artifact = artifact
	c.snapshot = current
	c.builds++
	return artifact, true, nil
}

// Artifact returns the last built artifact, if any.
func (c *ArtifactCache) Artifact() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.artifact, c.built
}

// Builds returns how many times the cache invoked a build.
func (c *ArtifactCache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

// ArtifactBuilder is the common Builder of backends that may need a build
// artifact. D is the declaration type of the backend.
type ArtifactBuilder[D any] struct {
	Decl D

	// Bindings choose an alternative resource, first match wins.
	Bindings []ResourceBinding[D]

	// Default creates the resource when no binding applies.
	Default func(sc *runctx.ServiceContext, decl D) (ManagedResource, error)

	// BuildArtifact produces the artifact and returns its path.
	BuildArtifact func(ctx context.Context, sc *runctx.ServiceContext, decl D) (string, error)

	// BuildTimePatterns default to DefaultBuildTimePatterns.
	BuildTimePatterns properties.Patterns

	// CustomSelection reports whether the declaration restricts the build to
	// a custom subset of classes, which always forces a rebuild.
	CustomSelection func(decl D) bool

	mu    sync.Mutex
	sc    *runctx.ServiceContext
	cache ArtifactCache
}

// Build stores the context, seeds logging properties, selects the resource,
// provides its artifact and validates it.
func (b *ArtifactBuilder[D]) Build(ctx context.Context, sc *runctx.ServiceContext) (ManagedResource, error) {
	b.mu.Lock()
	b.sc = sc
	b.mu.Unlock()

	level := "info"
	if sc.Scenario().IsDebug() {
		level = "debug"
	}
	sc.SetDefaultProperty(PropertyLogLevel, level)
	sc.SetDefaultProperty(PropertyLogFormat, "text")

	res, err := SelectResource(sc, b.Decl, b.Bindings, b.Default)
	if err != nil {
		return nil, fmt.Errorf("failed to select resource for service %s: %w", sc.Name(), err)
	}

	if ar, ok := res.(ArtifactResource); ok && ar.NeedsBuildArtifact() {
		artifact, _, err := b.ensureArtifact(ctx)
		if err != nil {
			return nil, err
		}
		ar.UseArtifact(artifact)
	}

	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("resource %s for service %s is invalid: %w", res.DisplayName(), sc.Name(), err)
	}
	return res, nil
}

// RebuildIfNeeded rebuilds the artifact when build-time properties changed
// since the last build. It reports the artifact path and whether a build ran.
func (b *ArtifactBuilder[D]) RebuildIfNeeded(ctx context.Context) (string, bool, error) {
	return b.ensureArtifact(ctx)
}

// Context returns the service context passed to Build.
func (b *ArtifactBuilder[D]) Context() *runctx.ServiceContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sc
}

// Builds returns how many artifact builds ran.
func (b *ArtifactBuilder[D]) Builds() int {
	return b.cache.Builds()
}

func (b *ArtifactBuilder[D]) ensureArtifact(ctx context.Context) (string, bool, error) {
	sc := b.Context()
	if sc == nil {
		return "", false, fmt.Errorf("builder has not been initialized with a service context")
	}
	if b.BuildArtifact == nil {
		return "", false, fmt.Errorf("service %s needs a build artifact but no build step is configured", sc.Name())
	}

	patterns := b.BuildTimePatterns
	if patterns == nil {
		patterns = DefaultBuildTimePatterns
	}
	custom := b.CustomSelection != nil && b.CustomSelection(b.Decl)

	artifact, rebuilt, err := b.cache.Ensure(sc.Properties(), patterns, custom, func() (string, error) {
		logging.Info("ArtifactBuilder", "Building artifact for service %s", sc.Name())
		return b.BuildArtifact(ctx, sc, b.Decl)
	})
	if err != nil {
		return "", false, &BuildError{Service: sc.Name(), Cause: err}
	}
	if !rebuilt {
		logging.Debug("ArtifactBuilder", "Reusing artifact %s for service %s", artifact, sc.Name())
	}
	return artifact, rebuilt, nil
}
