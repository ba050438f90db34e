package containerizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"conductor/internal/config"
	"conductor/pkg/logging"
)

// RuntimeType defines the type of container runtime
type RuntimeType string

const (
	RuntimeTypeDocker RuntimeType = "docker"
	RuntimeTypePodman RuntimeType = "podman"
)

// NewContainerRuntime creates the configured runtime. When it is not
// usable, the other runtime is tried if its detection is enabled.
func NewContainerRuntime(ctx context.Context, cfg config.ContainersConfig) (ContainerRuntime, error) {
	preferred := RuntimeType(strings.ToLower(cfg.Runtime))
	if preferred == "" {
		preferred = RuntimeTypeDocker
	}

	var candidates []RuntimeType
	switch preferred {
	case RuntimeTypeDocker:
		candidates = append(candidates, RuntimeTypeDocker)
		if cfg.PodmanDetection {
			candidates = append(candidates, RuntimeTypePodman)
		}
	case RuntimeTypePodman:
		candidates = append(candidates, RuntimeTypePodman)
		if cfg.DockerDetection {
			candidates = append(candidates, RuntimeTypeDocker)
		}
	default:
		return nil, fmt.Errorf("unsupported container runtime: %s", cfg.Runtime)
	}

	var errs []error
	for _, rt := range candidates {
		runtime, err := newCLIRuntime(ctx, string(rt))
		if err == nil {
			if rt != preferred {
				logging.Info(containerSubsystem, "Container runtime %s not available, using %s", preferred, rt)
			}
			return runtime, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no container runtime available: %w", errors.Join(errs...))
}
