package containerizer

import (
	"context"
	"sync"
	"time"

	"conductor/pkg/logging"
)

const probeTimeout = 30 * time.Second

// LinuxProbe answers whether this host can run Linux containers. The
// runtime is consulted once; later calls return the memoized answer.
type LinuxProbe struct {
	newRuntime func(ctx context.Context) (ContainerRuntime, error)

	once      sync.Once
	supported bool
	runtime   string
}

// NewLinuxProbe creates a probe over the runtime returned by newRuntime.
func NewLinuxProbe(newRuntime func(ctx context.Context) (ContainerRuntime, error)) *LinuxProbe {
	return &LinuxProbe{newRuntime: newRuntime}
}

// Supported reports whether a runtime is reachable and runs Linux containers.
func (p *LinuxProbe) Supported() bool {
	p.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		runtime, err := p.newRuntime(ctx)
		if err != nil {
			logging.Debug(containerSubsystem, "No container runtime: %v", err)
			return
		}
		p.runtime = runtime.Name()

		osType, err := runtime.OSType(ctx)
		if err != nil {
			logging.Warn(containerSubsystem, "Could not determine container OS of %s: %v", runtime.Name(), err)
			return
		}
		p.supported = osType == "linux"
		logging.Debug(containerSubsystem, "Runtime %s runs %s containers", runtime.Name(), osType)
	})
	return p.supported
}

// Runtime returns the name of the probed runtime, empty if none was found.
// Only meaningful after Supported.
func (p *LinuxProbe) Runtime() string {
	return p.runtime
}
