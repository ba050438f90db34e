package container

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"conductor/internal/binding"
	"conductor/internal/containerizer"
	"conductor/internal/properties"
	"conductor/internal/resource"
	"conductor/internal/runctx"
	"conductor/pkg/logging"
)

// Labels put on every container.
const (
	LabelScenario = "conductor.scenario"
	LabelService  = "conductor.service"
)

// RuntimeFactory returns the container runtime to use.
type RuntimeFactory func(ctx context.Context) (containerizer.ContainerRuntime, error)

// Container runs a service as a container of the local runtime.
type Container struct {
	decl       binding.Container
	sc         *runctx.ServiceContext
	newRuntime RuntimeFactory

	logs *resource.LogBuffer

	mu          sync.Mutex
	runtime     containerizer.ContainerRuntime
	name        string
	containerID string
	hostPort    int
	cancelLogs  context.CancelFunc
	logsDone    chan struct{}
	failed      bool
}

// NewContainer creates the container resource of decl.
func NewContainer(sc *runctx.ServiceContext, decl binding.Container, newRuntime RuntimeFactory) *Container {
	return &Container{
		decl:       decl,
		sc:         sc,
		newRuntime: newRuntime,
		logs:       resource.NewLogBuffer(resource.DefaultLogBufferSize),
	}
}

// ContainerName builds a unique container name for a service.
func ContainerName(serviceName string) string {
	folder := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, runctx.FolderName(serviceName))
	return fmt.Sprintf("conductor-%s-%s", folder, uuid.NewString()[:8])
}

// Start pulls the image, runs the container detached and follows its
// output. A container that exited on its own is removed and replaced.
func (c *Container) Start(ctx context.Context) error {
	if c.exited(ctx) {
		logging.Info(c.sc.Name(), "Replacing exited container %s", c.Name())
		if err := c.Stop(ctx); err != nil {
			logging.Warn(c.sc.Name(), "Failed to remove exited container: %v", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.containerID != "" {
		return nil
	}
	if c.runtime == nil {
		rt, err := c.newRuntime(ctx)
		if err != nil {
			return fmt.Errorf("no container runtime for service %s: %w", c.sc.Name(), err)
		}
		c.runtime = rt
	}

	if err := c.runtime.PullImage(ctx, c.decl.Image); err != nil {
		return err
	}

	env := properties.ToEnvMap(c.sc.Properties().Snapshot())
	for k, v := range c.decl.Env {
		env[k] = v
	}
	cfg := containerizer.ContainerConfig{
		Name:    ContainerName(c.sc.Name()),
		Image:   c.decl.Image,
		Env:     env,
		Command: c.decl.Command,
		Labels: map[string]string{
			LabelScenario: c.sc.Scenario().ID(),
			LabelService:  c.sc.Name(),
		},
	}
	if c.decl.Port > 0 {
		cfg.Ports = []string{strconv.Itoa(c.decl.Port)}
	}

	id, err := c.runtime.StartContainer(ctx, cfg)
	if err != nil {
		return err
	}
	c.name = cfg.Name
	c.containerID = id
	c.failed = false
	c.hostPort = 0
	c.logs.Reset()

	followCtx, cancel := context.WithCancel(context.Background())
	reader, err := c.runtime.GetContainerLogs(followCtx, id)
	if err != nil {
		cancel()
		logging.Warn(c.sc.Name(), "Output of container %s will not be followed: %v", cfg.Name, err)
		return nil
	}
	done := make(chan struct{})
	c.cancelLogs = cancel
	c.logsDone = done
	go func() {
		defer close(done)
		defer reader.Close()
		scanner := bufio.NewScanner(reader)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			c.logs.Add(scanner.Text())
			c.sc.ForwardLog(scanner.Text())
		}
		if err := scanner.Err(); err != nil && !resource.IsBenign(err) && followCtx.Err() == nil {
			logging.Debug(c.sc.Name(), "Stopped following container output: %v", err)
		}
	}()
	return nil
}

// exited reports whether a container was started and is no longer up.
func (c *Container) exited(ctx context.Context) bool {
	c.mu.Lock()
	id, rt, failed := c.containerID, c.runtime, c.failed
	c.mu.Unlock()
	if id == "" {
		return false
	}
	if failed {
		return true
	}
	running, err := rt.IsContainerRunning(ctx, id)
	if err != nil {
		logging.Debug(c.sc.Name(), "Could not inspect container %s: %v", id, err)
		return false
	}
	return !running
}

// Stop stops and removes the container.
func (c *Container) Stop(ctx context.Context) error {
	c.mu.Lock()
	id, rt, cancel, done := c.containerID, c.runtime, c.cancelLogs, c.logsDone
	c.containerID = ""
	c.cancelLogs = nil
	c.logsDone = nil
	c.mu.Unlock()

	if id == "" {
		return nil
	}

	var errs []error
	if err := rt.StopContainer(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if cancel != nil {
		cancel()
		<-done
	}
	if err := rt.RemoveContainer(ctx, id); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Restart replaces the container with a fresh one.
func (c *Container) Restart(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	return c.Start(ctx)
}

// IsRunning checks that the container is up and its output shows the
// started markers and none of the fatal ones.
func (c *Container) IsRunning(ctx context.Context) (bool, error) {
	c.mu.Lock()
	id, rt := c.containerID, c.runtime
	c.mu.Unlock()
	if id == "" {
		return false, nil
	}

	checker := resource.LogChecker{Resource: c.DisplayName(), Started: c.decl.Started, Fatal: c.decl.Fatal}
	started, err := checker.Check(c.logs.Lines())
	if err != nil {
		return false, err
	}

	running, err := rt.IsContainerRunning(ctx, id)
	if err != nil {
		return false, err
	}
	if !running {
		c.mu.Lock()
		c.failed = true
		c.mu.Unlock()
		return false, &resource.FatalStartError{Resource: c.DisplayName(), Marker: "container exited", Line: id}
	}
	return started, nil
}

// IsFailed reports whether the container exited on its own.
func (c *Container) IsFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed
}

// URI returns localhost on the host port published for the declared port.
func (c *Container) URI(protocol resource.Protocol) (resource.URILike, error) {
	if c.decl.Port <= 0 {
		return resource.URILike{}, fmt.Errorf("container %s publishes no port", c.decl.Image)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.containerID == "" {
		return resource.URILike{}, fmt.Errorf("container %s is not started", c.decl.Image)
	}
	if c.hostPort == 0 {
		port, err := c.runtime.GetContainerPort(context.Background(), c.containerID, strconv.Itoa(c.decl.Port))
		if err != nil {
			return resource.URILike{}, err
		}
		if c.hostPort, err = strconv.Atoi(port); err != nil {
			return resource.URILike{}, fmt.Errorf("invalid host port %q: %w", port, err)
		}
	}

	uri := resource.URILike{Scheme: string(protocol), Host: "localhost", Port: c.hostPort}
	if protocol == resource.ProtocolManagement {
		uri.Scheme = "http"
	}
	return uri, nil
}

// Logs returns the captured output lines.
func (c *Container) Logs() []string {
	return c.logs.Lines()
}

// DisplayName names the container by its image.
func (c *Container) DisplayName() string {
	return "container " + c.decl.Image
}

// Validate checks an image is declared.
func (c *Container) Validate() error {
	if c.decl.Image == "" {
		return errors.New("no image to run")
	}
	if c.newRuntime == nil {
		return errors.New("no container runtime configured")
	}
	return nil
}

// Name returns the name of the running container, empty when stopped.
func (c *Container) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.containerID == "" {
		return ""
	}
	return c.name
}
