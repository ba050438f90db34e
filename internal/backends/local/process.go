package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"conductor/internal/binding"
	"conductor/internal/probe"
	"conductor/internal/properties"
	"conductor/internal/resource"
	"conductor/internal/runctx"
	"conductor/pkg/logging"
)

const (
	// StopGracePeriod is how long a process may take to exit after SIGTERM
	// before it is killed.
	StopGracePeriod = 10 * time.Second

	// OutputFileName is the file below the service folder capturing stdout
	// and stderr.
	OutputFileName = "out.log"

	ArtifactPlaceholder = "{artifact}"
	PortPlaceholder     = "{port}"
)

// Process runs a local application as a child process.
type Process struct {
	decl    binding.LocalApp
	sc      *runctx.ServiceContext
	probe   *probe.HTTP
	rebuild func(ctx context.Context) (string, bool, error)

	logs *resource.LogBuffer

	mu       sync.Mutex
	artifact string
	cmd      *exec.Cmd
	done     chan struct{}
	exitErr  error
	stopping bool
	failed   bool
	tailer   *LogTailer
	output   *os.File
}

// NewProcess creates the process resource of a local app declaration.
func NewProcess(sc *runctx.ServiceContext, decl binding.LocalApp) *Process {
	return &Process{
		decl:  decl,
		sc:    sc,
		probe: probe.NewHTTP(probe.Options{Insecure: decl.SSL}),
		logs:  resource.NewLogBuffer(resource.DefaultLogBufferSize),
	}
}

// NeedsBuildArtifact reports whether the app is run from a built artifact.
func (p *Process) NeedsBuildArtifact() bool {
	return len(p.decl.BuildCommand) > 0
}

// UseArtifact sets the artifact substituted for {artifact} in the command.
func (p *Process) UseArtifact(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.artifact = path
}

// Artifact returns the artifact in use.
func (p *Process) Artifact() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.artifact
}

// Start launches the process with stdout and stderr captured in the service
// folder, and follows the captured output. The output of a process that
// exited on its own is released before relaunching.
func (p *Process) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		select {
		case <-p.done:
			if err := p.releaseOutputLocked(); err != nil {
				logging.Warn(p.sc.Name(), "Failed to release output of the previous process: %v", err)
			}
			p.cmd = nil
		default:
			return nil
		}
	}

	workDir := p.sc.WorkDir()
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create service folder %s: %w", workDir, err)
	}
	if p.decl.PropertiesFile != "" {
		if err := p.writePropertiesFile(filepath.Join(workDir, p.decl.PropertiesFile)); err != nil {
			return err
		}
	}

	outputPath := filepath.Join(workDir, OutputFileName)
	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}

	args := p.commandLine()
	// the process outlives ctx, which only bounds the launch
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = p.decl.Dir
	if cmd.Dir == "" {
		cmd.Dir = workDir
	}
	cmd.Env = p.environ()
	cmd.Stdout = output
	cmd.Stderr = output
	setProcessGroup(cmd)

	logging.Debug(p.sc.Name(), "Starting %s", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		output.Close()
		return fmt.Errorf("failed to start %s: %w", args[0], err)
	}

	p.logs.Reset()
	tailer := NewLogTailer(LogTailerConfig{Path: outputPath, OnLine: p.onLine})
	if err := tailer.Start(); err != nil {
		logging.Warn(p.sc.Name(), "Output of %s will not be followed: %v", args[0], err)
		tailer = nil
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done
	p.output = output
	p.tailer = tailer
	p.exitErr = nil
	p.stopping = false
	p.failed = false
	go p.wait(cmd, done)
	return nil
}

// releaseOutputLocked stops following the captured output and closes it.
// The caller holds p.mu.
func (p *Process) releaseOutputLocked() error {
	var errs []error
	if p.tailer != nil {
		errs = append(errs, p.tailer.Stop())
		p.tailer = nil
	}
	if p.output != nil {
		errs = append(errs, p.output.Close())
		p.output = nil
	}
	return errors.Join(errs...)
}

func (p *Process) wait(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	p.mu.Lock()
	p.exitErr = err
	if !p.stopping {
		p.failed = true
		logging.Warn(p.sc.Name(), "Process %d exited unexpectedly: %v", cmd.Process.Pid, err)
	}
	p.mu.Unlock()
	close(done)
}

func (p *Process) onLine(line string) {
	p.logs.Add(line)
	p.sc.ForwardLog(line)
}

// commandLine substitutes the placeholders of the declared command.
func (p *Process) commandLine() []string {
	replacer := strings.NewReplacer(
		ArtifactPlaceholder, p.artifact,
		PortPlaceholder, strconv.Itoa(p.decl.Port),
	)
	args := make([]string, len(p.decl.Command))
	for i, a := range p.decl.Command {
		args[i] = replacer.Replace(a)
	}
	return args
}

// environ passes the service properties as environment variables, then the
// port, then the declared environment, later entries winning.
func (p *Process) environ() []string {
	env := os.Environ()
	env = append(env, properties.ToEnv(p.sc.Properties().Snapshot())...)
	if p.decl.Port > 0 {
		env = append(env, "PORT="+strconv.Itoa(p.decl.Port))
	}
	for _, k := range sortedKeys(p.decl.Env) {
		env = append(env, k+"="+p.decl.Env[k])
	}
	return env
}

func (p *Process) writePropertiesFile(path string) error {
	snapshot := p.sc.Properties().Snapshot()
	var b strings.Builder
	for _, k := range sortedKeys(snapshot) {
		fmt.Fprintf(&b, "%s=%s\n", k, snapshot[k])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create properties folder: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write properties file %s: %w", path, err)
	}
	return nil
}

// Stop sends SIGTERM to the process group and SIGKILL after
// StopGracePeriod or when ctx ends first.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	if cmd == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopping = true
	p.mu.Unlock()

	var errs []error
	select {
	case <-done:
	default:
		if err := signalErr(terminate(cmd)); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate process %d: %w", cmd.Process.Pid, err))
		}
		timer := time.NewTimer(StopGracePeriod)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			logging.Warn(p.sc.Name(), "Process %d did not exit after %s, killing it", cmd.Process.Pid, StopGracePeriod)
			errs = append(errs, signalErr(kill(cmd)))
			<-done
		case <-ctx.Done():
			errs = append(errs, signalErr(kill(cmd)))
			<-done
		}
	}

	p.mu.Lock()
	tailer, output := p.tailer, p.output
	p.cmd = nil
	p.tailer = nil
	p.output = nil
	p.mu.Unlock()

	if tailer != nil {
		errs = append(errs, tailer.Stop())
	}
	if output != nil {
		errs = append(errs, output.Close())
	}
	return errors.Join(errs...)
}

// signalErr drops errors for processes that are already gone.
func signalErr(err error) error {
	if err == nil || errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// Restart stops the process, rebuilds the artifact if build-time
// properties changed and starts again.
func (p *Process) Restart(ctx context.Context) error {
	if err := p.Stop(ctx); err != nil {
		return err
	}
	if p.rebuild != nil {
		artifact, rebuilt, err := p.rebuild(ctx)
		if err != nil {
			return err
		}
		if rebuilt {
			logging.Info(p.sc.Name(), "Rebuilt artifact %s", artifact)
		}
		p.UseArtifact(artifact)
	}
	return p.Start(ctx)
}

// IsRunning checks, in order, that the process is alive, that the started
// markers appeared without a fatal one and that the health path answers.
func (p *Process) IsRunning(ctx context.Context) (bool, error) {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	p.mu.Unlock()

	if cmd == nil {
		return false, nil
	}
	select {
	case <-done:
		p.mu.Lock()
		failed, exitErr := p.failed, p.exitErr
		p.mu.Unlock()
		if failed {
			line := "exit status 0"
			if exitErr != nil {
				line = exitErr.Error()
			}
			return false, &resource.FatalStartError{Resource: p.DisplayName(), Marker: "process exited", Line: line}
		}
		return false, nil
	default:
	}

	checker := resource.LogChecker{Resource: p.DisplayName(), Started: p.decl.Started, Fatal: p.decl.Fatal}
	started, err := checker.Check(p.logs.Lines())
	if err != nil || !started {
		return false, err
	}

	if p.decl.HealthPath != "" {
		uri, err := p.URI(resource.ProtocolHTTP)
		if err != nil {
			return false, err
		}
		return p.probe.Ready(ctx, uri.WithPath(p.decl.HealthPath).String())
	}
	return true, nil
}

// IsFailed reports whether the process exited without being stopped.
func (p *Process) IsFailed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// URI returns localhost on the declared port.
func (p *Process) URI(protocol resource.Protocol) (resource.URILike, error) {
	if p.decl.Port <= 0 {
		return resource.URILike{}, fmt.Errorf("local app %s declares no port", p.sc.Name())
	}
	uri := resource.URILike{Scheme: "http", Host: "localhost", Port: p.decl.Port}
	switch protocol {
	case resource.ProtocolHTTP, resource.ProtocolManagement:
		if p.decl.SSL {
			uri.Scheme = "https"
		}
	case resource.ProtocolHTTPS:
		if !p.decl.SSL {
			return resource.URILike{}, fmt.Errorf("local app %s does not serve https", p.sc.Name())
		}
		uri.Scheme = "https"
	case resource.ProtocolGRPC:
		uri.Scheme = "grpc"
	default:
		return resource.URILike{}, fmt.Errorf("unsupported protocol %s", protocol)
	}
	return uri, nil
}

// Logs returns the captured output lines.
func (p *Process) Logs() []string {
	return p.logs.Lines()
}

// DisplayName names the process by its executable.
func (p *Process) DisplayName() string {
	if len(p.decl.Command) == 0 {
		return "local process"
	}
	return "local process " + filepath.Base(p.decl.Command[0])
}

// Validate checks the command can be assembled.
func (p *Process) Validate() error {
	if len(p.decl.Command) == 0 {
		return errors.New("no command to run")
	}
	if p.NeedsBuildArtifact() && p.Artifact() == "" {
		return errors.New("artifact was not built")
	}
	if p.decl.HealthPath != "" && p.decl.Port <= 0 {
		return errors.New("health path needs a port")
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
