package containerizer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"conductor/pkg/logging"
)

const containerSubsystem = "Containers"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// lookPath is a variable to allow mocking in tests
var lookPath = exec.LookPath

// CLIRuntime implements ContainerRuntime on top of a docker compatible CLI.
// Docker and Podman share it; only the binary differs.
type CLIRuntime struct {
	binary string
}

// NewDockerRuntime creates a runtime backed by the docker CLI.
func NewDockerRuntime(ctx context.Context) (*CLIRuntime, error) {
	return newCLIRuntime(ctx, string(RuntimeTypeDocker))
}

// NewPodmanRuntime creates a runtime backed by the podman CLI.
func NewPodmanRuntime(ctx context.Context) (*CLIRuntime, error) {
	return newCLIRuntime(ctx, string(RuntimeTypePodman))
}

func newCLIRuntime(ctx context.Context, binary string) (*CLIRuntime, error) {
	if _, err := lookPath(binary); err != nil {
		return nil, fmt.Errorf("%s command not found in PATH: %w", binary, err)
	}

	cmd := execCommandContext(ctx, binary, "info")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s daemon not accessible: %w", binary, err)
	}

	return &CLIRuntime{binary: binary}, nil
}

// Name returns the CLI binary.
func (r *CLIRuntime) Name() string {
	return r.binary
}

// OSType asks the daemon which operating system its containers run on.
func (r *CLIRuntime) OSType(ctx context.Context) (string, error) {
	format := "{{.OSType}}"
	if r.binary == string(RuntimeTypePodman) {
		format = "{{.Host.OS}}"
	}
	output, err := execCommandContext(ctx, r.binary, "info", "--format", format).Output()
	if err != nil {
		return "", fmt.Errorf("failed to query %s info: %w", r.binary, err)
	}
	return strings.TrimSpace(string(output)), nil
}

// PullImage pulls a container image if not already present
func (r *CLIRuntime) PullImage(ctx context.Context, image string) error {
	checkCmd := execCommandContext(ctx, r.binary, "image", "inspect", image)
	if err := checkCmd.Run(); err == nil {
		logging.Debug(containerSubsystem, "Image %s already exists", image)
		return nil
	}

	logging.Info(containerSubsystem, "Pulling image %s", image)
	output, err := execCommandContext(ctx, r.binary, "pull", image).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w\nOutput: %s", image, err, strings.TrimSpace(string(output)))
	}

	return nil
}

// runArgs builds the arguments of "run -d" for config.
func runArgs(config ContainerConfig) []string {
	args := []string{"run", "-d"}
	if config.Name != "" {
		args = append(args, "--name", config.Name)
	}

	for _, k := range sortedKeys(config.Env) {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, config.Env[k]))
	}
	for _, k := range sortedKeys(config.Labels) {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, config.Labels[k]))
	}
	for _, port := range config.Ports {
		args = append(args, "-p", port)
	}
	for _, vol := range config.Volumes {
		args = append(args, "-v", expandPath(vol))
	}
	if config.User != "" {
		args = append(args, "--user", config.User)
	}
	if len(config.Entrypoint) > 0 {
		args = append(args, "--entrypoint", config.Entrypoint[0])
	}

	args = append(args, config.Image)

	// remaining entrypoint words go before the command
	if len(config.Entrypoint) > 1 {
		args = append(args, config.Entrypoint[1:]...)
	}
	args = append(args, config.Command...)
	return args
}

// StartContainer starts a container with the given configuration
func (r *CLIRuntime) StartContainer(ctx context.Context, config ContainerConfig) (string, error) {
	args := runArgs(config)
	logging.Debug(containerSubsystem, "Starting container with command: %s %s", r.binary, strings.Join(args, " "))

	output, err := execCommandContext(ctx, r.binary, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to start container: %w\nOutput: %s", err, string(output))
	}

	containerID := strings.TrimSpace(string(output))
	logging.Info(containerSubsystem, "Started container %s with ID %s", config.Name, shortID(containerID))

	return containerID, nil
}

// StopContainer stops a running container
func (r *CLIRuntime) StopContainer(ctx context.Context, containerID string) error {
	logging.Info(containerSubsystem, "Stopping container %s", shortID(containerID))

	if err := execCommandContext(ctx, r.binary, "stop", containerID).Run(); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", shortID(containerID), err)
	}

	return nil
}

// GetContainerLogs returns a reader over the followed stdout and stderr of
// the container. Closing the reader does not stop the follow process; cancel
// ctx for that.
func (r *CLIRuntime) GetContainerLogs(ctx context.Context, containerID string) (io.ReadCloser, error) {
	cmd := execCommandContext(ctx, r.binary, "logs", "-f", containerID)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start logs command: %w", err)
	}

	// parallel writes to a pipe are safe
	pr, pw := io.Pipe()
	go func() {
		var g errgroup.Group
		g.Go(func() error {
			_, err := io.Copy(pw, stdout)
			return err
		})
		g.Go(func() error {
			_, err := io.Copy(pw, stderr)
			return err
		})
		copyErr := g.Wait()
		waitErr := cmd.Wait()
		if copyErr != nil {
			pw.CloseWithError(copyErr)
			return
		}
		if waitErr != nil && ctx.Err() == nil {
			pw.CloseWithError(fmt.Errorf("%s logs exited: %w", r.binary, waitErr))
			return
		}
		pw.Close()
	}()

	return pr, nil
}

// IsContainerRunning checks if a container is running
func (r *CLIRuntime) IsContainerRunning(ctx context.Context, containerID string) (bool, error) {
	output, err := execCommandContext(ctx, r.binary, "inspect", "-f", "{{.State.Running}}", containerID).Output()
	if err != nil {
		return false, fmt.Errorf("failed to inspect container %s: %w", shortID(containerID), err)
	}

	return strings.TrimSpace(string(output)) == "true", nil
}

// GetContainerPort gets the mapped host port for a container port
func (r *CLIRuntime) GetContainerPort(ctx context.Context, containerID string, containerPort string) (string, error) {
	output, err := execCommandContext(ctx, r.binary, "port", containerID, containerPort).Output()
	if err != nil {
		return "", fmt.Errorf("failed to get port mapping for %s:%s: %w", shortID(containerID), containerPort, err)
	}

	// "0.0.0.0:32768" or "[::]:32768", possibly one line per address family
	portOutput := strings.TrimSpace(string(output))
	if portOutput == "" {
		return "", fmt.Errorf("no port mapping found for %s:%s", shortID(containerID), containerPort)
	}
	first := strings.SplitN(portOutput, "\n", 2)[0]
	parts := strings.Split(strings.TrimSpace(first), ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("unexpected port output format: %s", portOutput)
	}

	return parts[len(parts)-1], nil
}

// RemoveContainer removes a container
func (r *CLIRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	logging.Debug(containerSubsystem, "Removing container %s", shortID(containerID))

	if err := execCommandContext(ctx, r.binary, "rm", "-f", containerID).Run(); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", shortID(containerID), err)
	}

	return nil
}

func shortID(containerID string) string {
	if len(containerID) > 12 {
		return containerID[:12]
	}
	return containerID
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// expandPath expands tilde in paths to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
