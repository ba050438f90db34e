package local

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"conductor/internal/binding"
	"conductor/internal/properties"
	"conductor/internal/resource"
	"conductor/internal/runctx"
	"conductor/pkg/logging"
)

// EnvBuildClasses carries the class selection of a restricted build.
const EnvBuildClasses = "CONDUCTOR_BUILD_CLASSES"

// buildErrorLines is how much stderr a failed build reports.
const buildErrorLines = 20

// BuildArtifact runs the declared build command and returns the path of the
// artifact it produced. Service properties are passed as environment
// variables the same way the process gets them.
func BuildArtifact(ctx context.Context, sc *runctx.ServiceContext, decl binding.LocalApp) (string, error) {
	if len(decl.BuildCommand) == 0 {
		return "", fmt.Errorf("no build command declared")
	}

	cmd := exec.CommandContext(ctx, decl.BuildCommand[0], decl.BuildCommand[1:]...)
	cmd.Dir = decl.Dir
	cmd.Env = append(os.Environ(), properties.ToEnv(sc.Properties().Snapshot())...)
	if len(decl.Classes) > 0 {
		cmd.Env = append(cmd.Env, EnvBuildClasses+"="+strings.Join(decl.Classes, ","))
	}
	for _, k := range sortedKeys(decl.Env) {
		cmd.Env = append(cmd.Env, k+"="+decl.Env[k])
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	commandLine := strings.Join(decl.BuildCommand, " ")
	logging.Debug(sc.Name(), "Running build: %s", commandLine)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start build %s: %w", commandLine, err)
	}

	errTail := resource.NewLogBuffer(buildErrorLines)
	var g errgroup.Group
	g.Go(func() error {
		return scanLines(stdout, func(line string) {
			logging.Debug(sc.Name(), "[build] %s", line)
		})
	})
	g.Go(func() error {
		return scanLines(stderr, func(line string) {
			errTail.Add(line)
			logging.Debug(sc.Name(), "[build] %s", line)
		})
	})
	// the pipes must be drained before Wait closes them
	scanErr := g.Wait()
	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("build %s failed: %w\n%s", commandLine, err, strings.Join(errTail.Lines(), "\n"))
	}
	if scanErr != nil {
		return "", fmt.Errorf("failed to read build output: %w", scanErr)
	}

	artifact := decl.Artifact
	if !filepath.IsAbs(artifact) && decl.Dir != "" {
		artifact = filepath.Join(decl.Dir, artifact)
	}
	if _, err := os.Stat(artifact); err != nil {
		return "", fmt.Errorf("build %s did not produce %s: %w", commandLine, artifact, err)
	}
	return artifact, nil
}

func scanLines(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}
