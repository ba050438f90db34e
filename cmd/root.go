package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"conductor/internal/app"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (invalid configuration or arguments).
	ExitCodeError = 1
	// ExitCodeScenariosFailed indicates that at least one scenario failed.
	ExitCodeScenariosFailed = 2
)

// DefaultScenarioPath is loaded when no path is given.
const DefaultScenarioPath = "scenarios"

var (
	configPath   string
	debug        bool
	quiet        bool
	outputFormat string
	noColor      bool
)

// rootCmd represents the base command for the conductor application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Run integration test scenarios against real services",
	Long: `conductor provisions the services a test scenario declares, as local
processes, containers, or deployments on Kubernetes and OpenShift, waits
until they are ready, runs the scenario and tears everything down again.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// scenariosFailedError marks a run in which scenarios failed.
type scenariosFailedError struct {
	err error
}

func (e *scenariosFailedError) Error() string { return e.err.Error() }
func (e *scenariosFailedError) Unwrap() error { return e.err }

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "conductor version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var failed *scenariosFailedError
	if errors.As(err, &failed) {
		return ExitCodeScenariosFailed
	}
	return ExitCodeError
}

// newApplication bootstraps conductor with the global flags. Logging goes
// to stderr so that stdout carries the report.
func newApplication(cmd *cobra.Command) (*app.Application, error) {
	return app.NewApplication(&app.Config{
		Debug:      debug,
		Silent:     quiet,
		ConfigPath: configPath,
		Output:     cmd.ErrOrStderr(),
	})
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default is ./conductor.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress logging and show a spinner instead")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, console, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newListCmd())
}
