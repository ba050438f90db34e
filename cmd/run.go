package cmd

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [path...]",
		Short: "Run scenarios",
		Long: `Run the scenarios defined in the given files or directories, one after
another. Every scenario gets its own services, which are torn down in
reverse order when it ends. A scenario declaring services that need Linux
containers is skipped on hosts without them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := newFormatter()
			if err != nil {
				return err
			}
			classes, err := loadScenarios(args)
			if err != nil {
				return err
			}
			application, err := newApplication(cmd)
			if err != nil {
				return err
			}

			var s *spinner.Spinner
			if quiet {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Running scenarios..."
				s.Start()
			}
			results, runErr := application.Run(cmd.Context(), classes)
			if s != nil {
				s.Stop()
			}

			if err := formatter.FormatResults(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if runErr != nil {
				return &scenariosFailedError{err: runErr}
			}
			return nil
		},
	}
}
