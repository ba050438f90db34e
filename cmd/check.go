package cmd

import (
	"github.com/spf13/cobra"

	"conductor/internal/scenario"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [path...]",
		Short: "Check what this host offers to scenarios",
		Long: `Report the deployment target, the container runtime and whether it runs
Linux containers, and which scenarios would be skipped here. Nothing is
started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := newFormatter()
			if err != nil {
				return err
			}
			var classes []*scenario.Class
			if len(args) > 0 {
				if classes, err = loadScenarios(args); err != nil {
					return err
				}
			}
			application, err := newApplication(cmd)
			if err != nil {
				return err
			}
			report := application.CheckEnvironment(cmd.Context(), classes)
			return formatter.FormatEnvironment(cmd.OutOrStdout(), report)
		},
	}
}
