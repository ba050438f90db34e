package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"conductor/internal/binding"
	"conductor/internal/scenario"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [path...]",
		Short: "List scenarios and the services they declare",
		RunE: func(cmd *cobra.Command, args []string) error {
			classes, err := loadScenarios(args)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			header := table.Row{"SCENARIO", "FIELD", "KIND", "DECLARATION"}
			if !noColor {
				for i, h := range header {
					header[i] = text.FgHiCyan.Sprint(h)
				}
			}
			t.AppendHeader(header)
			for _, class := range classes {
				t.AppendRows(classRows(class))
				t.AppendSeparator()
			}
			t.Render()
			return nil
		},
	}
}

func classRows(class *scenario.Class) []table.Row {
	fields := class.Fields()
	if len(fields) == 0 {
		return []table.Row{{class.Name, "-", "-", "-"}}
	}
	rows := make([]table.Row, 0, len(fields))
	for _, f := range fields {
		decl := "-"
		if f.Kind == scenario.FieldService {
			decl = binding.Describe(f.Declaration)
		}
		rows = append(rows, table.Row{class.Name, f.Name, f.Kind.String(), decl})
	}
	return rows
}
