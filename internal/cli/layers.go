package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newLayersCommand(a *app) *cobra.Command {
	var showFailures bool
	cmd := &cobra.Command{
		Use:     "layers",
		Short:   "List discovered layers",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := a.engine.Catalog()
			t := newTable(a.out, "Layer", "Type", "API", "Impl", "Source", "Shadows")
			for _, layer := range catalog.Unique() {
				trace := catalog.Trace(layer.Name)
				var shadowed []string
				for _, p := range trace[1:] {
					shadowed = append(shadowed, p.Source.Name)
				}
				t.AppendRow(table.Row{
					layer.Name,
					layer.Type.Label(),
					layer.APIVersion.String(),
					layer.ImplementationVersion.String(),
					trace[0].Source.Name,
					strings.Join(shadowed, ", "),
				})
			}
			t.AppendFooter(table.Row{fmt.Sprintf("%d layers", len(catalog.Unique()))})
			t.Render()

			if showFailures && len(a.scan.Failures) > 0 {
				ft := newTable(a.out, "Manifest", "Error")
				for _, f := range a.scan.Failures {
					ft.AppendRow(table.Row{f.Path, f.Err.Error()})
				}
				ft.Render()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFailures, "failures", false, "also list manifests that failed to load")
	return cmd
}
