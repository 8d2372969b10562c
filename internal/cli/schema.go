package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-layercfg/schema/openapi"
)

func newSchemaCommand(a *app) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:     "schema <layer>",
		Short:   "Print a layer's settings as an OpenAPI document",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, ok := a.engine.Catalog().Find(args[0])
			if !ok {
				return fmt.Errorf("layer %q not found", args[0])
			}
			doc, err := openapi.Generate(layer,
				openapi.WithGate(a.engine.Gate()),
				openapi.WithPlatform(platform))
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(a.out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(doc)
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "target GOOS for option filtering (default: running platform)")
	return cmd
}
