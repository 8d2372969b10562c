package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-layercfg/pkg/discovery"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Rescan layers whenever a manifest changes",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths := a.settings.DiscoveryPaths()
			scanner := discovery.NewScanner(discovery.WithLogger(a.logger))
			watcher, err := discovery.NewWatcher(discovery.WatcherConfig{
				Paths:  paths,
				Logger: a.logger,
				OnChange: func(ctx context.Context) {
					result, err := scanner.Scan(ctx, paths...)
					if err != nil {
						a.logger.Warn("rescan failed", slog.Any("error", err))
						return
					}
					a.scan = result
					a.engine.SetCatalog(result.Catalog)
					fmt.Fprintf(a.out, "%d layers, %d failed manifests\n", result.Catalog.Len(), len(result.Failures))
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "watching %d search paths, %d layers\n", len(paths), a.engine.Catalog().Len())
			return watcher.Run(cmd.Context())
		},
	}
}
