package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List saved configurations",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}
}

func newShowCommand(a *app) *cobra.Command {
	var withSettings bool
	cmd := &cobra.Command{
		Use:     "show <configuration>",
		Short:   "Show a configuration's layers and settings",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.engine.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (preset: %s)\n", cfg.Name, cfg.Preset.Label())
			if meta, ok, err := a.store.Meta(cmd.Context(), cfg.Name); err == nil && ok {
				fmt.Fprintf(a.out, "etag: %s\n", meta.ETag)
			}

			t := newTable(a.out, "Rank", "Layer", "State")
			for _, p := range cfg.Parameters {
				rank := "-"
				if p.State.Ranked() {
					rank = fmt.Sprint(p.Rank)
				}
				t.AppendRow(table.Row{rank, a.engine.DisplayName(p), p.State.Label()})
			}
			t.Render()

			if !withSettings {
				return nil
			}
			for _, p := range cfg.Parameters {
				if !p.State.Ranked() || len(p.Settings) == 0 {
					continue
				}
				settings, err := a.engine.ApplicableSettings(p)
				if err != nil {
					return err
				}
				st := newTable(a.out, "Setting", "Type", "Value")
				st.SetTitle(p.Name)
				for _, s := range settings {
					st.AppendRow(table.Row{s.Key, s.Type.String(), s.Value})
				}
				st.Render()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSettings, "settings", false, "also print the settings of active layers")
	return cmd
}

func newCreateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "create <configuration>",
		Short:   "Create a configuration holding every layer in its default state",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.engine.CreateEmpty(args[0])
			if err := a.engine.Save(cmd.Context(), cfg, a.saveOptions()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s with %d layers\n", cfg.Name, len(cfg.Parameters))
			return nil
		},
	}
}

func newDuplicateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "duplicate <configuration> <new-name>",
		Short:   "Copy a configuration under a new name",
		Args:    cobra.ExactArgs(2),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.engine.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dup := a.engine.Duplicate(cfg, args[1])
			if err := a.engine.Save(cmd.Context(), dup, a.saveOptions()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "duplicated %s as %s\n", cfg.Name, dup.Name)
			return nil
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <configuration>",
		Short:   "Delete a saved configuration",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.Delete(cmd.Context(), args[0])
		},
	}
}

func newValidateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "validate <configuration>",
		Short:   "Run the save checks on a configuration",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.engine.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			result := a.engine.Validate(cfg)
			fmt.Fprintln(a.out, result.String())
			if missing := a.engine.Missing(cfg); len(missing) > 0 {
				for _, name := range missing {
					fmt.Fprintf(a.out, "missing layer: %s\n", name)
				}
			}
			if result.Blocking() || (result.Warning() && !a.flags.yes) {
				return result.Err()
			}
			return nil
		},
	}
}
