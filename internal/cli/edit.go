package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	layercfg "github.com/goliatone/go-layercfg"
)

func newStateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "state <configuration> <layer> <application|overridden|excluded>",
		Short:     "Change how a configuration treats a layer",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"application", "overridden", "excluded"},
		PreRunE:   a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, ok := layercfg.ParseLayerState(args[2])
			if !ok {
				return fmt.Errorf("unknown state %q", args[2])
			}
			return a.edit(cmd.Context(), args[0], func(s *layercfg.Session) error {
				return s.SetState(cmd.Context(), args[1], state)
			})
		},
	}
}

func newMoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "move <configuration> <layer> <up|down>",
		Short:   "Move an active layer one step in the load order",
		Args:    cobra.ExactArgs(3),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(cmd.Context(), args[0], func(s *layercfg.Session) error {
				var (
					moved bool
					err   error
				)
				switch strings.ToLower(args[2]) {
				case "up":
					moved, err = s.MoveUp(cmd.Context(), args[1])
				case "down":
					moved, err = s.MoveDown(cmd.Context(), args[1])
				default:
					return fmt.Errorf("direction must be up or down, got %q", args[2])
				}
				if err == nil && !moved {
					fmt.Fprintf(a.out, "%s is already at the end of the order\n", args[1])
				}
				return err
			})
		},
	}
}

func newSetCommand(a *app) *cobra.Command {
	var add, remove bool
	cmd := &cobra.Command{
		Use:   "set <configuration> <layer> <setting> <value>",
		Short: "Edit a layer setting",
		Long: `Edit a layer setting. With --add or --remove the value is one element of
a list setting; otherwise it replaces the whole value.`,
		Args:    cobra.ExactArgs(4),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			if add && remove {
				return fmt.Errorf("--add and --remove are mutually exclusive")
			}
			ctx := cmd.Context()
			layer, key, value := args[1], args[2], args[3]
			return a.edit(ctx, args[0], func(s *layercfg.Session) error {
				switch {
				case add:
					return s.AddSettingValue(ctx, layer, key, value)
				case remove:
					return s.RemoveSettingValue(ctx, layer, key, value)
				default:
					return s.EditSetting(ctx, layer, key, value)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "add one element to a list setting")
	cmd.Flags().BoolVar(&remove, "remove", false, "remove one element from a list setting")
	return cmd
}

func newPresetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "preset <configuration> <preset>",
		Short:   "Apply a validation preset to the designated layer",
		Args:    cobra.ExactArgs(2),
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, ok := layercfg.ParsePreset(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", layercfg.ErrUnknownPreset, args[1])
			}
			if layer, found := a.engine.Catalog().Find(a.engine.DesignatedLayer()); found && preset != layercfg.PresetUserDefined {
				available := layercfg.AvailablePresets(layer)
				supported := false
				for _, p := range available {
					supported = supported || p == preset
				}
				if !supported {
					return fmt.Errorf("preset %s needs a newer %s", preset.ID(), layer.Name)
				}
			}
			return a.edit(cmd.Context(), args[0], func(s *layercfg.Session) error {
				return s.ApplyPreset(cmd.Context(), preset)
			})
		},
	}
}

func newPresetsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "presets",
		Short:   "List the presets the designated layer supports",
		Args:    cobra.NoArgs,
		PreRunE: a.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layer, ok := a.engine.Catalog().Find(a.engine.DesignatedLayer())
			if !ok {
				return fmt.Errorf("%w: %s", layercfg.ErrPresetNotFound, a.engine.DesignatedLayer())
			}
			t := newTable(a.out, "Preset", "Label")
			for _, p := range layercfg.AvailablePresets(layer) {
				t.AppendRow(table.Row{p.ID(), p.Label()})
			}
			t.Render()
			return nil
		},
	}
}
