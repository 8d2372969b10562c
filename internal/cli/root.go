// Package cli implements the layercfg command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	layercfg "github.com/goliatone/go-layercfg"
	"github.com/goliatone/go-layercfg/internal/appconfig"
	"github.com/goliatone/go-layercfg/pkg/activity"
	"github.com/goliatone/go-layercfg/pkg/discovery"
	"github.com/goliatone/go-layercfg/pkg/state"
)

// Exit codes returned by Execute.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeInvalid reports a configuration that fails the save checks.
	ExitCodeInvalid = 2
)

type globalFlags struct {
	configPath string
	logLevel   string
	yes        bool
	force      bool
	ifMatch    string
}

// app holds what every command needs once flags are parsed.
type app struct {
	flags    *globalFlags
	out      io.Writer
	errOut   io.Writer
	settings appconfig.Settings
	logger   *slog.Logger
	store    *state.FileStore
	scan     discovery.Result
	engine   *layercfg.Engine
}

// NewRootCommand builds the command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	flags := &globalFlags{}
	a := &app{flags: flags, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "layercfg",
		Short: "Manage layer override configurations",
		Long: `layercfg discovers layer manifests, builds named configurations that
override, exclude or reorder layers, and edits their settings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the layercfg settings file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().BoolVarP(&flags.yes, "yes", "y", false, "confirm warnings such as excluding an implicit layer")
	root.PersistentFlags().BoolVarP(&flags.force, "force", "f", false, "overwrite an existing configuration")
	root.PersistentFlags().StringVar(&flags.ifMatch, "if-match", "", "only edit when the stored configuration still has this etag")

	root.AddCommand(
		newLayersCommand(a),
		newListCommand(a),
		newShowCommand(a),
		newCreateCommand(a),
		newDuplicateCommand(a),
		newDeleteCommand(a),
		newStateCommand(a),
		newMoveCommand(a),
		newSetCommand(a),
		newPresetCommand(a),
		newPresetsCommand(a),
		newValidateCommand(a),
		newSchemaCommand(a),
		newWatchCommand(a),
	)
	return root
}

// Execute runs the tool with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return ExitCodeSuccess
}

func exitCode(err error) int {
	var validationErr *layercfg.ValidationError
	if errors.As(err, &validationErr) || errors.Is(err, layercfg.ErrOverwriteExisting) || errors.Is(err, state.ErrETagMismatch) {
		return ExitCodeInvalid
	}
	return ExitCodeError
}

// setup loads settings, discovers layers and builds the engine. Commands call
// it from RunE so flag parsing errors surface before any disk access.
func (a *app) setup(ctx context.Context) error {
	settings, err := appconfig.Load(a.flags.configPath, appconfig.Environ(os.Environ()))
	if err != nil {
		return err
	}
	if a.flags.logLevel != "" {
		settings.LogLevel = a.flags.logLevel
	}
	a.settings = settings
	a.logger = slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: settings.Level()}))

	a.scan, err = discovery.NewScanner(discovery.WithLogger(a.logger)).Scan(ctx, settings.DiscoveryPaths()...)
	if err != nil {
		return err
	}
	a.store = state.NewFileStore(settings.ConfigurationDir, state.WithFileLogger(a.logger))

	gate, err := layercfg.NewGate(settings.Rules,
		layercfg.WithRuleEngine(settings.RuleEngine),
		layercfg.WithRuleLogger(a.logger))
	if err != nil {
		return err
	}

	a.engine, err = layercfg.NewEngine(a.scan.Catalog,
		layercfg.WithLogger(a.logger),
		layercfg.WithStore(a.store),
		layercfg.WithExcludedLayers(settings.ExcludedLayers...),
		layercfg.WithDesignatedLayer(settings.DesignatedLayer),
		layercfg.WithGate(gate),
		layercfg.WithAutosave(settings.Autosave),
		layercfg.WithActivity(activity.NewEmitter(activity.Hooks{a.activityLogHook()}, settings.Activity), os.Getenv("USER")),
	)
	return err
}

// activityLogHook records engine events in the log.
func (a *app) activityLogHook() activity.ActivityHook {
	return activity.HookFunc(func(_ context.Context, event activity.Event) error {
		a.logger.Info("activity",
			slog.String("verb", event.Verb),
			slog.String("object", event.ObjectID),
			slog.String("channel", event.Channel))
		return nil
	})
}

func (a *app) saveOptions() layercfg.SaveOptions {
	return layercfg.SaveOptions{ConfirmWarnings: a.flags.yes, Overwrite: a.flags.force}
}

// edit loads name, runs fn inside an editing session and saves the result.
// The session is released without saving when fn or the save fails. With
// --if-match the stored etag is checked before loading and again before
// saving; the new etag is printed on success.
func (a *app) edit(ctx context.Context, name string, fn func(*layercfg.Session) error) error {
	if err := a.checkETag(ctx, name); err != nil {
		return err
	}
	cfg, err := a.engine.Load(ctx, name)
	if err != nil {
		return err
	}
	session, err := a.engine.Build(cfg)
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		_ = a.engine.Release()
		return err
	}
	if err := a.checkETag(ctx, name); err != nil {
		_ = a.engine.Release()
		return err
	}
	opts := a.saveOptions()
	opts.Overwrite = true
	if err := session.Save(ctx, opts); err != nil {
		_ = a.engine.Release()
		return err
	}
	if err := a.engine.Release(); err != nil {
		return err
	}
	if meta, ok, err := a.store.Meta(ctx, name); err == nil && ok {
		fmt.Fprintf(a.out, "%s etag: %s\n", name, meta.ETag)
	}
	return nil
}

func (a *app) checkETag(ctx context.Context, name string) error {
	if a.flags.ifMatch == "" {
		return nil
	}
	meta, ok, err := a.store.Meta(ctx, name)
	if err != nil {
		return err
	}
	if ok && meta.ETag != a.flags.ifMatch {
		return fmt.Errorf("%w: %s: expected %q, got %q", state.ErrETagMismatch, name, a.flags.ifMatch, meta.ETag)
	}
	return nil
}

func (a *app) preRun(cmd *cobra.Command, _ []string) error {
	return a.setup(cmd.Context())
}
