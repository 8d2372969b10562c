package layercfg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/goliatone/go-layercfg/layering"
	"github.com/goliatone/go-layercfg/pkg/activity"
)

// MissingSuffix decorates parameters whose layer is not discoverable.
const MissingSuffix = " (Missing)"

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger     *slog.Logger
	store      Store
	excluded   []string
	designated string
	emitter    *activity.Emitter
	actor      string
	presets    *PresetLibrary
	gate       *Gate
	autosave   bool
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithStore sets the persistence collaborator.
func WithStore(store Store) Option {
	return func(cfg *engineConfig) {
		cfg.store = store
	}
}

// WithExcludedLayers lists layers that reconcile adds as Excluded instead of
// application-controlled.
func WithExcludedLayers(names ...string) Option {
	return func(cfg *engineConfig) {
		cfg.excluded = append(cfg.excluded, names...)
	}
}

// WithDesignatedLayer names the layer presets apply to.
func WithDesignatedLayer(name string) Option {
	return func(cfg *engineConfig) {
		if name != "" {
			cfg.designated = name
		}
	}
}

// WithActivity sends configuration events to emitter. actor is recorded as
// the event actor and may be empty.
func WithActivity(emitter *activity.Emitter, actor string) Option {
	return func(cfg *engineConfig) {
		cfg.emitter = emitter
		cfg.actor = actor
	}
}

// WithPresets replaces the bundled preset library.
func WithPresets(lib *PresetLibrary) Option {
	return func(cfg *engineConfig) {
		cfg.presets = lib
	}
}

// WithGate sets the setting applicability gate. Without one only the fixed
// table applies.
func WithGate(gate *Gate) Option {
	return func(cfg *engineConfig) {
		cfg.gate = gate
	}
}

// WithAutosave persists the session configuration after every setting edit.
func WithAutosave(enabled bool) Option {
	return func(cfg *engineConfig) {
		cfg.autosave = enabled
	}
}

// Engine owns the layer catalog and at most one editing session. It is an
// explicit context object; callers may run several engines side by side.
type Engine struct {
	cfg engineConfig

	mu      sync.RWMutex
	catalog *Catalog
	session *Session
}

// NewEngine builds an engine over catalog. A nil catalog is treated as empty.
func NewEngine(catalog *Catalog, opts ...Option) (*Engine, error) {
	cfg := engineConfig{designated: DesignatedLayer}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.presets == nil {
		lib, err := BundledPresets()
		if err != nil {
			return nil, fmt.Errorf("layercfg: load bundled presets: %w", err)
		}
		cfg.presets = lib
	}
	if catalog == nil {
		catalog = &Catalog{}
	}
	return &Engine{cfg: cfg, catalog: catalog}, nil
}

// Catalog returns the current catalog.
func (e *Engine) Catalog() *Catalog {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog
}

// SetCatalog swaps in a freshly discovered catalog. Configurations already
// built keep their parameters; reconcile them again to pick up new layers.
func (e *Engine) SetCatalog(catalog *Catalog) {
	if catalog == nil {
		catalog = &Catalog{}
	}
	e.mu.Lock()
	e.catalog = catalog
	e.mu.Unlock()
	e.cfg.logger.Info("catalog updated", slog.Int("layers", catalog.Len()))
}

// DesignatedLayer returns the layer presets apply to.
func (e *Engine) DesignatedLayer() string {
	return e.cfg.designated
}

// Gate returns the configured applicability gate, which may be nil.
func (e *Engine) Gate() *Gate {
	return e.cfg.gate
}

// Presets returns the preset library in use.
func (e *Engine) Presets() *PresetLibrary {
	return e.cfg.presets
}

// Reconcile attaches every catalog layer missing from cfg.
func (e *Engine) Reconcile(cfg *Configuration) int {
	added := Reconcile(cfg, e.Catalog().Unique(), e.cfg.excluded)
	if added > 0 {
		e.cfg.logger.Debug("reconciled configuration",
			slog.String("configuration", cfg.Name),
			slog.Int("added", added),
			slog.Int("parameters", len(cfg.Parameters)))
	}
	return added
}

// Resolve re-attaches manifest descriptors to persisted parameters. Values
// from cfg win over manifest defaults; keys the manifest no longer declares
// are dropped. Parameters whose layer is not discoverable are left as loaded
// and their names returned.
func (e *Engine) Resolve(cfg *Configuration) []string {
	catalog := e.Catalog()
	var missing []string
	for i := range cfg.Parameters {
		param := &cfg.Parameters[i]
		layer, ok := catalog.Find(param.Name)
		if !ok {
			missing = append(missing, param.Name)
			continue
		}
		if dropped := layering.Dropped(layer.Settings, param.Settings, settingKey); len(dropped) > 0 {
			keys := make([]string, len(dropped))
			for j, s := range dropped {
				keys[j] = s.Key
			}
			e.cfg.logger.Debug("dropped settings unknown to manifest",
				slog.String("layer", param.Name),
				slog.Any("keys", keys))
		}
		param.Settings = layering.Overlay(layer.Settings, settingKey, applySettingValue, param.Settings)
	}
	if len(missing) > 0 {
		e.cfg.logger.Warn("configuration references missing layers",
			slog.String("configuration", cfg.Name),
			slog.Any("layers", missing))
	}
	return missing
}

func settingKey(s LayerSetting) string { return s.Key }

func applySettingValue(dst *LayerSetting, src LayerSetting) { dst.Value = src.Value }

// Missing lists parameters whose layer is not in the catalog.
func (e *Engine) Missing(cfg *Configuration) []string {
	catalog := e.Catalog()
	var out []string
	for _, p := range cfg.Parameters {
		if _, ok := catalog.Find(p.Name); !ok {
			out = append(out, p.Name)
		}
	}
	return out
}

// DisplayName returns the parameter name, marked when its layer is missing.
func (e *Engine) DisplayName(p Parameter) string {
	if _, ok := e.Catalog().Find(p.Name); !ok {
		return p.Name + MissingSuffix
	}
	return p.Name
}

// CreateEmpty returns a new configuration holding every catalog layer in its
// default state.
func (e *Engine) CreateEmpty(name string) *Configuration {
	cfg := NewConfiguration(name)
	e.Reconcile(cfg)
	cfg.Preset = e.cfg.presets.Detect(cfg, e.cfg.designated)
	return cfg
}

// Duplicate deep-copies cfg under a new name. A nil cfg yields nil.
func (e *Engine) Duplicate(cfg *Configuration, name string) *Configuration {
	if cfg == nil {
		return nil
	}
	dup := cfg.Duplicate()
	dup.Name = name
	return dup
}

// Load reads a configuration, resolves it against the catalog, reconciles
// it and repairs an unknown preset id.
func (e *Engine) Load(ctx context.Context, name string) (*Configuration, error) {
	if e.cfg.store == nil {
		return nil, ErrNoStore
	}
	cfg, err := e.cfg.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	e.Resolve(cfg)
	e.Reconcile(cfg)
	if cfg.Preset == PresetUnknown {
		cfg.Preset = e.cfg.presets.Detect(cfg, e.cfg.designated)
		e.cfg.logger.Info("repaired preset",
			slog.String("configuration", cfg.Name),
			slog.String("preset", cfg.Preset.ID()))
	}
	e.cfg.logger.Debug("loaded configuration",
		slog.String("configuration", cfg.Name),
		slog.Int("parameters", len(cfg.Parameters)))
	return cfg, nil
}

// Validate runs the save gate against the current catalog.
func (e *Engine) Validate(cfg *Configuration) ValidationResult {
	return Validate(cfg, e.Catalog())
}

// Save validates cfg and persists its collapsed form. Blocking results are
// returned as *ValidationError. Warnings are returned the same way unless
// opts confirms them; an existing file is only replaced with opts.Overwrite.
// cfg itself is not modified.
func (e *Engine) Save(ctx context.Context, cfg *Configuration, opts SaveOptions) error {
	if e.cfg.store == nil {
		return ErrNoStore
	}
	result := e.Validate(cfg)
	if result.Blocking() || (result.Warning() && !opts.ConfirmWarnings) {
		return result.Err()
	}
	if !opts.Overwrite {
		exists, err := e.cfg.store.Exists(ctx, cfg.Name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrOverwriteExisting, cfg.Name)
		}
	}

	persisted := cfg.Duplicate()
	Collapse(persisted)
	if err := e.cfg.store.Save(ctx, persisted); err != nil {
		return err
	}
	e.cfg.logger.Info("saved configuration",
		slog.String("configuration", cfg.Name),
		slog.Int("parameters", len(persisted.Parameters)),
		slog.String("preset", cfg.Preset.ID()))
	e.emit(ctx, activity.BuildConfigurationSavedEvent(activity.EventInput{
		Configuration: cfg.Name,
		Metadata:      map[string]any{"parameters": len(persisted.Parameters)},
	}))
	return nil
}

// Build starts an editing session on cfg: it reconciles the configuration
// and caches the designated parameter. Build fails with ErrSessionActive
// until the previous session is cleaned up.
func (e *Engine) Build(cfg *Configuration) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("layercfg: build: nil configuration")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionActive, e.session.cfg.Name)
	}
	Reconcile(cfg, e.catalog.Unique(), e.cfg.excluded)
	e.session = newSession(e, cfg)
	e.cfg.logger.Debug("session started",
		slog.String("session", e.session.id),
		slog.String("configuration", cfg.Name))
	return e.session, nil
}

// Session returns the active session, if any.
func (e *Engine) Session() (*Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session, e.session != nil
}

// Cleanup ends the active session. The editor state is flushed into the
// configuration, the configuration is persisted when a store is configured,
// and the designated-parameter cache is released. The session is closed even
// when persisting fails.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.mu.Lock()
	session := e.session
	e.session = nil
	e.mu.Unlock()
	if session == nil {
		return ErrNoSession
	}

	session.close()
	if e.cfg.store == nil {
		return nil
	}
	err := e.Save(ctx, session.cfg, SaveOptions{ConfirmWarnings: true, Overwrite: true})
	if err != nil {
		e.cfg.logger.Warn("cleanup could not persist configuration",
			slog.String("configuration", session.cfg.Name),
			slog.Any("error", err))
	}
	return err
}

// Release ends the active session without persisting it. Use it after a
// failed edit; Cleanup is the normal way to end a session.
func (e *Engine) Release() error {
	e.mu.Lock()
	session := e.session
	e.session = nil
	e.mu.Unlock()
	if session == nil {
		return ErrNoSession
	}
	session.close()
	return nil
}

func (e *Engine) autosave(ctx context.Context, cfg *Configuration) error {
	if !e.cfg.autosave || e.cfg.store == nil {
		return nil
	}
	err := e.Save(ctx, cfg, SaveOptions{ConfirmWarnings: true, Overwrite: true})
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		// A configuration that cannot be saved yet is still editable.
		e.cfg.logger.Debug("autosave skipped",
			slog.String("configuration", cfg.Name),
			slog.String("reason", validationErr.Result.Code.String()))
		return nil
	}
	return err
}

func (e *Engine) emit(ctx context.Context, event activity.Event) {
	if !e.cfg.emitter.Enabled() {
		return
	}
	if event.ActorID == "" {
		event.ActorID = e.cfg.actor
	}
	if err := e.cfg.emitter.Emit(ctx, event); err != nil {
		e.cfg.logger.Warn("activity hook failed",
			slog.String("verb", event.Verb),
			slog.Any("error", err))
	}
}

// ApplicableSettings returns the settings of p that the gate offers for its
// layer. Settings of missing layers are returned unfiltered.
func (e *Engine) ApplicableSettings(p Parameter) ([]LayerSetting, error) {
	layer, ok := e.Catalog().Find(p.Name)
	if !ok {
		return slices.Clone(p.Settings), nil
	}
	return e.cfg.gate.ApplicableSettings(layer, p.Settings)
}
