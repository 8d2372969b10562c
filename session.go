package layercfg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-layercfg/pkg/activity"
)

// Session is the editing context created by Engine.Build. Its operations
// fail with ErrNoSession once the engine has cleaned it up.
type Session struct {
	engine *Engine
	id     string
	cfg    *Configuration

	mu         sync.Mutex
	closed     bool
	designated *Parameter
}

func newSession(engine *Engine, cfg *Configuration) *Session {
	s := &Session{
		engine: engine,
		id:     uuid.NewString(),
		cfg:    cfg,
	}
	s.designated, _ = cfg.Parameter(engine.cfg.designated)
	return s
}

// ID identifies the session in logs and activity metadata.
func (s *Session) ID() string { return s.id }

// Configuration returns the configuration being edited.
func (s *Session) Configuration() *Configuration { return s.cfg }

// Designated returns the cached designated parameter.
func (s *Session) Designated() (*Parameter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.designated, s.designated != nil
}

// SetEditorState stores the presentation-layer blob. It is persisted as is.
func (s *Session) SetEditorState(state []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNoSession
	}
	s.cfg.EditorState = append([]byte(nil), state...)
	return nil
}

// EditSetting replaces the value of one setting. Editing the designated
// parameter moves the configuration to the user-defined preset.
func (s *Session) EditSetting(ctx context.Context, layer, key, value string) error {
	return s.edit(ctx, layer, key, func(setting *LayerSetting) bool {
		if setting.Value == value {
			return false
		}
		setting.Value = value
		return true
	})
}

// SetSettingBool sets a boolean setting using the manifest's spelling.
func (s *Session) SetSettingBool(ctx context.Context, layer, key string, value bool) error {
	return s.edit(ctx, layer, key, func(setting *LayerSetting) bool {
		if setting.Bool() == value {
			return false
		}
		setting.SetBool(value)
		return true
	})
}

// AddSettingValue adds one element to a list setting.
func (s *Session) AddSettingValue(ctx context.Context, layer, key, value string) error {
	return s.edit(ctx, layer, key, func(setting *LayerSetting) bool {
		return setting.AddValue(value)
	})
}

// RemoveSettingValue removes one element from a list setting.
func (s *Session) RemoveSettingValue(ctx context.Context, layer, key, value string) error {
	return s.edit(ctx, layer, key, func(setting *LayerSetting) bool {
		return setting.RemoveValue(value)
	})
}

func (s *Session) edit(ctx context.Context, layer, key string, mutate func(*LayerSetting) bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrNoSession
	}
	param, ok := s.cfg.Parameter(layer)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrParameterNotFound, layer)
	}
	setting, ok := param.FindSetting(key)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrSettingNotFound, layer, key)
	}
	old := setting.Value
	if !mutate(setting) {
		s.mu.Unlock()
		return nil
	}
	if layer == s.engine.cfg.designated {
		OnSettingsManuallyEdited(s.cfg)
	}
	value := setting.Value
	s.mu.Unlock()

	s.engine.cfg.logger.Debug("setting edited",
		slog.String("session", s.id),
		slog.String("layer", layer),
		slog.String("setting", key))
	s.engine.emit(ctx, activity.BuildSettingEditedEvent(s.eventInput(activity.EventInput{
		Layer:    layer,
		Setting:  key,
		OldValue: old,
		NewValue: value,
	})))
	return s.engine.autosave(ctx, s.cfg)
}

// ApplyPreset overwrites the designated parameter's enables and disables
// with the preset's values.
func (s *Session) ApplyPreset(ctx context.Context, preset ValidationPreset) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrNoSession
	}
	previous := s.cfg.Preset
	err := s.engine.cfg.presets.Apply(s.cfg, s.engine.cfg.designated, preset)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if preset == PresetUserDefined {
		return nil
	}

	s.engine.cfg.logger.Info("preset applied",
		slog.String("session", s.id),
		slog.String("configuration", s.cfg.Name),
		slog.String("preset", preset.ID()))
	s.engine.emit(ctx, activity.BuildPresetAppliedEvent(s.eventInput(activity.EventInput{
		Layer:    s.engine.cfg.designated,
		OldValue: previous.ID(),
		NewValue: preset.ID(),
	})))
	return s.engine.autosave(ctx, s.cfg)
}

// SetState changes a parameter's state. Ranks are renormalized.
func (s *Session) SetState(ctx context.Context, layer string, state LayerState) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrNoSession
	}
	param, ok := s.cfg.Parameter(layer)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrParameterNotFound, layer)
	}
	old := param.State
	SetState(s.cfg, layer, state)
	s.refreshDesignated()
	s.mu.Unlock()
	if old == state {
		return nil
	}

	s.engine.emit(ctx, activity.BuildStateChangedEvent(s.eventInput(activity.EventInput{
		Layer:    layer,
		OldValue: old.String(),
		NewValue: state.String(),
	})))
	return nil
}

// MoveUp swaps a ranked parameter with its ranked predecessor. It reports
// whether anything moved.
func (s *Session) MoveUp(ctx context.Context, layer string) (bool, error) {
	return s.move(ctx, layer, MoveUp, "up")
}

// MoveDown swaps a ranked parameter with its ranked successor.
func (s *Session) MoveDown(ctx context.Context, layer string) (bool, error) {
	return s.move(ctx, layer, MoveDown, "down")
}

func (s *Session) move(ctx context.Context, layer string, fn func(*Configuration, string) bool, direction string) (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrNoSession
	}
	if s.cfg.FindParameter(layer) < 0 {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrParameterNotFound, layer)
	}
	moved := fn(s.cfg, layer)
	s.refreshDesignated()
	s.mu.Unlock()
	if !moved {
		return false, nil
	}

	s.engine.emit(ctx, activity.BuildParameterMovedEvent(s.eventInput(activity.EventInput{
		Layer:    layer,
		NewValue: direction,
	})))
	return true, nil
}

// Validate runs the save gate on the session configuration.
func (s *Session) Validate() ValidationResult {
	return s.engine.Validate(s.cfg)
}

// Save persists the session configuration through the engine.
func (s *Session) Save(ctx context.Context, opts SaveOptions) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrNoSession
	}
	return s.engine.Save(ctx, s.cfg, opts)
}

// The designated pointer indexes into cfg.Parameters, which moves on
// reorder.
func (s *Session) refreshDesignated() {
	s.designated, _ = s.cfg.Parameter(s.engine.cfg.designated)
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.designated = nil
	s.mu.Unlock()
}

func (s *Session) eventInput(input activity.EventInput) activity.EventInput {
	input.Configuration = s.cfg.Name
	if input.Metadata == nil {
		input.Metadata = map[string]any{}
	}
	input.Metadata["session_id"] = s.id
	return input
}
