package activity

import (
	"strings"
	"time"
)

// Verbs emitted by the configuration engine.
const (
	VerbConfigurationSaved   = "configuration.saved"
	VerbPresetApplied        = "configuration.preset_applied"
	VerbParameterStateChange = "parameter.state_changed"
	VerbParameterMoved       = "parameter.moved"
	VerbSettingEdited        = "setting.edited"
)

// Object types used by the builders.
const (
	ObjectConfiguration = "configuration"
	ObjectParameter     = "parameter"
	ObjectSetting       = "setting"
)

// EventInput describes the common fields of configuration events.
type EventInput struct {
	ActorID       string
	TenantID      string
	Channel       string
	Configuration string
	Layer         string
	Setting       string
	OldValue      any
	NewValue      any
	SnapshotID    string
	Metadata      map[string]any
	OccurredAt    time.Time
}

// BuildConfigurationSavedEvent describes a configuration written to storage.
func BuildConfigurationSavedEvent(input EventInput) Event {
	return buildEvent(VerbConfigurationSaved, ObjectConfiguration, input)
}

// BuildPresetAppliedEvent describes a preset applied to the designated layer.
func BuildPresetAppliedEvent(input EventInput) Event {
	return buildEvent(VerbPresetApplied, ObjectConfiguration, input)
}

// BuildStateChangedEvent describes a parameter state change.
func BuildStateChangedEvent(input EventInput) Event {
	return buildEvent(VerbParameterStateChange, ObjectParameter, input)
}

// BuildParameterMovedEvent describes a rank change.
func BuildParameterMovedEvent(input EventInput) Event {
	return buildEvent(VerbParameterMoved, ObjectParameter, input)
}

// BuildSettingEditedEvent describes a manual setting edit.
func BuildSettingEditedEvent(input EventInput) Event {
	return buildEvent(VerbSettingEdited, ObjectSetting, input)
}

func buildEvent(verb, objectType string, input EventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value any) {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	if input.Configuration != "" {
		set("configuration", input.Configuration)
	}
	if input.Layer != "" {
		set("layer", input.Layer)
	}
	if input.Setting != "" {
		set("setting", input.Setting)
	}
	if input.SnapshotID != "" {
		set("snapshot_id", input.SnapshotID)
	}
	if input.OldValue != nil {
		set("old_value", input.OldValue)
	}
	if input.NewValue != nil {
		set("new_value", input.NewValue)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID(objectType, input),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

// objectID is "<configuration>", "<configuration>/<layer>" or
// "<configuration>/<layer>/<setting>" depending on the object type.
func objectID(objectType string, input EventInput) string {
	parts := []string{strings.TrimSpace(input.Configuration)}
	if objectType != ObjectConfiguration {
		parts = append(parts, strings.TrimSpace(input.Layer))
	}
	if objectType == ObjectSetting {
		parts = append(parts, strings.TrimSpace(input.Setting))
	}
	id := strings.Trim(strings.Join(parts, "/"), "/")
	if id == "" {
		return objectType
	}
	return id
}
