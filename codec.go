package layercfg

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ConfigurationFormatVersion is written into every saved configuration.
var ConfigurationFormatVersion = NewVersion(2, 0, 0)

type configurationDocument struct {
	FileFormatVersion string          `json:"file_format_version"`
	Configuration     json.RawMessage `json:"configuration"`
}

type configurationBody struct {
	Name         string                                             `json:"name"`
	Preset       string                                             `json:"preset"`
	EditorState  string                                             `json:"editor_state"`
	LayerOptions *orderedmap.OrderedMap[string, parameterDocument] `json:"layer_options"`
}

type parameterDocument struct {
	State    string                                            `json:"state"`
	Rank     *int                                              `json:"rank"`
	Settings *orderedmap.OrderedMap[string, json.RawMessage] `json:"settings"`
}

// MarshalConfiguration encodes cfg in the persisted file format. Parameters
// and settings are written in sequence order.
func MarshalConfiguration(cfg *Configuration) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("layercfg: marshal configuration: nil configuration")
	}

	layerOptions := orderedmap.New[string, any](len(cfg.Parameters))
	for _, p := range cfg.Parameters {
		settings := orderedmap.New[string, string](len(p.Settings))
		for _, s := range p.Settings {
			settings.Set(s.Key, s.Value)
		}
		param := orderedmap.New[string, any](3)
		param.Set("state", p.State.String())
		param.Set("rank", p.Rank)
		param.Set("settings", settings)
		layerOptions.Set(p.Name, param)
	}

	body := orderedmap.New[string, any](4)
	body.Set("name", cfg.Name)
	body.Set("preset", cfg.Preset.ID())
	body.Set("editor_state", base64.StdEncoding.EncodeToString(cfg.EditorState))
	body.Set("layer_options", layerOptions)

	doc := orderedmap.New[string, any](2)
	doc.Set("file_format_version", ConfigurationFormatVersion.String())
	doc.Set("configuration", body)

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("layercfg: marshal configuration %q: %w", cfg.Name, err)
	}
	return data, nil
}

// UnmarshalConfiguration decodes a persisted configuration. Parameters come
// back in rank order with bare key/value settings; resolve them against the
// catalog to recover descriptors. A missing or unknown preset id decodes as
// PresetUnknown.
func UnmarshalConfiguration(data []byte, path string) (*Configuration, error) {
	var doc configurationDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Path: path, Message: "invalid JSON", Err: err}
	}
	if doc.FileFormatVersion == "" {
		return nil, &ParseError{Path: path, Field: "file_format_version", Message: "missing"}
	}
	if _, err := ParseVersion(doc.FileFormatVersion); err != nil {
		return nil, &ParseError{Path: path, Field: "file_format_version", Message: "invalid version", Err: err}
	}
	if len(doc.Configuration) == 0 {
		return nil, &ParseError{Path: path, Field: "configuration", Message: "missing configuration object"}
	}

	var body configurationBody
	if err := json.Unmarshal(doc.Configuration, &body); err != nil {
		return nil, &ParseError{Path: path, Field: "configuration", Message: "invalid configuration object", Err: err}
	}

	cfg := &Configuration{Name: body.Name, Preset: PresetUnknown}
	if preset, ok := ParsePreset(body.Preset); ok {
		cfg.Preset = preset
	}
	if body.EditorState != "" {
		state, err := base64.StdEncoding.DecodeString(body.EditorState)
		if err != nil {
			return nil, &ParseError{Path: path, Field: "configuration.editor_state", Message: "invalid base64", Err: err}
		}
		cfg.EditorState = state
	}

	if body.LayerOptions != nil {
		for pair := body.LayerOptions.Oldest(); pair != nil; pair = pair.Next() {
			param, err := decodeParameter(path, pair.Key, pair.Value)
			if err != nil {
				return nil, err
			}
			cfg.Parameters = append(cfg.Parameters, param)
		}
	}
	sortByRank(cfg)
	return cfg, nil
}

func decodeParameter(path, name string, doc parameterDocument) (Parameter, error) {
	field := "configuration.layer_options." + name
	state, ok := ParseLayerState(doc.State)
	if !ok {
		return Parameter{}, &ParseError{Path: path, Field: field + ".state", Message: fmt.Sprintf("unknown state %q", doc.State)}
	}
	param := Parameter{Name: name, State: state}
	if doc.Rank != nil {
		param.Rank = *doc.Rank
	}
	if doc.Settings == nil {
		return param, nil
	}
	for pair := doc.Settings.Oldest(); pair != nil; pair = pair.Next() {
		param.Settings = append(param.Settings, LayerSetting{
			Key:   pair.Key,
			Type:  SettingString,
			Value: rawString(pair.Value),
		})
	}
	return param, nil
}

// rawString accepts string values and, for hand-edited files, bare numbers
// and booleans.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	if raw[0] == '[' {
		var values []string
		if err := json.Unmarshal(raw, &values); err == nil {
			return joinList(values)
		}
	}
	if b, err := strconv.ParseBool(string(raw)); err == nil {
		if b {
			return "TRUE"
		}
		return "FALSE"
	}
	return string(raw)
}
