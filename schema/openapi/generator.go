package openapi

import (
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	layercfg "github.com/goliatone/go-layercfg"
)

// Vendor extensions carried on each setting schema.
const (
	ExtensionType  = "x-layercfg-type"
	ExtensionLabel = "x-layercfg-label"
	ExtensionPath  = "x-layercfg-path"
)

// Generator renders a layer's settings as an OpenAPI document.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator.
func NewGenerator(opts ...GeneratorOption) Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return Generator{config: cfg}
}

// Generate is shorthand for NewGenerator(opts...).Generate(layer).
func Generate(layer *layercfg.Layer, opts ...GeneratorOption) (map[string]any, error) {
	return NewGenerator(opts...).Generate(layer)
}

// Generate builds the document. The layer's settings are published as one
// component schema whose properties follow manifest order; settings the gate
// rejects are left out.
func (g Generator) Generate(layer *layercfg.Layer) (map[string]any, error) {
	if layer == nil {
		return nil, fmt.Errorf("openapi: layer cannot be nil")
	}
	schema, err := g.layerSchema(layer)
	if err != nil {
		return nil, err
	}
	return newDocumentBuilder(g.config, layer).build(schema)
}

func (g Generator) layerSchema(layer *layercfg.Layer) (map[string]any, error) {
	properties := orderedmap.New[string, any](len(layer.Settings))
	for _, setting := range layer.Settings {
		ok, err := g.config.gate.Applicable(setting.Key, layer)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s: %w", layer.Name, err)
		}
		if !ok {
			continue
		}
		properties.Set(setting.Key, g.settingSchema(setting))
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if layer.Description != "" {
		schema["description"] = layer.Description
	}
	return schema, nil
}

func (g Generator) settingSchema(setting layercfg.LayerSetting) map[string]any {
	schema := map[string]any{
		ExtensionType: setting.Type.String(),
	}
	if setting.Label != "" {
		schema["title"] = setting.Label
	}
	if setting.Description != "" {
		schema["description"] = setting.Description
	}

	switch setting.Type {
	case layercfg.SettingBool:
		schema["type"] = "boolean"
		schema["default"] = setting.Bool()
	case layercfg.SettingBoolNumeric:
		schema["type"] = "integer"
		schema["enum"] = []int{0, 1}
		if n, err := strconv.Atoi(setting.Value); err == nil {
			schema["default"] = n
		}
	case layercfg.SettingExclusiveList:
		schema["type"] = "string"
		schema["enum"] = g.options(setting)
		schema[ExtensionLabel] = g.optionLabels(setting)
		schema["default"] = setting.Value
	case layercfg.SettingInclusiveList:
		schema["type"] = "array"
		schema["uniqueItems"] = true
		schema["items"] = map[string]any{
			"type": "string",
			"enum": g.options(setting),
		}
		schema[ExtensionLabel] = g.optionLabels(setting)
		schema["default"] = nonNil(setting.Values())
	case layercfg.SettingVUIDFilter:
		schema["type"] = "array"
		schema["items"] = map[string]any{"type": "string"}
		schema["default"] = nonNil(setting.Values())
	case layercfg.SettingSaveFile, layercfg.SettingLoadFile, layercfg.SettingSaveFolder:
		schema["type"] = "string"
		schema[ExtensionPath] = setting.Type.String()
		schema["default"] = setting.Value
	default:
		schema["type"] = "string"
		schema["default"] = setting.Value
	}
	return schema
}

func (g Generator) options(setting layercfg.LayerSetting) []string {
	out := make([]string, 0, len(setting.OptionValues))
	for _, value := range setting.OptionValues {
		if layercfg.IsOptionApplicable(setting, value, g.config.goos) {
			out = append(out, value)
		}
	}
	return out
}

func (g Generator) optionLabels(setting layercfg.LayerSetting) *orderedmap.OrderedMap[string, string] {
	labels := orderedmap.New[string, string](len(setting.OptionValues))
	for _, value := range g.options(setting) {
		if label, ok := setting.OptionLabel(value); ok {
			labels.Set(value, label)
		}
	}
	return labels
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
