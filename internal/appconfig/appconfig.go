// Package appconfig loads the layercfg tool settings from a YAML file with
// LAYERCFG_* environment overrides.
package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	layercfg "github.com/goliatone/go-layercfg"
	"github.com/goliatone/go-layercfg/internal/hydrate"
	"github.com/goliatone/go-layercfg/pkg/activity"
	"github.com/goliatone/go-layercfg/pkg/discovery"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LAYERCFG_"

// SearchPath is one manifest directory in the settings file.
type SearchPath struct {
	Path string `yaml:"path" json:"path" validate:"required"`
	Type string `yaml:"type" json:"type" validate:"required,oneof=explicit implicit custom"`
}

// Settings is the tool configuration.
type Settings struct {
	ConfigurationDir string                    `yaml:"configuration_dir" json:"configuration_dir" validate:"required"`
	SearchPaths      []SearchPath              `yaml:"search_paths" json:"search_paths" validate:"dive"`
	DesignatedLayer  string                    `yaml:"designated_layer" json:"designated_layer" validate:"required"`
	ExcludedLayers   []string                  `yaml:"excluded_layers" json:"excluded_layers"`
	RuleEngine       string                    `yaml:"rule_engine" json:"rule_engine" validate:"oneof=expr cel js"`
	Rules            []layercfg.ExpressionRule `yaml:"rules" json:"rules" validate:"dive"`
	Activity         activity.Config           `yaml:"activity" json:"activity"`
	LogLevel         string                    `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	Autosave         bool                      `yaml:"autosave" json:"autosave"`
}

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		ConfigurationDir: defaultConfigurationDir(),
		SearchPaths:      defaultSearchPaths(),
		DesignatedLayer:  layercfg.DesignatedLayer,
		RuleEngine:       "expr",
		LogLevel:         "info",
	}
}

func defaultConfigurationDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "configurations")
	}
	return filepath.Join(dir, "layercfg", "configurations")
}

func defaultSearchPaths() []SearchPath {
	paths := []SearchPath{
		{Path: "/usr/share/vulkan/explicit_layer.d", Type: "explicit"},
		{Path: "/etc/vulkan/explicit_layer.d", Type: "explicit"},
		{Path: "/usr/share/vulkan/implicit_layer.d", Type: "implicit"},
		{Path: "/etc/vulkan/implicit_layer.d", Type: "implicit"},
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			SearchPath{Path: filepath.Join(home, ".local", "share", "vulkan", "explicit_layer.d"), Type: "explicit"},
			SearchPath{Path: filepath.Join(home, ".local", "share", "vulkan", "implicit_layer.d"), Type: "implicit"},
		)
	}
	return paths
}

// Load reads path and applies env overrides. An empty path, or a path that
// does not exist, yields the defaults plus overrides. env is typically
// Environ(os.Environ()).
func Load(path string, env map[string]string) (Settings, error) {
	payload := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Settings{}, &layercfg.IOError{Op: "read settings", Path: path, Err: err}
		default:
			if err := yaml.Unmarshal(data, &payload); err != nil {
				return Settings{}, &layercfg.ParseError{Path: path, Message: "invalid YAML", Err: err}
			}
			if payload == nil {
				payload = map[string]any{}
			}
		}
	}

	decoder := hydrate.NewDecoder(
		hydrate.WithPreHook[Settings](defaultsPreHook),
		hydrate.WithPreHook[Settings](envPreHook),
		hydrate.WithDisallowUnknownFields[Settings](),
		hydrate.WithPostHook[Settings](validatePostHook),
	)
	return decoder.Decode(hydrate.Context{Source: path, Env: env}, payload)
}

// Environ converts os.Environ output into a map holding only LAYERCFG_*
// variables.
func Environ(environ []string) map[string]string {
	out := map[string]string{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, EnvPrefix) {
			out[strings.TrimPrefix(key, EnvPrefix)] = value
		}
	}
	return out
}

func defaultsPreHook(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	defaults := Default()
	setDefault(payload, "configuration_dir", defaults.ConfigurationDir)
	setDefault(payload, "designated_layer", defaults.DesignatedLayer)
	setDefault(payload, "rule_engine", defaults.RuleEngine)
	setDefault(payload, "log_level", defaults.LogLevel)
	if _, ok := payload["search_paths"]; !ok {
		paths := make([]any, 0, len(defaults.SearchPaths))
		for _, p := range defaults.SearchPaths {
			paths = append(paths, map[string]any{"path": p.Path, "type": p.Type})
		}
		payload["search_paths"] = paths
	}
	return payload, nil
}

func setDefault(payload map[string]any, key string, value any) {
	if current, ok := payload[key]; !ok || current == nil || current == "" {
		payload[key] = value
	}
}

func envPreHook(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
	for _, key := range []string{"configuration_dir", "designated_layer", "rule_engine", "log_level"} {
		if value, ok := ctx.Env[strings.ToUpper(key)]; ok {
			payload[key] = value
		}
	}
	if value, ok := ctx.Env["AUTOSAVE"]; ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%sAUTOSAVE: %w", EnvPrefix, err)
		}
		payload["autosave"] = b
	}
	if value, ok := ctx.Env["EXCLUDED_LAYERS"]; ok {
		payload["excluded_layers"] = splitNonEmpty(value, ",")
	}
	if value, ok := ctx.Env["SEARCH_PATHS"]; ok {
		existing, _ := payload["search_paths"].([]any)
		existing = slices.Clone(existing)
		for _, dir := range splitNonEmpty(value, string(os.PathListSeparator)) {
			existing = append(existing, map[string]any{"path": dir, "type": "custom"})
		}
		payload["search_paths"] = existing
	}
	return payload, nil
}

func splitNonEmpty(value, sep string) []any {
	var out []any
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var settingsValidate = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validatePostHook(ctx hydrate.Context, s *Settings) error {
	if err := settingsValidate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return &layercfg.ParseError{
				Path:    ctx.Source,
				Field:   first.Namespace(),
				Message: fmt.Sprintf("failed %q validation", first.Tag()),
				Err:     err,
			}
		}
		return err
	}
	return nil
}

// DiscoveryPaths converts the search paths for the scanner.
func (s Settings) DiscoveryPaths() []discovery.SearchPath {
	paths := discovery.NewSearchPaths()
	for _, p := range s.SearchPaths {
		t, _ := layercfg.ParseLayerType(p.Type)
		paths.Add(p.Path, t)
	}
	return paths.List()
}

// Level returns the slog level for LogLevel.
func (s Settings) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
