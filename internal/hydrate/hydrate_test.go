package hydrate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type searchPath struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type toolSettings struct {
	ConfigurationDir string       `json:"configuration_dir"`
	LogLevel         string       `json:"log_level"`
	Autosave         bool         `json:"autosave"`
	SearchPaths      []searchPath `json:"search_paths"`
}

func splitPathsPreHook(_ Context, payload map[string]any) (map[string]any, error) {
	raw, ok := payload["search_paths"].(string)
	if !ok {
		return payload, nil
	}
	var paths []any
	for _, part := range strings.Split(raw, ",") {
		pieces := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(pieces) != 2 {
			return nil, fmt.Errorf("invalid search path %q", part)
		}
		paths = append(paths, map[string]any{"type": pieces[0], "path": pieces[1]})
	}
	payload["search_paths"] = paths
	return payload, nil
}

func envPreHook(ctx Context, payload map[string]any) (map[string]any, error) {
	if level, ok := ctx.Env["LOG_LEVEL"]; ok {
		payload["log_level"] = level
	}
	return payload, nil
}

func defaultLevelPostHook(_ Context, s *toolSettings) error {
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	return nil
}

func requireDirPostHook(ctx Context, s *toolSettings) error {
	if s.ConfigurationDir == "" {
		return errors.New("configuration_dir is required")
	}
	return nil
}

func TestDecoder(t *testing.T) {
	cases := []struct {
		name      string
		options   []DecoderOption[toolSettings]
		ctx       Context
		input     map[string]any
		expect    toolSettings
		expectErr string
	}{
		{
			name:  "plain",
			input: map[string]any{"configuration_dir": "/tmp/cfg", "autosave": true},
			options: []DecoderOption[toolSettings]{
				WithPostHook[toolSettings](defaultLevelPostHook),
			},
			expect: toolSettings{ConfigurationDir: "/tmp/cfg", Autosave: true, LogLevel: "info"},
		},
		{
			name: "pre hooks run in order",
			ctx:  Context{Source: "layercfg.yaml", Env: map[string]string{"LOG_LEVEL": "debug"}},
			input: map[string]any{
				"configuration_dir": "/tmp/cfg",
				"search_paths":      "custom=/opt/layers, explicit=/usr/share/vulkan",
				"log_level":         "warn",
			},
			options: []DecoderOption[toolSettings]{
				WithPreHook[toolSettings](splitPathsPreHook),
				WithPreHook[toolSettings](envPreHook),
			},
			expect: toolSettings{
				ConfigurationDir: "/tmp/cfg",
				LogLevel:         "debug",
				SearchPaths: []searchPath{
					{Path: "/opt/layers", Type: "custom"},
					{Path: "/usr/share/vulkan", Type: "explicit"},
				},
			},
		},
		{
			name:      "pre hook error names source",
			ctx:       Context{Source: "bad.yaml"},
			input:     map[string]any{"search_paths": "nope"},
			options:   []DecoderOption[toolSettings]{WithPreHook[toolSettings](splitPathsPreHook)},
			expectErr: `pre-hook 0 for "bad.yaml" failed`,
		},
		{
			name:      "post hook validation",
			input:     map[string]any{"autosave": false},
			options:   []DecoderOption[toolSettings]{WithPostHook[toolSettings](requireDirPostHook)},
			expectErr: "configuration_dir is required",
		},
		{
			name:      "unknown fields rejected",
			input:     map[string]any{"configuration_dir": "/tmp", "colour": "blue"},
			options:   []DecoderOption[toolSettings]{WithDisallowUnknownFields[toolSettings]()},
			expectErr: "unknown field",
		},
		{
			name:      "nil payload",
			ctx:       Context{Source: "empty.yaml"},
			expectErr: `payload is nil for "empty.yaml"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := NewDecoder(tc.options...).Decode(tc.ctx, tc.input)
			if tc.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecoderDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"configuration_dir": "/tmp", "search_paths": "custom=/opt"}
	decoder := NewDecoder(WithPreHook[toolSettings](splitPathsPreHook))
	if _, err := decoder.Decode(Context{}, input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if input["search_paths"] != "custom=/opt" {
		t.Fatalf("expected input untouched, got %v", input["search_paths"])
	}
}
