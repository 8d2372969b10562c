package layercfg

import (
	"slices"
	"testing"
)

func TestParseSettingTypeIsClosed(t *testing.T) {
	for _, name := range []string{"bool", "bool_numeric", "string", "save_file", "load_file", "save_folder", "enum", "multi_enum", "vuid_exclude"} {
		typ, ok := ParseSettingType(name)
		if !ok {
			t.Fatalf("expected %q to be known", name)
		}
		if typ.String() != name {
			t.Fatalf("expected %q to round trip, got %q", name, typ.String())
		}
	}
	for _, name := range []string{"", "slider", "BOOL", "int"} {
		if _, ok := ParseSettingType(name); ok {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestListSettingEdits(t *testing.T) {
	setting := LayerSetting{
		Key:          "report_flags",
		Type:         SettingInclusiveList,
		Value:        "error,warn",
		OptionValues: []string{"info", "warn", "perf", "error", "debug"},
	}

	if setting.HasValue("err") {
		t.Fatalf("matching must be per element, not by substring")
	}
	if !setting.HasValue("warn") {
		t.Fatalf("expected warn to be present")
	}
	if !setting.AddValue("perf") || setting.Value != "error,warn,perf" {
		t.Fatalf("unexpected value after add: %q", setting.Value)
	}
	if setting.AddValue("perf") {
		t.Fatalf("adding an existing element must be a no-op")
	}
	if setting.AddValue("") {
		t.Fatalf("adding an empty element must be a no-op")
	}
	if !setting.RemoveValue("error") || setting.Value != "warn,perf" {
		t.Fatalf("unexpected value after remove: %q", setting.Value)
	}
	if setting.RemoveValue("er") {
		t.Fatalf("removing a partial element must be a no-op")
	}

	setting.Value = "warn,custom_flag"
	if got := setting.UnknownValues(); !slices.Equal(got, []string{"custom_flag"}) {
		t.Fatalf("expected unknown custom_flag, got %v", got)
	}
	if setting.Value != "warn,custom_flag" {
		t.Fatalf("unknown values must be kept verbatim")
	}
}

func TestScalarSettingValues(t *testing.T) {
	setting := LayerSetting{Type: SettingSaveFile, Value: "out,log.txt"}
	if got := setting.Values(); !slices.Equal(got, []string{"out,log.txt"}) {
		t.Fatalf("scalar values must not be split, got %v", got)
	}
	setting.Value = ""
	if got := setting.Values(); got != nil {
		t.Fatalf("expected no values, got %v", got)
	}
}

func TestBoolSettingEncodings(t *testing.T) {
	cases := []struct {
		typ   SettingType
		set   bool
		value string
	}{
		{typ: SettingBool, set: true, value: "TRUE"},
		{typ: SettingBool, set: false, value: "FALSE"},
		{typ: SettingBoolNumeric, set: true, value: "1"},
		{typ: SettingBoolNumeric, set: false, value: "0"},
	}
	for _, tc := range cases {
		setting := LayerSetting{Type: tc.typ}
		setting.SetBool(tc.set)
		if setting.Value != tc.value {
			t.Fatalf("%s %v: expected %q, got %q", tc.typ, tc.set, tc.value, setting.Value)
		}
		if setting.Bool() != tc.set {
			t.Fatalf("%s %q: expected %v", tc.typ, setting.Value, tc.set)
		}
	}

	mixed := LayerSetting{Type: SettingBool, Value: "1"}
	if !mixed.Bool() {
		t.Fatalf("expected numeric spelling to decode on a bool setting")
	}
}
