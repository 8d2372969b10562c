package layercfg

import (
	"errors"
	"slices"
	"testing"
)

func TestValidate(t *testing.T) {
	layers := LayerList(loadTestLayers(t))

	cases := []struct {
		name     string
		cfg      *Configuration
		resolver LayerResolver
		code     ValidationCode
		names    []string
	}{
		{
			name: "ok",
			cfg: &Configuration{Name: "ok", Parameters: []Parameter{
				{Name: validationLayer, State: StateOverridden},
				{Name: apiDumpLayer, State: StateApplicationControlled},
			}},
			resolver: layers,
			code:     ValidationOK,
		},
		{
			name: "duplicate active name",
			cfg: &Configuration{Name: "dup", Parameters: []Parameter{
				{Name: validationLayer, State: StateOverridden},
				{Name: validationLayer, State: StateExcluded},
			}},
			resolver: layers,
			code:     ValidationDuplicateActiveName,
			names:    []string{validationLayer},
		},
		{
			name: "duplicate name with one inactive",
			cfg: &Configuration{Name: "dup", Parameters: []Parameter{
				{Name: validationLayer, State: StateOverridden},
				{Name: validationLayer, State: StateApplicationControlled},
			}},
			resolver: layers,
			code:     ValidationOK,
		},
		{
			name: "duplicate checked before blank name",
			cfg: &Configuration{Name: "", Parameters: []Parameter{
				{Name: validationLayer, State: StateOverridden},
				{Name: validationLayer, State: StateOverridden},
			}},
			resolver: layers,
			code:     ValidationDuplicateActiveName,
			names:    []string{validationLayer},
		},
		{
			name:     "blank name",
			cfg:      &Configuration{Name: "   "},
			resolver: layers,
			code:     ValidationBlankName,
		},
		{
			name: "blank name checked before implicit exclusion",
			cfg: &Configuration{Name: "", Parameters: []Parameter{
				{Name: simulationLayer, State: StateExcluded},
			}},
			resolver: layers,
			code:     ValidationBlankName,
		},
		{
			name: "excludes implicit layer",
			cfg: &Configuration{Name: "warn", Parameters: []Parameter{
				{Name: simulationLayer, State: StateExcluded},
				{Name: apiDumpLayer, State: StateExcluded},
			}},
			resolver: layers,
			code:     ValidationExcludesImplicitLayer,
			names:    []string{simulationLayer},
		},
		{
			name: "implicit check needs a resolver",
			cfg: &Configuration{Name: "warn", Parameters: []Parameter{
				{Name: simulationLayer, State: StateExcluded},
			}},
			code: ValidationOK,
		},
		{
			name: "missing layer is not implicit",
			cfg: &Configuration{Name: "missing", Parameters: []Parameter{
				{Name: "VK_LAYER_vendor_removed", State: StateExcluded},
			}},
			resolver: layers,
			code:     ValidationOK,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Validate(tc.cfg, tc.resolver)
			if result.Code != tc.code {
				t.Fatalf("expected %s, got %s", tc.code, result.Code)
			}
			if !slices.Equal(result.Names, tc.names) {
				t.Fatalf("expected names %v, got %v", tc.names, result.Names)
			}
		})
	}
}

func TestValidationResultErrors(t *testing.T) {
	cases := []struct {
		code     ValidationCode
		sentinel error
		blocking bool
		warning  bool
	}{
		{code: ValidationDuplicateActiveName, sentinel: ErrDuplicateActiveName, blocking: true},
		{code: ValidationBlankName, sentinel: ErrBlankName, blocking: true},
		{code: ValidationExcludesImplicitLayer, sentinel: ErrExcludesImplicitLayer, warning: true},
	}
	for _, tc := range cases {
		result := ValidationResult{Code: tc.code, Names: []string{"VK_LAYER_x"}}
		if result.Blocking() != tc.blocking || result.Warning() != tc.warning {
			t.Fatalf("%s: unexpected blocking=%v warning=%v", tc.code, result.Blocking(), result.Warning())
		}
		err := result.Err()
		if !errors.Is(err, tc.sentinel) {
			t.Fatalf("%s: expected %v, got %v", tc.code, tc.sentinel, err)
		}
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Result.Code != tc.code {
			t.Fatalf("%s: expected ValidationError, got %T", tc.code, err)
		}
	}
	if err := (ValidationResult{}).Err(); err != nil {
		t.Fatalf("expected nil error for OK, got %v", err)
	}
}
