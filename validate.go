package layercfg

import (
	"fmt"
	"strings"
)

// ValidationCode classifies the outcome of Validate.
type ValidationCode int

const (
	ValidationOK ValidationCode = iota
	// ValidationDuplicateActiveName blocks save.
	ValidationDuplicateActiveName
	// ValidationBlankName blocks save.
	ValidationBlankName
	// ValidationExcludesImplicitLayer is a warning; save needs confirmation.
	ValidationExcludesImplicitLayer
)

func (c ValidationCode) String() string {
	switch c {
	case ValidationOK:
		return "ok"
	case ValidationDuplicateActiveName:
		return "duplicate_active_name"
	case ValidationBlankName:
		return "blank_name"
	case ValidationExcludesImplicitLayer:
		return "excludes_implicit_layer"
	default:
		return "unknown"
	}
}

// ValidationResult is the structured outcome of Validate. Names lists the
// offending layers, when the code refers to any.
type ValidationResult struct {
	Code  ValidationCode
	Names []string
}

// OK reports whether no rule fired.
func (r ValidationResult) OK() bool { return r.Code == ValidationOK }

// Blocking reports whether save must refuse.
func (r ValidationResult) Blocking() bool {
	return r.Code == ValidationDuplicateActiveName || r.Code == ValidationBlankName
}

// Warning reports whether save may proceed after confirmation.
func (r ValidationResult) Warning() bool {
	return r.Code == ValidationExcludesImplicitLayer
}

// Err returns nil for OK and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Result: r}
}

func (r ValidationResult) String() string {
	switch r.Code {
	case ValidationOK:
		return "layercfg: configuration is valid"
	case ValidationDuplicateActiveName:
		return fmt.Sprintf("layercfg: layer %q is active more than once", strings.Join(r.Names, ", "))
	case ValidationBlankName:
		return ErrBlankName.Error()
	case ValidationExcludesImplicitLayer:
		return fmt.Sprintf("layercfg: configuration excludes implicit layers: %s", strings.Join(r.Names, ", "))
	default:
		return "layercfg: unknown validation result"
	}
}

func (r ValidationResult) sentinel() error {
	switch r.Code {
	case ValidationDuplicateActiveName:
		return ErrDuplicateActiveName
	case ValidationBlankName:
		return ErrBlankName
	case ValidationExcludesImplicitLayer:
		return ErrExcludesImplicitLayer
	default:
		return nil
	}
}

// LayerResolver looks up the discoverable layer behind a parameter name.
type LayerResolver interface {
	Find(name string) (*Layer, bool)
}

// LayerList resolves names against a plain slice, first match wins.
type LayerList []*Layer

// Find implements LayerResolver.
func (l LayerList) Find(name string) (*Layer, bool) {
	return FindLayer(l, name)
}

// Validate runs the save gate. Rules are checked in order and the first one
// that fires is returned: a name active more than once, a blank configuration
// name, then excluded implicit layers. The implicit layer check is skipped
// when resolver is nil.
func Validate(cfg *Configuration, resolver LayerResolver) ValidationResult {
	if cfg == nil {
		return ValidationResult{Code: ValidationBlankName}
	}

	seen := make(map[string]struct{}, len(cfg.Parameters))
	for _, p := range cfg.Parameters {
		if !p.State.Ranked() {
			continue
		}
		if _, dup := seen[p.Name]; dup {
			return ValidationResult{Code: ValidationDuplicateActiveName, Names: []string{p.Name}}
		}
		seen[p.Name] = struct{}{}
	}

	if cfg.HasBlankName() {
		return ValidationResult{Code: ValidationBlankName}
	}

	if resolver != nil {
		var names []string
		for _, p := range cfg.Parameters {
			if p.State != StateExcluded {
				continue
			}
			if layer, ok := resolver.Find(p.Name); ok && layer.Type == LayerTypeImplicit {
				names = append(names, p.Name)
			}
		}
		if len(names) > 0 {
			return ValidationResult{Code: ValidationExcludesImplicitLayer, Names: names}
		}
	}
	return ValidationResult{Code: ValidationOK}
}
