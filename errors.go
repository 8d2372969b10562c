package layercfg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPresetNotFound indicates the designated parameter is absent from the
	// configuration a preset was applied to. Reconcile the designated layer in
	// first.
	ErrPresetNotFound = errors.New("layercfg: designated parameter not found")
	// ErrUnknownPreset indicates a preset id with no bundled template.
	ErrUnknownPreset = errors.New("layercfg: unknown preset")

	// ErrDuplicateActiveName blocks save when two active parameters share a name.
	ErrDuplicateActiveName = errors.New("layercfg: two active layers share a name")
	// ErrBlankName blocks save when the configuration has no name.
	ErrBlankName = errors.New("layercfg: configuration name is blank")
	// ErrExcludesImplicitLayer is a warning condition; save proceeds only when
	// confirmed.
	ErrExcludesImplicitLayer = errors.New("layercfg: configuration excludes an implicit layer")
	// ErrOverwriteExisting is a warning condition raised when a save would
	// replace an existing configuration file.
	ErrOverwriteExisting = errors.New("layercfg: configuration already exists")

	// ErrSessionActive is returned by Build when the previous session was not
	// cleaned up.
	ErrSessionActive = errors.New("layercfg: editing session already active")
	// ErrNoSession is returned by session operations invoked before Build.
	ErrNoSession = errors.New("layercfg: no editing session")
	// ErrParameterNotFound indicates an operation named a layer that has no
	// parameter in the configuration.
	ErrParameterNotFound = errors.New("layercfg: parameter not found")
	// ErrSettingNotFound indicates an operation named an unknown setting key.
	ErrSettingNotFound = errors.New("layercfg: setting not found")
	// ErrNoStore is returned by persistence operations on an engine built
	// without a Store.
	ErrNoStore = errors.New("layercfg: store not configured")
)

// IOError reports a manifest or configuration file that could not be read or
// written.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("layercfg: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ParseError reports malformed JSON or a missing required field.
type ParseError struct {
	Path    string
	Field   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("layercfg: parse")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SchemaError reports a setting whose type string is not part of the known
// schema. The whole layer fails to load.
type SchemaError struct {
	Layer   string
	Setting string
	Type    string
}

func (e *SchemaError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("layercfg: layer %q setting %q: unrecognized setting type %q", e.Layer, e.Setting, e.Type)
}

// ValidationError carries a non-OK ValidationResult as an error value.
type ValidationError struct {
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Result.String()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Result.sentinel()
}

func wrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
