package rules

import (
	"errors"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := WrapEvaluationError("expr", "flag && missing", "VK_LAYER_KHRONOS_validation", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "flag && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Subject != "VK_LAYER_KHRONOS_validation" {
		t.Fatalf("expected subject metadata, got %q", evalErr.Subject)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := WrapEvaluationError("cel", "rule", "layer", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Subject != "layer" {
		t.Fatalf("subject should be filled, got %q", existing.Subject)
	}
}

func TestWrapEvaluationErrorNil(t *testing.T) {
	if err := WrapEvaluationError("expr", "x", "y", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
