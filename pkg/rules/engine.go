package rules

import (
	"fmt"
	"strings"
	"time"
)

// Engine names accepted by New.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// New builds the evaluator named by engine. An empty name selects expr. The
// js engine returns ErrNoEvaluator unless built with the js_eval tag.
func New(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineExpr:
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: %s (build with -tags js_eval)", ErrNoEvaluator, engine)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoEvaluator, engine)
	}
}

// EngineName reports which engine backs e.
func EngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch e.(type) {
	case *exprEvaluator:
		return EngineExpr
	case *celEvaluator:
		return EngineCEL
	default:
		if fmt.Sprintf("%T", e) == "*rules.jsEvaluator" {
			return EngineJS
		}
		return "custom"
	}
}

// Run evaluates a compiled rule and reports the attempt to logger.
func Run(rule CompiledRule, engine, expr string, ctx Context, logger EvaluatorLogger) (any, error) {
	if logger == nil {
		logger = NoopLogger{}
	}
	ctx = ctx.withDefaults()
	start := time.Now()
	value, err := rule.Evaluate(ctx)
	err = WrapEvaluationError(engine, expr, ctx.subjectLabel(), err)
	logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Subject:  ctx.subjectLabel(),
		Duration: time.Since(start),
		Err:      err,
	})
	return value, err
}
