package rules

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Registered functions are callable with one or two arguments, or through
// call(name, [args]).
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx Context, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression, ctx.Facts)
	if err != nil {
		return nil, WrapEvaluationError("cel", expression, ctx.subjectLabel(), err)
	}
	out, _, err := program.program.Eval(ctx.variables())
	if err != nil {
		return nil, WrapEvaluationError("cel", expression, ctx.subjectLabel(), err)
	}
	return out.Value(), nil
}

// Compile defers building the CEL environment until the first evaluation,
// since variable declarations depend on the facts supplied.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, facts map[string]any) (*celProgram, error) {
	key := cacheKey(expression, facts)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(facts)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(key, bundle)
	}
	return bundle, nil
}

// cacheKey includes the fact names so a program is never reused against an
// environment that declares different variables.
func cacheKey(expression string, facts map[string]any) string {
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	slices.Sort(names)
	return expression + "\x00" + strings.Join(names, ",")
}

func (e *celEvaluator) buildEnv(facts map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
	}
	for key := range facts {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload("call_string_list",
				[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
				celgo.DynType,
				celgo.BinaryBinding(func(name, args ref.Val) ref.Val {
					native, err := args.ConvertToNative(reflect.TypeOf([]any{}))
					if err != nil {
						return types.NewErr("rules: call arguments: %v", err)
					}
					list, _ := native.([]any)
					return e.invoke(fmt.Sprint(name.Value()), list...)
				}),
			),
		))
		for _, name := range e.registry.Names() {
			fn := name
			opts = append(opts, celgo.Function(fn,
				celgo.Overload(fn+"_dyn",
					[]*celgo.Type{celgo.DynType},
					celgo.DynType,
					celgo.UnaryBinding(func(arg ref.Val) ref.Val {
						return e.invoke(fn, arg.Value())
					}),
				),
				celgo.Overload(fn+"_dyn_dyn",
					[]*celgo.Type{celgo.DynType, celgo.DynType},
					celgo.DynType,
					celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val {
						return e.invoke(fn, lhs.Value(), rhs.Value())
					}),
				),
			))
		}
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) invoke(name string, args ...any) ref.Val {
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx Context) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}
