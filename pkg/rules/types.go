// Package rules evaluates small boolean expressions over a map of facts. It
// backs the configurable setting gate and ships expr, CEL and (behind the
// js_eval build tag) JavaScript engines.
package rules

import (
	"maps"
	"time"
)

// Context carries the inputs of one evaluation. Facts become top-level
// variables; Subject labels the evaluation in errors and logs.
type Context struct {
	Facts    map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Subject  string
}

func (ctx Context) withDefaultNow() Context {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx Context) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx Context) withDefaultMaps() Context {
	if ctx.Facts == nil {
		ctx.Facts = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx Context) withDefaults() Context {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx Context) subjectLabel() string {
	if ctx.Subject != "" {
		return ctx.Subject
	}
	return "unknown"
}

// variables returns the top-level bindings every engine exposes.
func (ctx Context) variables() map[string]any {
	vars := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	maps.Copy(vars, ctx.Facts)
	return vars
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx Context, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx Context) (any, error)
}
