package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Context names the payload being decoded, typically the file it came from.
type Context struct {
	Source string
	// Env is the process environment visible to hooks. Nil means none.
	Env map[string]string
}

// PreHook rewrites the raw document before it is decoded: defaults, env
// overrides and shorthand expansion.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook checks or completes the decoded value.
type PostHook[T any] func(Context, *T) error

type DecoderOption[T any] func(*Decoder[T])

// Decoder turns a parsed YAML or JSON document into T. Hooks run in the
// order they were added.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	strict bool
}

func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithDisallowUnknownFields rejects keys that T does not declare, so typos
// in a settings file fail loudly.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs the pre hooks on a shallow copy of doc, decodes the result
// into T and runs the post hooks. doc itself is not modified.
func (d *Decoder[T]) Decode(ctx Context, doc map[string]any) (T, error) {
	var out T
	if doc == nil {
		return out, fmt.Errorf("hydrate: payload is nil for %q", ctx.Source)
	}

	current := maps.Clone(doc)
	for i, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return out, fmt.Errorf("hydrate: pre-hook %d for %q failed: %w", i, ctx.Source, err)
		}
		if next != nil {
			current = next
		}
	}

	raw, err := json.Marshal(current)
	if err != nil {
		return out, fmt.Errorf("hydrate: encode %q: %w", ctx.Source, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: decode %q: %w", ctx.Source, err)
	}

	for i, hook := range d.post {
		if err := hook(ctx, &out); err != nil {
			var zero T
			return zero, fmt.Errorf("hydrate: post-hook %d for %q failed: %w", i, ctx.Source, err)
		}
	}
	return out, nil
}
