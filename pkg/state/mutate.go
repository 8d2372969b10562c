package state

import (
	"context"
	"fmt"

	layercfg "github.com/goliatone/go-layercfg"
)

// Mutator edits a configuration in place.
type Mutator func(*layercfg.Configuration) error

// Mutate loads name, applies fn and saves the result. When etag is not empty
// it must match the stored ETag. A result that fails the blocking save checks
// is not written. The Meta of the new snapshot is returned.
func Mutate(ctx context.Context, store Store, name, etag string, fn Mutator) (Meta, error) {
	if store == nil {
		return Meta{}, fmt.Errorf("state: store is required")
	}
	if fn == nil {
		return Meta{}, fmt.Errorf("state: mutator is required")
	}

	current, ok, err := store.Meta(ctx, name)
	if err != nil {
		return Meta{}, fmt.Errorf("state: meta %q: %w", name, err)
	}
	if etag != "" && ok && current.ETag != etag {
		return current, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, etag, current.ETag)
	}

	cfg, err := store.Load(ctx, name)
	if err != nil {
		return current, fmt.Errorf("state: load %q: %w", name, err)
	}
	if err := fn(cfg); err != nil {
		return current, err
	}
	if cfg.Name != name {
		return current, fmt.Errorf("state: mutator renamed %q to %q", name, cfg.Name)
	}
	if result := layercfg.Validate(cfg, nil); result.Blocking() {
		return current, result.Err()
	}
	if err := store.Save(ctx, cfg); err != nil {
		return current, fmt.Errorf("state: save %q: %w", name, err)
	}

	saved, _, err := store.Meta(ctx, name)
	if err != nil {
		return Meta{}, fmt.Errorf("state: meta %q: %w", name, err)
	}
	return saved, nil
}
