package layercfg

import "context"

// Store persists configurations by name. Load must return an error matching
// fs.ErrNotExist when no configuration of that name exists.
type Store interface {
	Load(ctx context.Context, name string) (*Configuration, error)
	Save(ctx context.Context, cfg *Configuration) error
	Exists(ctx context.Context, name string) (bool, error)
}

// SaveOptions records the caller's answers to the save warnings.
type SaveOptions struct {
	// ConfirmWarnings proceeds past ExcludesImplicitLayer.
	ConfirmWarnings bool
	// Overwrite replaces an existing configuration of the same name.
	Overwrite bool
}
