package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	layercfg "github.com/goliatone/go-layercfg"
)

// FileStore keeps one configuration per file in a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	metas map[string]Meta
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileLogger logs writes and deletes.
func WithFileLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for Meta.UpdatedAt.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		dir:    dir,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		metas:  map[string]Meta{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file a configuration named name is stored in.
func (s *FileStore) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+layercfg.ConfigurationExt), nil
}

func (s *FileStore) Load(ctx context.Context, name string) (*layercfg.Configuration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &layercfg.IOError{Op: "read", Path: path, Err: err}
	}
	return layercfg.UnmarshalConfiguration(data, path)
}

// Save writes cfg to a temporary file in the store directory and renames it
// over the target.
func (s *FileStore) Save(ctx context.Context, cfg *layercfg.Configuration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("state: save: nil configuration")
	}
	path, err := s.Path(cfg.Name)
	if err != nil {
		return err
	}
	data, err := layercfg.MarshalConfiguration(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &layercfg.IOError{Op: "mkdir", Path: s.dir, Err: err}
	}
	if err := writeAtomic(path, data); err != nil {
		return &layercfg.IOError{Op: "write", Path: path, Err: err}
	}

	meta := newMeta(data, s.now())
	s.mu.Lock()
	s.metas[cfg.Name] = meta
	s.mu.Unlock()
	s.logger.Debug("configuration written",
		slog.String("path", path),
		slog.String("snapshot_id", meta.SnapshotID))
	return nil
}

func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.Path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &layercfg.IOError{Op: "stat", Path: path, Err: err}
	}
}

// List returns the names of stored configurations, sorted.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &layercfg.IOError{Op: "list", Path: s.dir, Err: err}
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != layercfg.ConfigurationExt {
			continue
		}
		names = append(names, strings.TrimSuffix(name, layercfg.ConfigurationExt))
	}
	slices.Sort(names)
	return names, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return &layercfg.IOError{Op: "delete", Path: path, Err: err}
	}
	s.mu.Lock()
	delete(s.metas, name)
	s.mu.Unlock()
	s.logger.Debug("configuration deleted", slog.String("path", path))
	return nil
}

// Meta returns the metadata recorded by the last save in this process. For
// files written elsewhere the ETag is computed from the content and UpdatedAt
// is the modification time.
func (s *FileStore) Meta(ctx context.Context, name string) (Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, false, err
	}
	s.mu.Lock()
	meta, ok := s.metas[name]
	s.mu.Unlock()
	if ok {
		return meta, true, nil
	}
	path, err := s.Path(name)
	if err != nil {
		return Meta{}, false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Meta{}, false, nil
	}
	if err != nil {
		return Meta{}, false, &layercfg.IOError{Op: "stat", Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, false, &layercfg.IOError{Op: "read", Path: path, Err: err}
	}
	return Meta{ETag: etag(data), UpdatedAt: info.ModTime().UTC()}, true, nil
}

func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("state: %w", layercfg.ErrBlankName)
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return fmt.Errorf("state: invalid configuration name %q", name)
	}
	return nil
}
