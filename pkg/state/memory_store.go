package state

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"sync"
	"time"

	layercfg "github.com/goliatone/go-layercfg"
)

type memoryRecord struct {
	data []byte
	meta Meta
}

// MemoryStore keeps encoded configurations in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(ctx context.Context, name string) (*layercfg.Configuration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	record, ok := s.records[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &layercfg.IOError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return layercfg.UnmarshalConfiguration(record.data, name)
}

func (s *MemoryStore) Save(ctx context.Context, cfg *layercfg.Configuration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("state: save: nil configuration")
	}
	if err := checkName(cfg.Name); err != nil {
		return err
	}
	data, err := layercfg.MarshalConfiguration(cfg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[cfg.Name] = memoryRecord{data: data, meta: newMeta(data, s.now())}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[name]
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.records)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[name]; !ok {
		return &layercfg.IOError{Op: "delete", Path: name, Err: fs.ErrNotExist}
	}
	delete(s.records, name)
	return nil
}

func (s *MemoryStore) Meta(ctx context.Context, name string) (Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[name]
	return record.meta, ok, nil
}

// Bytes returns the encoded form of a stored configuration.
func (s *MemoryStore) Bytes(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(record.data), true
}
