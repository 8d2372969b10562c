package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"

	layercfg "github.com/goliatone/go-layercfg"
)

var ErrETagMismatch = errors.New("state: etag mismatch")

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store is a layercfg.Store that also lists, deletes and reports metadata.
type Store interface {
	layercfg.Store
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Meta(ctx context.Context, name string) (Meta, bool, error)
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

func newMeta(data []byte, now time.Time) Meta {
	return Meta{
		SnapshotID: uuid.NewString(),
		ETag:       etag(data),
		UpdatedAt:  now.UTC(),
	}
}

func etag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
