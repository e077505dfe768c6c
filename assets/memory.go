package assets

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/sagarc03/shelfd"
)

// MemoryStore inlines uploaded bytes into the reference itself as a
// base64 data: URI. Nothing is written anywhere, which makes it the
// simulated-storage backend: useful for demos and tests, unsuitable for
// large assets.
type MemoryStore struct {
	limits Limits
}

func NewMemoryStore(limits Limits) *MemoryStore {
	return &MemoryStore{limits: limits}
}

// Store reads the upload fully and returns a data: URI reference.
func (s *MemoryStore) Store(ctx context.Context, upload shelfd.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}

	if err := s.limits.check(upload); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}

	content := upload.Content
	if s.limits.MaxBytes > 0 {
		content = io.LimitReader(content, s.limits.MaxBytes+1)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("store asset: read: %w", err)
	}

	if s.limits.MaxBytes > 0 && int64(len(data)) > s.limits.MaxBytes {
		return "", fmt.Errorf("store asset: %w", shelfd.ErrPayloadTooLarge)
	}

	ref := "data:" + upload.ContentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return ref, nil
}

// Reclaim is a no-op: the reference owns the bytes, so dropping the record
// drops the asset with it.
func (s *MemoryStore) Reclaim(ctx context.Context, ref string) {}
