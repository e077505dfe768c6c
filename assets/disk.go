package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sagarc03/shelfd"
)

// RefPrefix is the reference namespace handed out by DiskStore, matching
// the path under which the HTTP layer serves stored assets.
const RefPrefix = "/uploads/"

// DiskStore keeps uploaded assets as files under a sandboxed directory.
// Filenames are opaque generated strings with the original extension
// preserved; writes are atomic via temp file and rename.
type DiskStore struct {
	root   *os.Root
	limits Limits
}

// NewDiskStore creates a DiskStore rooted at root. The root sandboxes all
// file operations, preventing path traversal.
func NewDiskStore(root *os.Root, limits Limits) *DiskStore {
	return &DiskStore{root: root, limits: limits}
}

// Store persists the upload under a fresh uuid-based name and returns its
// "/uploads/<name>" reference.
func (s *DiskStore) Store(ctx context.Context, upload shelfd.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}

	if err := s.limits.check(upload); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}

	name := newAssetName(upload.Filename)

	tmpName := "." + name + ".tmp"
	t, err := s.root.Create(tmpName)
	if err != nil {
		return "", fmt.Errorf("store asset: create temp file: %w", err)
	}

	success := false
	defer func() {
		_ = t.Close()
		if !success {
			if rmErr := s.root.Remove(tmpName); rmErr != nil {
				slog.Warn("failed to remove temp asset", "err", rmErr)
			}
		}
	}()

	content := upload.Content
	if s.limits.MaxBytes > 0 {
		content = io.LimitReader(content, s.limits.MaxBytes+1)
	}

	written, err := io.Copy(t, content)
	if err != nil {
		return "", fmt.Errorf("store asset: copy: %w", err)
	}

	if s.limits.MaxBytes > 0 && written > s.limits.MaxBytes {
		return "", fmt.Errorf("store asset: %w", shelfd.ErrPayloadTooLarge)
	}

	if err := t.Sync(); err != nil {
		return "", fmt.Errorf("store asset: sync: %w", err)
	}

	if err := s.root.Rename(tmpName, name); err != nil {
		return "", fmt.Errorf("store asset: rename into place: %w", err)
	}

	success = true
	return RefPrefix + name, nil
}

// Reclaim deletes the file behind ref, best effort. Missing files are
// fine; anything else is logged and swallowed so cleanup never blocks the
// record mutation it follows.
func (s *DiskStore) Reclaim(ctx context.Context, ref string) {
	if err := ctx.Err(); err != nil {
		slog.Warn("asset reclaim skipped", "ref", ref, "err", err)
		return
	}

	name, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok || !IsValidName(name) {
		slog.Debug("asset reclaim ignored unmanaged ref", "ref", ref)
		return
	}

	if err := s.root.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to reclaim asset", "ref", ref, "err", err)
	}
}

// Open returns a reader and modification time for a stored asset, for use
// by the static serving handler. Returns shelfd.ErrNotFound for unknown or
// malformed names.
func (s *DiskStore) Open(ctx context.Context, name string) (io.ReadSeekCloser, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("open asset: %w", err)
	}

	if !IsValidName(name) {
		return nil, time.Time{}, fmt.Errorf("open asset %q: %w", name, shelfd.ErrNotFound)
	}

	f, err := s.root.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, time.Time{}, fmt.Errorf("open asset %q: %w", name, shelfd.ErrNotFound)
		}
		return nil, time.Time{}, fmt.Errorf("open asset %q: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, time.Time{}, fmt.Errorf("open asset %q: %w", name, err)
	}

	return f, info.ModTime(), nil
}

// Ref builds the reference for a stored name. Mostly useful in tests.
func Ref(name string) string {
	return path.Join(RefPrefix, name)
}
