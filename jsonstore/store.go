// Package jsonstore persists the catalog as a single JSON document holding
// an array of records, rewritten wholesale on every mutation. Writes go to
// a temp file first and are renamed into place, so readers never observe a
// partial document.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sagarc03/shelfd"
)

// Store is a file-backed shelfd.RecordRepo.
//
// Mutations follow a read-modify-write cycle over the whole collection.
// By default concurrent mutations are not serialized and the last writer
// wins, matching the reference behavior; WithSerializedWrites adds a
// process-wide lock for deployments that want neither lost updates nor an
// external database.
type Store struct {
	root *os.Root
	name string
	mu   *sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithSerializedWrites serializes all mutating operations behind a mutex.
// Reads are unaffected.
func WithSerializedWrites() Option {
	return func(s *Store) {
		s.mu = &sync.Mutex{}
	}
}

// New creates a Store persisting to the named file inside root. The root
// provides sandboxed file operations; the file does not need to exist yet.
func New(root *os.Root, name string, opts ...Option) *Store {
	s := &Store{root: root, name: name}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// LoadAll reads the whole collection. A missing file yields an empty
// slice; unparseable content yields an error wrapping shelfd.ErrStoreCorrupt.
func (s *Store) LoadAll(ctx context.Context) ([]shelfd.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load()
}

func (s *Store) load() ([]shelfd.CatalogRecord, error) {
	f, err := s.root.Open(s.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []shelfd.CatalogRecord{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", s.name, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}

	if len(data) == 0 {
		return []shelfd.CatalogRecord{}, nil
	}

	var records []shelfd.CatalogRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %v: %w", s.name, err, shelfd.ErrStoreCorrupt)
	}

	return records, nil
}

// persist atomically replaces the backing file with the given collection,
// using a temp file and rename so a crash mid-write leaves the prior state
// intact.
func (s *Store) persist(records []shelfd.CatalogRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	tmpName := fmt.Sprintf(".t%s", uuid.New().String())
	t, err := s.root.Create(tmpName)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// On success the file is already closed and renamed away; only failed
	// attempts leave anything to clean up.
	success := false
	defer func() {
		if success {
			return
		}
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close temp file", "err", closeErr)
		}
		if rmErr := s.root.Remove(tmpName); rmErr != nil {
			slog.Warn("failed to remove temp file", "err", rmErr)
		}
	}()

	if _, err := t.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := t.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := t.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := s.root.Rename(tmpName, s.name); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}

	success = true
	return nil
}

// FindByID returns the record with the given id.
func (s *Store) FindByID(ctx context.Context, id string) (shelfd.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return shelfd.CatalogRecord{}, err
	}

	records, err := s.load()
	if err != nil {
		return shelfd.CatalogRecord{}, err
	}

	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}

	return shelfd.CatalogRecord{}, shelfd.ErrNotFound
}

// Append persists the collection with rec appended.
func (s *Store) Append(ctx context.Context, rec shelfd.CatalogRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer s.lock()()

	records, err := s.load()
	if err != nil {
		return err
	}

	return s.persist(append(records, rec))
}

// Replace applies update to the record with the given id and persists.
func (s *Store) Replace(ctx context.Context, id string, update func(shelfd.CatalogRecord) shelfd.CatalogRecord) (shelfd.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return shelfd.CatalogRecord{}, err
	}

	defer s.lock()()

	records, err := s.load()
	if err != nil {
		return shelfd.CatalogRecord{}, err
	}

	for i, rec := range records {
		if rec.ID != id {
			continue
		}

		records[i] = update(rec)
		if err := s.persist(records); err != nil {
			return shelfd.CatalogRecord{}, err
		}
		return records[i], nil
	}

	return shelfd.CatalogRecord{}, shelfd.ErrNotFound
}

// Remove deletes the record with the given id and persists, returning the
// removed record.
func (s *Store) Remove(ctx context.Context, id string) (shelfd.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return shelfd.CatalogRecord{}, err
	}

	defer s.lock()()

	records, err := s.load()
	if err != nil {
		return shelfd.CatalogRecord{}, err
	}

	for i, rec := range records {
		if rec.ID != id {
			continue
		}

		remaining := append(records[:i:i], records[i+1:]...)
		if err := s.persist(remaining); err != nil {
			return shelfd.CatalogRecord{}, err
		}
		return rec, nil
	}

	return shelfd.CatalogRecord{}, shelfd.ErrNotFound
}
