package shelfd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CatalogService orchestrates the record store, the asset store and the
// ownership policy to implement the catalog use cases. Each method is a
// single short-lived sequence with no intermediate externally observable
// state; nothing is held across calls.
type CatalogService struct {
	repo           RecordRepo
	assets         AssetStore
	policy         Policy
	cleanupTimeout time.Duration
}

// ServiceConfig holds configuration options for CatalogService.
type ServiceConfig struct {
	Policy Policy
	// CleanupTimeout bounds asset reclaims that run on a background
	// context after the request context may already be gone (default 30s).
	CleanupTimeout time.Duration
}

func NewCatalogService(repo RecordRepo, assets AssetStore, cfg ServiceConfig) (*CatalogService, error) {
	if repo == nil {
		return nil, errors.New("new catalog service: record repo is required")
	}
	if assets == nil {
		return nil, errors.New("new catalog service: asset store is required")
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &CatalogService{
		repo:           repo,
		assets:         assets,
		policy:         cfg.Policy,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// List returns the records visible to identity, annotated with Mine.
func (s *CatalogService) List(ctx context.Context, identity string) ([]RecordView, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return VisibleTo(identity, records), nil
}

// Get returns a single record by id regardless of ownership, with Mine
// derived for the caller.
func (s *CatalogService) Get(ctx context.Context, identity, id string) (RecordView, error) {
	if err := ctx.Err(); err != nil {
		return RecordView{}, fmt.Errorf("get record: %w", err)
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RecordView{}, fmt.Errorf("get record %s: %w", id, err)
	}

	return RecordView{CatalogRecord: rec, Mine: Mine(identity, rec)}, nil
}

// Create validates the fields, stores the asset and appends a new record
// owned by identity (or public when identity is empty).
//
// Validation reports every failing field at once. If appending the record
// fails after the asset was stored, the asset is reclaimed on a background
// context so no orphaned bytes remain.
func (s *CatalogService) Create(ctx context.Context, identity string, fields Fields, upload *Upload) (RecordView, error) {
	if err := ctx.Err(); err != nil {
		return RecordView{}, fmt.Errorf("create record: %w", err)
	}

	title := trimmed(fields.Title)
	author := trimmed(fields.Author)

	var failing []string
	if title == "" {
		failing = append(failing, "title")
	}
	if author == "" {
		failing = append(failing, "author")
	}
	if upload == nil {
		failing = append(failing, "image")
	}
	if len(failing) > 0 {
		return RecordView{}, fmt.Errorf("create record: %w", &ValidationError{Fields: failing})
	}

	ref, err := s.assets.Store(ctx, *upload)
	if err != nil {
		return RecordView{}, fmt.Errorf("create record: %w", err)
	}

	now := time.Now().UTC()
	rec := CatalogRecord{
		ID:        uuid.NewString(),
		Title:     title,
		Author:    author,
		Owner:     identity,
		AssetRef:  ref,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Append(ctx, rec); err != nil {
		s.reclaimDetached(ref)
		return RecordView{}, fmt.Errorf("create record: %w", err)
	}

	return RecordView{CatalogRecord: rec, Mine: identity != ""}, nil
}

// Update merges the supplied fields into an existing record owned by
// identity. When an upload is present the old asset is reclaimed and the
// new one stored; otherwise the asset reference is left untouched.
func (s *CatalogService) Update(ctx context.Context, identity, id string, fields Fields, upload *Upload) (RecordView, error) {
	if err := ctx.Err(); err != nil {
		return RecordView{}, fmt.Errorf("update record: %w", err)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RecordView{}, fmt.Errorf("update record %s: %w", id, err)
	}

	if err := s.policy.Authorize(identity, existing); err != nil {
		return RecordView{}, fmt.Errorf("update record: %w", err)
	}

	var failing []string
	if fields.Title != nil && trimmed(fields.Title) == "" {
		failing = append(failing, "title")
	}
	if fields.Author != nil && trimmed(fields.Author) == "" {
		failing = append(failing, "author")
	}
	if len(failing) > 0 {
		return RecordView{}, fmt.Errorf("update record %s: %w", id, &ValidationError{Fields: failing})
	}

	assetRef := existing.AssetRef
	if upload != nil {
		s.assets.Reclaim(ctx, existing.AssetRef)
		assetRef, err = s.assets.Store(ctx, *upload)
		if err != nil {
			return RecordView{}, fmt.Errorf("update record %s: %w", id, err)
		}
	}

	updated, err := s.repo.Replace(ctx, id, func(rec CatalogRecord) CatalogRecord {
		if fields.Title != nil {
			rec.Title = trimmed(fields.Title)
		}
		if fields.Author != nil {
			rec.Author = trimmed(fields.Author)
		}
		rec.AssetRef = assetRef
		rec.UpdatedAt = time.Now().UTC()
		return rec
	})
	if err != nil {
		if upload != nil {
			s.reclaimDetached(assetRef)
		}
		return RecordView{}, fmt.Errorf("update record %s: %w", id, err)
	}

	return RecordView{CatalogRecord: updated, Mine: Mine(identity, updated)}, nil
}

// Delete removes a record owned by identity and reclaims its asset. The
// reclaim is best effort and never fails the delete.
func (s *CatalogService) Delete(ctx context.Context, identity, id string) (RecordView, error) {
	if err := ctx.Err(); err != nil {
		return RecordView{}, fmt.Errorf("delete record: %w", err)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return RecordView{}, fmt.Errorf("delete record %s: %w", id, err)
	}

	if err := s.policy.Authorize(identity, existing); err != nil {
		return RecordView{}, fmt.Errorf("delete record: %w", err)
	}

	removed, err := s.repo.Remove(ctx, id)
	if err != nil {
		return RecordView{}, fmt.Errorf("delete record %s: %w", id, err)
	}

	s.assets.Reclaim(ctx, removed.AssetRef)

	return RecordView{CatalogRecord: removed, Mine: Mine(identity, removed)}, nil
}

// reclaimDetached reclaims an asset on a fresh context. Used when the
// request context may already be cancelled but the asset must not leak.
func (s *CatalogService) reclaimDetached(ref string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()
	s.assets.Reclaim(ctx, ref)
}
