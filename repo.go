package shelfd

import (
	"context"
)

// RecordRepo is durable storage for the record collection.
//
// Every mutating operation persists the full collection before returning:
// either the new state is durably written or the prior state remains
// intact. Implementations are not required to serialize concurrent
// mutations; the file-backed store exposes last-writer-wins semantics by
// default (see jsonstore.WithSerializedWrites for the opt-in lock), while
// database backends rely on statement-level atomicity.
//
// All methods accept a context for cancellation and timeout control.
type RecordRepo interface {
	// LoadAll returns the whole collection in insertion order. A backing
	// store that does not exist yet yields an empty slice, not an error.
	// Unparseable backing content yields an error wrapping ErrStoreCorrupt.
	LoadAll(ctx context.Context) ([]CatalogRecord, error)

	// FindByID returns the record with the given id, or an error wrapping
	// ErrNotFound.
	FindByID(ctx context.Context, id string) (CatalogRecord, error)

	// Append persists the collection with the new record appended.
	Append(ctx context.Context, rec CatalogRecord) error

	// Replace locates a record by id, applies the pure transformation
	// update and persists the result. Returns the transformed record, or
	// an error wrapping ErrNotFound when the id is absent.
	Replace(ctx context.Context, id string, update func(CatalogRecord) CatalogRecord) (CatalogRecord, error)

	// Remove deletes a record by id and persists, returning the removed
	// record. Returns an error wrapping ErrNotFound when the id is absent.
	Remove(ctx context.Context, id string) (CatalogRecord, error)
}

// AssetStore manages the stored bytes of uploaded assets.
type AssetStore interface {
	// Store persists the upload under a newly generated unique name,
	// preserving the original filename extension, and returns a reference
	// clients can use to retrieve the asset. It enforces the accepted
	// media-type set (ErrUnsupportedMediaType) and the configured byte
	// ceiling (ErrPayloadTooLarge).
	Store(ctx context.Context, upload Upload) (string, error)

	// Reclaim deletes the bytes behind a reference, best effort. A missing
	// target is not an error and I/O failures are logged, never returned:
	// asset cleanup must not block the record mutation it trails.
	Reclaim(ctx context.Context, ref string)
}
