// Package sqlite implements the record repo interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sagarc03/shelfd"
)

// Repo is a shelfd.RecordRepo backed by a SQLite table. Timestamps are
// stored as RFC 3339 strings in UTC.
type Repo struct {
	db        *sql.DB
	tableName string
}

// NewRepo creates a Repo over db. The table name must already be
// validated; it is interpolated into every query.
func NewRepo(db *sql.DB, tableName string) *Repo {
	return &Repo{db: db, tableName: tableName}
}

func scanRecord(scan func(dest ...any) error) (shelfd.CatalogRecord, error) {
	var rec shelfd.CatalogRecord
	var createdAt, updatedAt string

	if err := scan(&rec.ID, &rec.Title, &rec.Author, &rec.Owner, &rec.AssetRef, &createdAt, &updatedAt); err != nil {
		return shelfd.CatalogRecord{}, err
	}

	var err error
	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("parse created_at: %w", err)
	}

	rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return rec, nil
}

func (r *Repo) LoadAll(ctx context.Context) ([]shelfd.CatalogRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, title, author, owner, asset_ref, created_at, updated_at
		FROM %s
		ORDER BY created_at, id`, r.tableName)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load all: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]shelfd.CatalogRecord, 0)
	for rows.Next() {
		rec, scanErr := scanRecord(rows.Scan)
		if scanErr != nil {
			return nil, fmt.Errorf("load all: %w", scanErr)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load all: %w", err)
	}

	return records, nil
}

func (r *Repo) FindByID(ctx context.Context, id string) (shelfd.CatalogRecord, error) {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`SELECT id, title, author, owner, asset_ref, created_at, updated_at
		FROM %s
		WHERE id = ?`, r.tableName)

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shelfd.CatalogRecord{}, shelfd.ErrNotFound
		}
		return shelfd.CatalogRecord{}, fmt.Errorf("find by id: %w", err)
	}

	return rec, nil
}

func (r *Repo) Append(ctx context.Context, rec shelfd.CatalogRecord) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (id, title, author, owner, asset_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, r.tableName)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Title, rec.Author, rec.Owner, rec.AssetRef,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}

	return nil
}

func (r *Repo) Replace(ctx context.Context, id string, update func(shelfd.CatalogRecord) shelfd.CatalogRecord) (shelfd.CatalogRecord, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return shelfd.CatalogRecord{}, err
	}

	updated := update(existing)
	updated.ID = existing.ID

	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`UPDATE %s
		SET title = ?, author = ?, owner = ?, asset_ref = ?, updated_at = ?
		WHERE id = ?`, r.tableName)

	result, err := r.db.ExecContext(ctx, query,
		updated.Title, updated.Author, updated.Owner, updated.AssetRef,
		updated.UpdatedAt.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("replace: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("replace: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shelfd.CatalogRecord{}, fmt.Errorf("replace: %w", shelfd.ErrNotFound)
	}

	return updated, nil
}

func (r *Repo) Remove(ctx context.Context, id string) (shelfd.CatalogRecord, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return shelfd.CatalogRecord{}, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.tableName) //nolint:gosec // table name is validated

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("remove: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("remove: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shelfd.CatalogRecord{}, fmt.Errorf("remove: %w", shelfd.ErrNotFound)
	}

	return existing, nil
}
