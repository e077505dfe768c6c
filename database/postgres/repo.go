// Package postgres implements the record repo interface using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sagarc03/shelfd"
)

// Repo is a shelfd.RecordRepo backed by a PostgreSQL table.
type Repo struct {
	pool      *pgxpool.Pool
	tableName string
}

// NewRepo creates a Repo over pool. The table name must already be
// validated; it is interpolated into every query.
func NewRepo(pool *pgxpool.Pool, tableName string) *Repo {
	return &Repo{pool: pool, tableName: tableName}
}

// Ping verifies database connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repo) LoadAll(ctx context.Context) ([]shelfd.CatalogRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, title, author, owner, asset_ref, created_at, updated_at
		FROM %s
		ORDER BY created_at, id
	`, r.tableName)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("load all: %w", err)
	}
	defer rows.Close()

	records := make([]shelfd.CatalogRecord, 0)
	for rows.Next() {
		var rec shelfd.CatalogRecord
		if scanErr := rows.Scan(&rec.ID, &rec.Title, &rec.Author, &rec.Owner, &rec.AssetRef, &rec.CreatedAt, &rec.UpdatedAt); scanErr != nil {
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
	query := fmt.Sprintf(`
		SELECT id, title, author, owner, asset_ref, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tableName)

	var rec shelfd.CatalogRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.Title, &rec.Author, &rec.Owner, &rec.AssetRef, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shelfd.CatalogRecord{}, shelfd.ErrNotFound
		}
		return shelfd.CatalogRecord{}, fmt.Errorf("find by id: %w", err)
	}

	return rec, nil
}

func (r *Repo) Append(ctx context.Context, rec shelfd.CatalogRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, author, owner, asset_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tableName)

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.Title, rec.Author, rec.Owner, rec.AssetRef, rec.CreatedAt, rec.UpdatedAt,
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

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, author = $2, owner = $3, asset_ref = $4, updated_at = $5
		WHERE id = $6
	`, r.tableName)

	result, err := r.pool.Exec(ctx, query,
		updated.Title, updated.Author, updated.Owner, updated.AssetRef, updated.UpdatedAt, id,
	)
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("replace: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shelfd.CatalogRecord{}, fmt.Errorf("replace: %w", shelfd.ErrNotFound)
	}

	return updated, nil
}

func (r *Repo) Remove(ctx context.Context, id string) (shelfd.CatalogRecord, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return shelfd.CatalogRecord{}, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tableName)

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return shelfd.CatalogRecord{}, fmt.Errorf("remove: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shelfd.CatalogRecord{}, fmt.Errorf("remove: %w", shelfd.ErrNotFound)
	}

	return existing, nil
}
