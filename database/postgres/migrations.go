package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the records table and its indexes if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool, table string) error {
	quotedTable := pgx.Identifier{table}.Sanitize()
	ownerIndex := pgx.Identifier{fmt.Sprintf("idx_%s_owner", table)}.Sanitize()

	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			owner TEXT NOT NULL DEFAULT '',
			asset_ref TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS %s ON %s (owner);
	`, quotedTable, ownerIndex, quotedTable)

	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create records table: %w", err)
	}

	return nil
}

// DropTable removes the records table. Intended for tests and tooling.
func DropTable(ctx context.Context, pool *pgxpool.Pool, table string) error {
	quotedTable := pgx.Identifier{table}.Sanitize()

	if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quotedTable)); err != nil {
		return fmt.Errorf("drop records table: %w", err)
	}

	return nil
}
