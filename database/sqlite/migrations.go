package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// Migrate creates the records table and its indexes if they do not exist.
// The table name must be validated by the caller.
func Migrate(ctx context.Context, db *sql.DB, table string) error {
	quoted := quoteIdentifier(table)
	ownerIndex := quoteIdentifier(fmt.Sprintf("idx_%s_owner", table))

	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				author TEXT NOT NULL,
				owner TEXT NOT NULL DEFAULT '',
				asset_ref TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`, quoted),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (owner)`, ownerIndex, quoted),
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate records table: %w", err)
		}
	}

	return nil
}
