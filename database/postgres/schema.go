package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type columnInfo struct {
	name       string
	dataType   string
	isNullable bool
}

// recordsTableSchema is the minimum shape the records table must have.
// Extra columns are fine.
var recordsTableSchema = map[string]columnInfo{
	"id":         {"id", "text", false},
	"title":      {"title", "text", false},
	"author":     {"author", "text", false},
	"owner":      {"owner", "text", false},
	"asset_ref":  {"asset_ref", "text", false},
	"created_at": {"created_at", "timestamp with time zone", false},
	"updated_at": {"updated_at", "timestamp with time zone", false},
}

// ValidateSchema checks that the records table exists and carries the
// expected columns. Intended for deployments that manage the table
// themselves instead of relying on Migrate.
func ValidateSchema(ctx context.Context, pool *pgxpool.Pool, table string) error {
	exists, err := tableExists(ctx, pool, table)
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	if !exists {
		return fmt.Errorf("validate schema: table %s does not exist", table)
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := pool.Query(ctx, query, table)
	if err != nil {
		return fmt.Errorf("validate schema: query columns: %w", err)
	}
	defer rows.Close()

	actualColumns := make(map[string]columnInfo)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("validate schema: scan column: %w", err)
		}
		actualColumns[name] = columnInfo{
			name:       name,
			dataType:   strings.ToLower(dataType),
			isNullable: nullable == "YES",
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("validate schema: rows error: %w", err)
	}

	var missing []string
	var mismatched []string

	for colName, expected := range recordsTableSchema {
		actual, ok := actualColumns[colName]
		if !ok {
			missing = append(missing, colName)
			continue
		}

		if actual.dataType != expected.dataType {
			mismatched = append(mismatched,
				fmt.Sprintf("%s: expected %s, got %s", colName, expected.dataType, actual.dataType))
		}

		if actual.isNullable != expected.isNullable {
			mismatched = append(mismatched,
				fmt.Sprintf("%s: expected nullable=%v, got nullable=%v", colName, expected.isNullable, actual.isNullable))
		}
	}

	if len(missing) > 0 || len(mismatched) > 0 {
		var errMsg strings.Builder
		fmt.Fprintf(&errMsg, "table %s schema validation failed:\n", table)

		if len(missing) > 0 {
			fmt.Fprintf(&errMsg, "  missing columns: %s\n", strings.Join(missing, ", "))
		}

		if len(mismatched) > 0 {
			fmt.Fprintf(&errMsg, "  mismatched columns:\n")
			for _, msg := range mismatched {
				fmt.Fprintf(&errMsg, "    - %s\n", msg)
			}
		}

		return errors.New(errMsg.String())
	}

	return nil
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, table string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`
	if err := pool.QueryRow(ctx, query, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}
