// Package database connects the catalog to a SQL backend. It picks the
// driver from configuration, runs migrations and returns a ready
// shelfd.RecordRepo, so callers never touch driver-specific types.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/shelfd"
	"github.com/sagarc03/shelfd/database/postgres"
	"github.com/sagarc03/shelfd/database/sqlite"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config holds the configuration for connecting to a record backend.
type Config struct {
	// Backend is the database type: "sqlite" or "postgres".
	Backend string
	// DSN is the data source name (connection string).
	DSN string
	// Table is the name of the records table.
	Table string
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks that a table name is lowercase alphanumeric with
// underscores and at most 63 chars, so it is safe to interpolate into SQL.
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks the config before any connection is attempted.
func (c Config) Validate() error {
	if c.Table == "" {
		return errors.New("validate database config: table name cannot be empty")
	}
	if !IsValidTableName(c.Table) {
		return fmt.Errorf("validate database config: invalid table name: %s", c.Table)
	}
	return nil
}

// Connect establishes a connection to the configured backend, runs
// migrations and returns a RecordRepo. The returned cleanup function
// closes the connection.
func Connect(ctx context.Context, cfg Config) (shelfd.RecordRepo, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	switch cfg.Backend {
	case "sqlite":
		return connectSQLite(ctx, cfg.DSN, cfg.Table)
	case "postgres":
		return connectPostgres(ctx, cfg.DSN, cfg.Table)
	default:
		return nil, nil, fmt.Errorf("unsupported database backend: %s", cfg.Backend)
	}
}

func connectSQLite(ctx context.Context, dsn, table string) (shelfd.RecordRepo, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = sqlite.Migrate(ctx, db, table); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	repo := sqlite.NewRepo(db, table)

	cleanup := func() {
		_ = db.Close()
	}

	return repo, cleanup, nil
}

func connectPostgres(ctx context.Context, dsn, table string) (shelfd.RecordRepo, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = postgres.Migrate(ctx, pool, table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	// Migrate only creates what is missing, so a pre-existing table with an
	// incompatible shape surfaces here instead of as scan errors later.
	if err = postgres.ValidateSchema(ctx, pool, table); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	repo := postgres.NewRepo(pool, table)

	return repo, pool.Close, nil
}
