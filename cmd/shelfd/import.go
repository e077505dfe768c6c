package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sagarc03/shelfd"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk-load records from a JSON file into the configured store",
	Long: `Import reads a JSON array of catalog records and appends each one
to the configured record store. Useful for seeding public records or for
moving a json-backed collection into a database backend.

Records without an id get a fresh one; zero timestamps are set to now.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	var records []shelfd.CatalogRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse import file: %w", err)
	}

	repo, cleanup, err := buildRepo(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build record store: %w", err)
	}
	defer cleanup()

	now := time.Now().UTC()
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.UpdatedAt.IsZero() {
			rec.UpdatedAt = rec.CreatedAt
		}

		if err := repo.Append(ctx, rec); err != nil {
			return fmt.Errorf("import record %s: %w", rec.ID, err)
		}
	}

	slog.Info("import complete", "records", len(records), "backend", cfg.Store.Backend)
	return nil
}
