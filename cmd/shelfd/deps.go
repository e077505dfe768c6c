package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sagarc03/shelfd"
	"github.com/sagarc03/shelfd/assets"
	"github.com/sagarc03/shelfd/config"
	"github.com/sagarc03/shelfd/database"
	shelfdhttp "github.com/sagarc03/shelfd/http"
	"github.com/sagarc03/shelfd/jsonstore"
)

// buildRepo constructs the configured record repo. The returned cleanup
// function releases whatever the backend holds open.
func buildRepo(ctx context.Context, cfg *config.Config) (shelfd.RecordRepo, func(), error) {
	switch cfg.Store.Backend {
	case "json":
		dir := filepath.Dir(cfg.Store.File)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create store directory: %w", err)
		}

		root, err := os.OpenRoot(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open store root: %w", err)
		}

		var opts []jsonstore.Option
		if cfg.Store.Serialized {
			opts = append(opts, jsonstore.WithSerializedWrites())
		}

		repo := jsonstore.New(root, filepath.Base(cfg.Store.File), opts...)
		return repo, func() { _ = root.Close() }, nil

	case "sqlite", "postgres":
		return database.Connect(ctx, database.Config{
			Backend: cfg.Store.Backend,
			DSN:     cfg.Database.DSN,
			Table:   cfg.Database.Table,
		})

	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// buildAssets constructs the configured asset store. The opener is nil for
// backends that keep asset bytes inline in the record reference.
func buildAssets(cfg *config.Config) (shelfd.AssetStore, shelfdhttp.AssetOpener, func(), error) {
	limits := assets.Limits{
		MaxBytes:     cfg.Assets.MaxBytes,
		AllowedTypes: cfg.Assets.AllowedTypes,
	}

	switch cfg.Assets.Backend {
	case "disk":
		if err := os.MkdirAll(cfg.Assets.Dir, 0o750); err != nil {
			return nil, nil, nil, fmt.Errorf("create assets directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Assets.Dir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open assets root: %w", err)
		}

		store := assets.NewDiskStore(root, limits)
		return store, store, func() { _ = root.Close() }, nil

	case "memory":
		return assets.NewMemoryStore(limits), nil, func() {}, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported assets backend: %s", cfg.Assets.Backend)
	}
}
