package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/shelfd/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "shelfd",
	Short:   "Ownership-aware catalog server",
	Long: `Shelfd is a small catalog server: CRUD over records with image
uploads, partitioned by an opaque caller identity. Records live in a JSON
file or a SQL database; uploaded images on disk or inline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
			files = append(files, configFile)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Env, cfg.Log.Level)
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("store-backend", "", "record store backend: json, sqlite, postgres (env: SHELFD_STORE_BACKEND)")
	rootCmd.PersistentFlags().String("store-file", "", "json collection path (env: SHELFD_STORE_FILE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: SHELFD_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("assets-dir", "", "uploaded asset directory (env: SHELFD_ASSETS_DIR)")
}

// The loaded config rides on the command context so subcommands never
// re-parse flags or files themselves.
type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not loaded; missing PersistentPreRunE?")
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
