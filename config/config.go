// Package config loads shelfd configuration from defaults, yaml files,
// SHELFD_-prefixed environment variables and CLI flags, in ascending
// order of precedence, and validates the result.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	shelfdhttp "github.com/sagarc03/shelfd/http"
)

// Config is the root configuration struct for shelfd.
type Config struct {
	Env       string                `mapstructure:"env"`
	Server    ServerConfig          `mapstructure:"server"`
	Store     StoreConfig           `mapstructure:"store"`
	Database  DatabaseConfig        `mapstructure:"database"`
	Assets    AssetsConfig          `mapstructure:"assets"`
	Ownership OwnershipConfig       `mapstructure:"ownership"`
	CORS      shelfdhttp.CORSConfig `mapstructure:"cors"`
	Log       LogConfig             `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	BasePath string `mapstructure:"base_path" validate:"required,startswith=/"`
	// PublicURL is the externally visible base URL, used to build absolute
	// asset URLs in responses. Empty keeps references server-relative.
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=json sqlite postgres"`
	// File is the JSON collection path, used by the json backend.
	File string `mapstructure:"file"`
	// Serialized opts in to a process-wide write lock on the json backend.
	Serialized bool `mapstructure:"serialized"`
}

// DatabaseConfig holds the connection settings for the sql backends.
type DatabaseConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table" validate:"required"`
}

// AssetsConfig holds asset storage configuration.
type AssetsConfig struct {
	Backend      string   `mapstructure:"backend" validate:"required,oneof=disk memory"`
	Dir          string   `mapstructure:"dir"`
	MaxBytes     int64    `mapstructure:"max_bytes" validate:"min=0"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

// OwnershipConfig holds the mutation policy for records without an owner.
type OwnershipConfig struct {
	AllowUnownedMutation bool `mapstructure:"allow_unowned_mutation"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":          "server.port",
	"base-path":     "server.base_path",
	"public-url":    "server.public_url",
	"store-backend": "store.backend",
	"store-file":    "store.file",
	"db-dsn":        "database.dsn",
	"assets-dir":    "assets.dir",
}

// bindFlags binds CLI flags to viper keys with custom name mapping. Only
// explicitly set flags are bound, so unset flags never shadow file or env
// values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.base_path", "/books")
	v.SetDefault("server.public_url", "")

	v.SetDefault("store.backend", "json")
	v.SetDefault("store.file", "data/records.json")
	v.SetDefault("store.serialized", false)

	v.SetDefault("database.dsn", "shelfd.db")
	v.SetDefault("database.table", "catalog_records")

	v.SetDefault("assets.backend", "disk")
	v.SetDefault("assets.dir", "./uploads")
	v.SetDefault("assets.max_bytes", 5<<20)
	v.SetDefault("assets.allowed_types", []string{"image/jpeg", "image/png", "image/gif", "image/webp"})

	v.SetDefault("ownership.allow_unowned_mutation", false)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files >
// defaults.
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	v.SetEnvPrefix("SHELFD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		bindFlags(v, flags)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
