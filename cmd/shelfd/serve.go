package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/shelfd"
	shelfdhttp "github.com/sagarc03/shelfd/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the shelfd HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 3000, "HTTP server port")
	serveCmd.Flags().String("base-path", "/books", "collection base path")
	serveCmd.Flags().String("public-url", "", "externally visible base URL for asset links")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	repo, repoCleanup, err := buildRepo(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build record store: %w", err)
	}
	defer repoCleanup()
	slog.Info("record store ready", "backend", cfg.Store.Backend)

	assetStore, assetOpener, assetsCleanup, err := buildAssets(cfg)
	if err != nil {
		return fmt.Errorf("build asset store: %w", err)
	}
	defer assetsCleanup()
	slog.Info("asset store ready", "backend", cfg.Assets.Backend)

	service, err := shelfd.NewCatalogService(repo, assetStore, shelfd.ServiceConfig{
		Policy: shelfd.Policy{AllowUnownedMutation: cfg.Ownership.AllowUnownedMutation},
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	handlerConfig := shelfdhttp.HandlerConfig{
		BasePath:       cfg.Server.BasePath,
		PublicURL:      cfg.Server.PublicURL,
		MaxUploadBytes: cfg.Assets.MaxBytes,
		CORS:           cfg.CORS,
	}

	handler := shelfdhttp.NewHandler(&handlerConfig, service, assetOpener)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "base_path", cfg.Server.BasePath)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
