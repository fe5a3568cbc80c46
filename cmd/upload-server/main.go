package main

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/direct-upload/pkg/config"
	"github.com/tendant/direct-upload/pkg/signing"
	"github.com/tendant/direct-upload/pkg/storage"
)

func main() {
	cfg, err := config.LoadServer(config.WithServerEnv())
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	store, err := cfg.BuildBlobStore()
	if err != nil {
		slog.Error("Failed to initialize storage backend", "storage_url", cfg.StorageURL, "err", err)
		os.Exit(1)
	}

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	mountUploadRoutes(server.R, cfg, store)

	slog.Info("Upload server configured",
		"storage_url", cfg.StorageURL,
		"bucket", cfg.Bucket,
		"success_status", cfg.SuccessStatus,
		"policy_ttl", cfg.PolicyTTL,
	)

	server.Run()
}

// mountUploadRoutes registers the signature and upload endpoints
func mountUploadRoutes(r chi.Router, cfg *config.ServerConfig, store storage.BlobStore) {
	handlers := signing.NewHandlers(cfg.BuildSigner(), store,
		signing.WithMaxUploadBytes(cfg.MaxUploadBytes),
		signing.WithHandlersLogger(slog.Default()),
	)
	r.Group(func(r chi.Router) {
		handlers.Mount(r)
	})
}
