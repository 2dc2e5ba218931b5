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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/content-depot/pkg/contentdepot"
	"github.com/tendant/content-depot/pkg/contentdepot/api"
	"github.com/tendant/content-depot/pkg/contentdepot/config"
)

func main() {
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "error", err)
		os.Exit(1)
	}

	if serverConfig.DatabaseType == "postgres" {
		if err := config.PingPostgres(serverConfig.DatabaseURL, serverConfig.DBSchema); err != nil {
			slog.Error("Failed to reach database", "error", err)
			os.Exit(1)
		}
	}

	svc, err := serverConfig.BuildService()
	if err != nil {
		slog.Error("Failed to build service", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", serverConfig.Port),
		Handler: routes(svc, serverConfig),
	}

	go func() {
		slog.Info("Content depot starting",
			"port", serverConfig.Port,
			"environment", serverConfig.Environment,
			"database", serverConfig.DatabaseType,
			"default_storage", serverConfig.DefaultStorageBackend)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}

func routes(svc contentdepot.Service, serverConfig *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "environment": %q}`, serverConfig.Environment)
	})

	contentHandler := api.NewContentHandler(svc)
	publishHandler := api.NewPublishHandler(svc)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/repositories", api.NewRepositoryHandler(svc).Routes())
		r.Mount("/artifacts", contentHandler.ArtifactRoutes())
		r.Mount("/units", contentHandler.UnitRoutes())
		r.Mount("/publications", publishHandler.PublicationRoutes())
		r.Mount("/distributions", publishHandler.DistributionRoutes())
	})

	serveHandler := api.NewServeHandler(svc)
	// Presigned redirects only make sense when blobs live in S3.
	serveHandler.RedirectDownloads = serverConfig.DefaultStorageBackend == "s3"
	r.Mount("/content", serveHandler.Routes())

	return r
}
