package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-study/internal/ai"
	"github.com/p-n-ai/pai-study/internal/api"
	"github.com/p-n-ai/pai-study/internal/courses"
	"github.com/p-n-ai/pai-study/internal/ingest"
	"github.com/p-n-ai/pai-study/internal/library"
	"github.com/p-n-ai/pai-study/internal/platform/cache"
	"github.com/p-n-ai/pai-study/internal/platform/config"
	"github.com/p-n-ai/pai-study/internal/platform/database"
	"github.com/p-n-ai/pai-study/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	st := store.New(newBackend(cfg))
	checks := []api.Check{{Name: "store", Fn: st.HealthCheck}}

	var publisher courses.Publisher
	if cfg.Cache.Enabled {
		rc, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Warn("snapshot publishing disabled", "error", err)
		} else {
			defer rc.Close()
			publisher = rc
			checks = append(checks, api.Check{Name: "cache", Fn: rc.HealthCheck})
		}
	}

	catalog := courses.New(courses.Config{
		Store:     st,
		Publisher: publisher,
		Channel:   cfg.Cache.Channel,
	})
	if err := catalog.Init(ctx); err != nil {
		slog.Warn("course store unavailable, serving from memory", "driver", cfg.Store.Driver, "error", err)
	}

	if cfg.LibraryPath != "" {
		seedLibrary(ctx, catalog, cfg.LibraryPath)
	}

	handler := api.NewRouter(api.Config{
		Catalog:        catalog,
		Ingester:       ingest.NewIngester(catalog, nil),
		ReadyChecks:    checks,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // document ingestion waits on the completion backend
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Let background course writes land before the store goes away.
	catalog.Wait()
	if err := st.Close(); err != nil {
		slog.Error("closing store", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newBackend picks the durable backend for the configured driver.
func newBackend(cfg *config.Config) store.Backend {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		return store.NewPostgresBackend(database.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
	case config.DriverMemory:
		return store.NewMemoryBackend()
	default:
		return store.NewSQLiteBackend(cfg.Store.Path)
	}
}

// newGenerator returns the question generator for the configured completion
// backends, or nil when none is enabled.
func newGenerator(ctx context.Context, cfg config.AIConfig) *ingest.Generator {
	if !cfg.Enabled() {
		slog.Info("document ingestion disabled, no completion backend configured")
		return nil
	}

	router := ai.NewRouter()
	if cfg.Ollama.Enabled {
		router.Register("ollama", ai.NewOllamaProvider(cfg.Ollama.URL, ai.WithOllamaModel(cfg.Model)))
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := router.HealthCheck(checkCtx); err != nil {
		slog.Warn("completion backend not reachable yet", "error", err)
	}
	return ingest.NewGenerator(router, cfg.Model)
}

func seedLibrary(ctx context.Context, catalog *courses.Cache, dir string) {
	loader, err := library.NewLoader(dir)
	if err != nil {
		slog.Warn("course library not loaded", "dir", dir, "error", err)
		return
	}
	if _, err := library.Seed(ctx, catalog, loader.Entries()); err != nil {
		slog.Warn("some library courses were not seeded", "error", err)
	}
}
