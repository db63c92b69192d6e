package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/garnizeh/interventions/api"
	dbfs "github.com/garnizeh/interventions/db"
	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/internal/config"
	"github.com/garnizeh/interventions/internal/db"
	"github.com/garnizeh/interventions/internal/jobs"
	"github.com/garnizeh/interventions/internal/repository/sqlite"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting intervention manager", slog.String("version", version), slog.String("build_time", buildTime))
	if cfg.SessionSecret == config.InsecureSessionSecret {
		logger.Warn("using the built-in session secret; set IM_SESSION_SECRET outside development")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("close database", slog.Any("err", err))
		}
	}()

	if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	repo := sqlite.New(database, logger)
	sessions := auth.NewManager(repo, repo, cfg.SessionSecret, cfg.SessionDuration, logger)

	handler, err := api.SetupRoutes(cfg, version, buildTime, database, sessions)
	if err != nil {
		return err
	}

	scheduler := jobs.NewScheduler(logger, jobs.SessionSweep(sessions, cfg.SweepInterval))
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
