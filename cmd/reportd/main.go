// Command reportd runs the asynchronous report-generation service: an
// HTTP API in front of a durable, priority-queued job system with a
// fixed pool of render workers.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/harborview/reportd/internal/api"
	"github.com/harborview/reportd/internal/config"
	"github.com/harborview/reportd/internal/job"
	"github.com/harborview/reportd/internal/platform/logger"
	"github.com/harborview/reportd/internal/platform/postgres"
	"github.com/harborview/reportd/internal/platform/redisstore"
	"github.com/harborview/reportd/internal/render"
	"github.com/harborview/reportd/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := jobStore.Close(); cerr != nil {
			log.Error("failed to close job store", "error", cerr)
		}
	}()

	renderer, err := render.NewLocalRenderer(cfg.Render.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to set up renderer: %w", err)
	}

	jobs := job.NewService(job.Config{
		WorkerCount:        cfg.Jobs.WorkerCount,
		MaxConcurrentJobs:  cfg.Jobs.MaxConcurrentJobs,
		MaxQueueSize:       cfg.Jobs.MaxQueueSize,
		MaxRetries:         cfg.Jobs.MaxRetries,
		RetryPriorityBoost: cfg.Jobs.RetryPriorityBoost,
		SchedulerTick:      cfg.Jobs.SchedulerTick(),
	}, jobStore, renderer, log)

	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job service: %w", err)
	}
	defer jobs.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(jobs, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case serr := <-errCh:
		return fmt.Errorf("http server failed: %w", serr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		return fmt.Errorf("http server shutdown failed: %w", serr)
	}
	return nil
}

// openStore builds the persistence store selected by configuration.
func openStore(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (job.JobStore, error) {
	switch cfg.Driver {
	case "redis":
		s, err := redisstore.New(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("using redis job store", "addr", cfg.RedisAddr)
		return s, nil

	case "postgres":
		db, err := sql.Open("pgx", cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		s := postgres.New(db)
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		log.Info("using postgres job store")
		return s, nil

	case "memory":
		log.Warn("using in-memory job store, queue will not survive restarts")
		return store.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
