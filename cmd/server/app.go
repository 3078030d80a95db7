package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yy0691/AI-Videos-Play/internal/config"
	"github.com/yy0691/AI-Videos-Play/internal/platform/ffmpeg"
	"github.com/yy0691/AI-Videos-Play/internal/platform/gemini"
	"github.com/yy0691/AI-Videos-Play/internal/platform/objstore"
	"github.com/yy0691/AI-Videos-Play/internal/platform/postgres"
	"github.com/yy0691/AI-Videos-Play/internal/platform/remote"
	"github.com/yy0691/AI-Videos-Play/internal/scheduler"
	"github.com/yy0691/AI-Videos-Play/internal/service"
	"github.com/yy0691/AI-Videos-Play/internal/service/auth"
	"github.com/yy0691/AI-Videos-Play/internal/syncqueue"
	"github.com/yy0691/AI-Videos-Play/internal/transport"
)

const shutdownTimeout = 15 * time.Second

// application holds the wired dependency graph.
type application struct {
	config *config.Config
	logger *slog.Logger

	db       *sql.DB
	videos   *postgres.VideoStore
	sched    *scheduler.Scheduler
	queue    *syncqueue.Queue
	sessions *auth.SessionService
	analyses *service.AnalysisService
}

// syncOracle combines the remote client's connectivity probe with the
// session service's principal lookup into the queue's oracle.
type syncOracle struct {
	remote   *remote.Client
	sessions *auth.SessionService
}

func (o *syncOracle) Online(ctx context.Context) bool {
	return o.remote.Online(ctx)
}

func (o *syncOracle) Principal(ctx context.Context) uuid.UUID {
	return o.sessions.Principal(ctx)
}

// newApplication wires every component from configuration.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	videoStore := postgres.NewVideoStore(db, log)
	analysisStore := postgres.NewAnalysisStore(db, log)

	sessions, err := auth.NewSessionService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	remoteClient, err := remote.NewClient(cfg.Sync.RemoteURL, sessions, videoStore, analysisStore, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync client: %w", err)
	}

	queue := syncqueue.New(remoteClient, &syncOracle{remote: remoteClient, sessions: sessions}, syncqueue.Config{
		RetryDelay: time.Duration(cfg.Sync.RetryDelaySeconds) * time.Second,
		Interval:   time.Duration(cfg.Sync.IntervalSeconds) * time.Second,
	}, log)
	queue.Start()

	provider, err := gemini.NewProvider(ctx, cfg.Provider, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis provider: %w", err)
	}

	var storage transport.ObjectStore
	if cfg.Storage.Configured() {
		client, err := objstore.NewClient(cfg.Storage, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create object storage client: %w", err)
		}
		storage = client
	} else {
		log.Info("object storage not configured, storage-reference transfers disabled")
	}

	probe := transport.NewProbe(cfg.Transport.MaxRequestBytes, storage != nil)
	router := transport.NewRouter(probe, provider, ffmpeg.NewCompressor(log), storage, log)

	sched := scheduler.New(cfg.Scheduler.MaxConcurrent, log)

	analyses, err := service.NewAnalysisService(videoStore, analysisStore, sched, router, queue, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis service: %w", err)
	}

	return &application{
		config:   cfg,
		logger:   log,
		db:       db,
		videos:   videoStore,
		sched:    sched,
		queue:    queue,
		sessions: sessions,
		analyses: analyses,
	}, nil
}

// openDatabase opens the local store and brings its schema up to date.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := postgres.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("database ready")
	return db, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	app.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close tears down background components in dependency order: the
// scheduler first so no new sync entries appear, then the queue, then
// the database.
func (app *application) Close() {
	if app.sched != nil {
		app.sched.Close()
	}
	if app.queue != nil {
		app.queue.Close()
	}
	if app.db != nil {
		_ = app.db.Close()
	}
}
