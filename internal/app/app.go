// Package app wires the daemon together: config, logger, Redis, the
// extension bridge, the event orchestrator, the background passes and
// the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marque/internal/bridge"
	"github.com/MrSnakeDoc/marque/internal/browser"
	"github.com/MrSnakeDoc/marque/internal/config"
	"github.com/MrSnakeDoc/marque/internal/domain"
	"github.com/MrSnakeDoc/marque/internal/fetcher"
	"github.com/MrSnakeDoc/marque/internal/httpserver"
	"github.com/MrSnakeDoc/marque/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marque/internal/index"
	"github.com/MrSnakeDoc/marque/internal/logger"
	"github.com/MrSnakeDoc/marque/internal/notify"
	"github.com/MrSnakeDoc/marque/internal/redis"
	"github.com/MrSnakeDoc/marque/internal/scheduler"
	"github.com/MrSnakeDoc/marque/internal/sources/exportfile"
	redisstore "github.com/MrSnakeDoc/marque/internal/store/redis"
	syncer "github.com/MrSnakeDoc/marque/internal/sync"
	"github.com/MrSnakeDoc/marque/internal/version"
)

// fallbackSource reads the export file whenever no extension host is
// connected, so reconciliation can still seed the store offline.
type fallbackSource struct {
	primary  browser.Source
	fallback browser.Source
}

func (s *fallbackSource) Tree(ctx context.Context) ([]domain.TreeNode, error) {
	nodes, err := s.primary.Tree(ctx)
	if err != nil && errors.Is(err, bridge.ErrHostNotConnected) {
		return s.fallback.Tree(ctx)
	}
	return nodes, err
}

func (s *fallbackSource) Search(ctx context.Context, url string) ([]domain.TreeNode, error) {
	nodes, err := s.primary.Search(ctx, url)
	if err != nil && errors.Is(err, bridge.ErrHostNotConnected) {
		return s.fallback.Search(ctx, url)
	}
	return nodes, err
}

type App struct {
	cfg          *config.Config
	logger       logger.Logger
	server       *httpserver.Server
	redisClient  *goredis.Client
	bridge       *bridge.Bridge
	orchestrator *syncer.Orchestrator
	reconciler   *scheduler.Reconciler
	backfill     *scheduler.Backfill
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient)
	folders := index.NewFolderTable()
	br := bridge.New(loggerClient)
	pageFetcher := fetcher.New(cfg.FetchTimeout)
	notifier := notify.New(br, br, loggerClient)

	// The bridge is the source of truth; an export file, when
	// configured, covers the window before the host connects.
	var source browser.Source = br
	if cfg.ExportFile != "" {
		loggerClient.Info("export file configured as offline bookmark source",
			logger.String("file", cfg.ExportFile))
		source = &fallbackSource{primary: br, fallback: exportfile.NewSource(cfg.ExportFile)}
	}

	orchestrator := syncer.New(store, folders, source, br, pageFetcher, notifier, loggerClient)

	// Manual reconciliation trigger, shared with the HTTP layer.
	syncTrigger := make(chan struct{}, 1)

	reconciler := scheduler.NewReconciler(
		source,
		store,
		folders,
		notifier,
		loggerClient,
		cfg.ReconcileInterval,
		syncTrigger,
	)

	backfill := scheduler.NewBackfill(
		store,
		pageFetcher,
		loggerClient,
		cfg.BackfillInterval,
		cfg.BackfillBatch,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		RedisClient:  redisClient,
		Store:        store,
		Folders:      folders,
		Host:         br,
		WSHandler:    br.Handler(),
		SyncTrigger:  syncTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:          cfg,
		logger:       loggerClient,
		server:       server,
		redisClient:  redisClient,
		bridge:       br,
		orchestrator: orchestrator,
		reconciler:   reconciler,
		backfill:     backfill,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Marque v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Marque %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Consume host events for the daemon's lifetime.
	go a.orchestrator.Run(ctx, a.bridge.Events())
	a.logger.Info("event orchestrator started")

	// Start the reconciler (converges the store, then periodic refresh)
	if err := a.reconciler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}
	a.logger.Info("reconciler started",
		logger.Duration("interval", a.cfg.ReconcileInterval))

	// Start the enrichment backfill sweeper
	if err := a.backfill.Start(ctx); err != nil {
		return fmt.Errorf("failed to start backfill sweeper: %w", err)
	}
	a.logger.Info("backfill sweeper started",
		logger.Duration("interval", a.cfg.BackfillInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reconciler.Stop()
	a.backfill.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Marque stopped cleanly")
	return nil
}
