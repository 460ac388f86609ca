// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/watchlist/internal/api"
	"github.com/ManuGH/watchlist/internal/cache"
	"github.com/ManuGH/watchlist/internal/config"
	"github.com/ManuGH/watchlist/internal/health"
	"github.com/ManuGH/watchlist/internal/library"
	"github.com/ManuGH/watchlist/internal/log"
	"github.com/ManuGH/watchlist/internal/telemetry"
	"github.com/ManuGH/watchlist/internal/watchlist"
)

const (
	shutdownTimeout = 10 * time.Second
	snapshotDir     = "snapshots"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, loader, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, loader)
		},
	}
}

func serve(ctx context.Context, cfg config.AppConfig, loader *config.Loader) error {
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "watchlistd",
		ServiceVersion: cfg.Version,
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   1,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	store, err := library.NewStore(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer func() { _ = store.Close() }()

	snapshots, redisPing, closeSnapshots, err := newSnapshotStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	probes := health.NewManager(cfg.Version)
	probes.RegisterChecker(health.NewPingChecker("database", store.Ping))
	if redisPing != nil {
		probes.RegisterChecker(health.NewPingChecker("redis", redisPing).Optional())
	}
	probes.RegisterChecker(health.NewSnapshotChecker(snapshots, 3*cfg.WatchList.RefreshInterval))

	holder := config.NewHolder(cfg, loader)
	svc := watchlist.NewService(store, snapshots, func() watchlist.Config {
		return holder.Get().Ranking()
	})
	sched := watchlist.NewScheduler(svc, cfg.WatchList.RefreshInterval)

	reloads := make(chan config.AppConfig, 1)
	holder.RegisterListener(reloads)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher unavailable, hot reload disabled")
	}

	sched.Start(ctx)
	go applyReloads(ctx, reloads, sched)

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.New(api.Deps{
			Recordings: store,
			Snapshots:  snapshots,
			Refresher:  svc,
			Trigger:    sched,
			Health:     probes,
		}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Str("version", cfg.Version).Msg("api server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server shutdown failed")
	}
	<-sched.Done()
	return nil
}

// newSnapshotStore returns the in-process store, mirrored to the on-disk
// store and to Redis when configured. The in-process store starts out with
// the snapshot persisted by the previous run. ping is nil without Redis.
func newSnapshotStore(ctx context.Context, cfg config.AppConfig) (store cache.Store, ping func(context.Context) error, closeFn func(), err error) {
	logger := log.WithComponent("cache")
	mem := cache.NewMemory()

	disk, err := cache.OpenDisk(filepath.Join(cfg.DataDir, snapshotDir), logger)
	if err != nil {
		return nil, nil, nil, err
	}
	if warmed, err := cache.Warm(ctx, mem, disk); err != nil {
		logger.Warn().Err(err).Msg("restore persisted watch list failed")
	} else if warmed {
		logger.Info().Msg("restored persisted watch list")
	}

	if cfg.Redis.Addr == "" {
		return cache.NewTee(logger, mem, disk), nil, func() { _ = disk.Close() }, nil
	}

	rds, err := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		_ = disk.Close()
		return nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closeAll := func() {
		_ = rds.Close()
		_ = disk.Close()
	}
	return cache.NewTee(logger, mem, disk, rds), rds.HealthCheck, closeAll, nil
}

// applyReloads pushes reloaded settings into the running components.
func applyReloads(ctx context.Context, reloads <-chan config.AppConfig, sched *watchlist.Scheduler) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-reloads:
			log.SetLevel(cfg.LogLevel)
			sched.SetInterval(cfg.WatchList.RefreshInterval)
			sched.Trigger("config_reloaded")
		}
	}
}
