// Package main wires together the place rank crawler service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rankwatch/placerank/internal/api"
	"github.com/rankwatch/placerank/internal/clock/system"
	"github.com/rankwatch/placerank/internal/config"
	"github.com/rankwatch/placerank/internal/fetch"
	"github.com/rankwatch/placerank/internal/logging"
	"github.com/rankwatch/placerank/internal/orchestrator"
	"github.com/rankwatch/placerank/internal/resolver"
	"github.com/rankwatch/placerank/internal/scheduler"
	"github.com/rankwatch/placerank/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer pool.Close()

	campaignStore, err := postgres.NewCampaignStore(pool)
	if err != nil {
		logger.Fatal("campaign store init failed", zap.Error(err))
	}
	historyStore, err := postgres.NewHistoryStore(pool)
	if err != nil {
		logger.Fatal("history store init failed", zap.Error(err))
	}

	clock := system.New()
	fetcher := fetch.New(fetch.Config{
		Timeout:      cfg.FetchTimeout(),
		ProxyBase:    cfg.Proxy.BaseURL,
		ProxyPortMin: cfg.Proxy.PortMin,
		ProxyPortMax: cfg.Proxy.PortMax,
	}, logger.Named("fetch"))
	resolve := resolver.New(fetcher, clock, resolver.Config{}, logger.Named("resolver"))
	orch := orchestrator.New(
		resolve,
		campaignStore,
		historyStore,
		clock,
		orchestrator.Config{
			DelayMin:      cfg.DelayMin(),
			DelayMax:      cfg.DelayMax(),
			ProgressEvery: cfg.Crawl.ProgressEvery,
		},
		logger.Named("orchestrator"),
	)

	sched, err := scheduler.New(scheduler.Config{
		Hour:     cfg.Schedule.Hour,
		Minute:   cfg.Schedule.Minute,
		Timezone: cfg.Schedule.Timezone,
	}, orch, logger.Named("scheduler"))
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	apiServer := api.NewServer(
		campaignStore,
		historyStore,
		orch,
		resolve,
		sched.Next,
		clock,
		logger.Named("api"),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
