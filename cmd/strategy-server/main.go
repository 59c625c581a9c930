package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/api"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/config"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/engine"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/marketdata"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/util"
)

func main() {
	// Load config.
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	var w io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("opening log file: %v", err)
		}
		defer logFile.Close()
		w = io.MultiWriter(os.Stdout, logFile)
	}
	logger := util.NewLoggerTo(w, cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Stores.
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite: %v", err)
	}
	defer db.Close()
	bars := store.NewParquetStore(cfg.Storage.DataDir)

	// Market data: Alpaca behind the parquet cache.
	alpaca := marketdata.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL, cfg.Alpaca.Feed, cfg.Alpaca.RateLimitPerMin)
	provider := marketdata.NewCachedProvider(alpaca, bars, cfg.Market.CacheToleranceDays)

	eng := engine.NewEngine(nil, cfg.Backtest.TopDrawdowns, logger)
	svc := api.NewService(provider, eng,
		api.Stores{Runs: db, Strategies: db, Notifications: db},
		api.Options{
			HistoryDays:     cfg.Market.HistoryDays,
			VIXSymbol:       cfg.Market.VIXSymbol,
			TNXSymbol:       cfg.Market.TNXSymbol,
			DCAAcceleration: cfg.Backtest.DCAAcceleration,
		}, logger)

	srv := api.NewServer(svc, cfg.Server.Addr(), cfg.Server.GRPCAddr(), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("strategy-server starting",
		"http", cfg.Server.Addr(),
		"grpc", cfg.Server.GRPCAddr(),
		"data_dir", cfg.Storage.DataDir,
		"provider", provider.Name(),
	)
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("strategy-server stopped")
}
