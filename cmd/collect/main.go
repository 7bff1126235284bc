// One-shot collection run for cron-style scheduling: pulls every
// account once, prints the per-account results and exits.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/config"
	"github.com/vitos/crypto_account_monitor/internal/infrastructure/exchange"
	"github.com/vitos/crypto_account_monitor/internal/infrastructure/logger"
	"github.com/vitos/crypto_account_monitor/internal/infrastructure/storage"
	"github.com/vitos/crypto_account_monitor/internal/usecase"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Fit inside the scheduler's execution window.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rdb, err := storage.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	registry, err := storage.NewSQLiteRegistry(cfg.Registry.DBPath)
	if err != nil {
		log.Fatal("Failed to open account registry", zap.Error(err))
	}
	defer registry.Close()

	snapshots := storage.NewSnapshotStore(rdb, cfg.Redis.KeyPrefix, log)
	equity := storage.NewEquityStore(rdb, cfg.Redis.KeyPrefix, log)
	prices := storage.NewMarketPriceCache(rdb, cfg.Redis.KeyPrefix, log)
	factory := exchange.NewAdapterFactory(
		cfg.Exchanges.OKX.RESTEndpoint,
		cfg.Exchanges.Aster.RESTEndpoint,
	)

	collector := usecase.NewCollector(registry, factory, snapshots, equity, prices, usecase.CollectorConfig{
		CallTimeout:      cfg.CallTimeout(),
		MaxConcurrency:   cfg.Collection.MaxConcurrency,
		SyncTradeHistory: cfg.Collection.SyncTradeHistory,
		TradeLookback:    cfg.TradeLookback(),
	}, log)

	results, err := collector.Run(ctx)
	if err != nil {
		log.Fatal("Collection run failed", zap.Error(err))
	}

	out, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(out))

	for _, r := range results {
		if r.Status == usecase.CollectionError {
			os.Exit(1)
		}
	}
}
