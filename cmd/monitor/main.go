package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/config"
	"github.com/vitos/crypto_account_monitor/internal/infrastructure/exchange"
	"github.com/vitos/crypto_account_monitor/internal/infrastructure/logger"
	"github.com/vitos/crypto_account_monitor/internal/infrastructure/storage"
	"github.com/vitos/crypto_account_monitor/internal/usecase"
	"github.com/vitos/crypto_account_monitor/internal/web"
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

	ctx, cancel := context.WithCancel(context.Background())
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
	grids := storage.NewGridStore(rdb, cfg.Redis.KeyPrefix, log)
	equity := storage.NewEquityStore(rdb, cfg.Redis.KeyPrefix, log)
	prices := storage.NewMarketPriceCache(rdb, cfg.Redis.KeyPrefix, log)

	factory := exchange.NewAdapterFactory(
		cfg.Exchanges.OKX.RESTEndpoint,
		cfg.Exchanges.Aster.RESTEndpoint,
	)

	collectLog := log
	if cfg.Logging.File != "" {
		if fileLog, err := logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level); err == nil {
			collectLog = fileLog
		} else {
			log.Error("Failed to init collection log file, using default", zap.Error(err))
		}
	}

	collector := usecase.NewCollector(registry, factory, snapshots, equity, prices, usecase.CollectorConfig{
		CallTimeout:      cfg.CallTimeout(),
		MaxConcurrency:   cfg.Collection.MaxConcurrency,
		SyncTradeHistory: cfg.Collection.SyncTradeHistory,
		TradeLookback:    cfg.TradeLookback(),
	}, collectLog)

	monitor := usecase.NewMonitorService(registry, snapshots, grids, equity, prices, log)
	actions := usecase.NewActionService(registry, factory, grids, log)

	// Stream public ticker prices for every symbol the registry
	// mentions, per exchange, into the market price cache.
	startPriceFeeds(ctx, cfg, registry, prices, log)

	server := web.NewServer(
		cfg.Server.Port,
		monitor,
		actions,
		collector,
		cfg.Server.APIKeys,
		cfg.Server.SessionToken,
		log,
	)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	cancel()
	server.Shutdown(context.Background())
}

func startPriceFeeds(
	ctx context.Context,
	cfg *config.Config,
	registry *storage.SQLiteRegistry,
	prices *storage.MarketPriceCache,
	log *zap.Logger,
) {
	accounts, err := registry.ListAccounts(ctx)
	if err != nil {
		log.Error("Failed to list accounts for price feeds", zap.Error(err))
		return
	}

	symbols := map[string]map[string]bool{}
	for _, acct := range accounts {
		if !acct.Active() {
			continue
		}
		if symbols[acct.Exchange] == nil {
			symbols[acct.Exchange] = map[string]bool{}
		}
		symbols[acct.Exchange][usecase.NativeSymbol(acct.Exchange, acct.Symbol)] = true
	}

	endpoints := map[string]string{
		"okx":   cfg.Exchanges.OKX.WSEndpoint,
		"aster": cfg.Exchanges.Aster.WSEndpoint,
	}
	for exchangeName, set := range symbols {
		list := make([]string, 0, len(set))
		for s := range set {
			list = append(list, s)
		}
		feed := exchange.NewPriceFeed(exchangeName, endpoints[exchangeName], list, prices, log)
		go feed.Run(ctx)
	}
}
