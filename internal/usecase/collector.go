package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

type CollectionStatus string

const (
	CollectionSuccess CollectionStatus = "success"
	CollectionSkipped CollectionStatus = "skipped"
	CollectionError   CollectionStatus = "error"
)

// CollectionResult is one account's outcome within a collection run.
// A run always returns one entry per account; partial failure never
// hides the accounts that did succeed.
type CollectionResult struct {
	AccountID string           `json:"accountId"`
	Status    CollectionStatus `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	Error     string           `json:"error,omitempty"`
	Equity    *float64         `json:"equity,omitempty"`
}

// AdapterFactory yields an adapter bound to one account's
// credentials.
type AdapterFactory interface {
	ForAccount(acct *domain.Account) (domain.ExchangeAdapter, error)
}

// CollectorConfig tunes one collection run.
type CollectorConfig struct {
	CallTimeout      time.Duration
	MaxConcurrency   int
	SyncTradeHistory bool
	TradeLookback    time.Duration
}

// Collector pulls balance, positions and open orders for every
// registered account and writes the snapshots through. Triggered
// externally (cron binary or the internal endpoint); it never
// schedules itself.
type Collector struct {
	registry  domain.AccountRegistry
	adapters  AdapterFactory
	snapshots domain.SnapshotRepository
	equity    domain.EquityRepository
	prices    domain.PriceCache
	cfg       CollectorConfig
	log       *zap.Logger
}

func NewCollector(
	registry domain.AccountRegistry,
	adapters AdapterFactory,
	snapshots domain.SnapshotRepository,
	equity domain.EquityRepository,
	prices domain.PriceCache,
	cfg CollectorConfig,
	log *zap.Logger,
) *Collector {
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.TradeLookback == 0 {
		cfg.TradeLookback = 24 * time.Hour
	}
	return &Collector{
		registry:  registry,
		adapters:  adapters,
		snapshots: snapshots,
		equity:    equity,
		prices:    prices,
		cfg:       cfg,
		log:       log,
	}
}

// Run processes every account concurrently with isolated error
// capture: a hung or failing exchange call marks that account and
// never stalls its siblings. Only registry unavailability is fatal.
func (c *Collector) Run(ctx context.Context) ([]CollectionResult, error) {
	accounts, err := c.registry.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	results := make([]CollectionResult, len(accounts))
	var g errgroup.Group
	g.SetLimit(c.cfg.MaxConcurrency)
	for i, acct := range accounts {
		g.Go(func() error {
			results[i] = c.collectAccount(ctx, acct)
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		c.log.Info("account collected",
			zap.String("account", r.AccountID),
			zap.String("status", string(r.Status)),
			zap.String("reason", r.Reason),
			zap.String("error", r.Error))
	}
	return results, nil
}

func (c *Collector) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

func (c *Collector) collectAccount(ctx context.Context, acct *domain.Account) CollectionResult {
	res := CollectionResult{AccountID: acct.ID}

	if !acct.Active() {
		res.Status = CollectionSkipped
		res.Reason = "account inactive"
		return res
	}
	if acct.Credentials.Empty() {
		res.Status = CollectionSkipped
		res.Reason = "missing credentials"
		return res
	}

	adapter, err := c.adapters.ForAccount(acct)
	if err != nil {
		res.Status = CollectionError
		res.Error = err.Error()
		return res
	}

	// Balance first: equity drives the 24h delta and the account
	// state cache.
	var balance *domain.RawResult
	if err := c.call(ctx, func(ctx context.Context) error {
		var err error
		balance, err = adapter.FetchBalance(ctx)
		return err
	}); err != nil {
		res.Status = CollectionError
		res.Error = fmt.Sprintf("fetch balance: %v", err)
		return res
	}

	equity := ExtractEquity(balance.Items)
	if err := c.equity.Record(ctx, acct.ID, equity); err != nil {
		// Store failure degrades to a gap in the series, not a failed
		// account.
		c.log.Error("equity record failed", zap.String("account", acct.ID), zap.Error(err))
	}
	c.snapshots.Store(ctx, domain.SnapshotAccountState, acct.ID, domain.AccountStatePayload{
		Exchange: acct.Exchange,
		Equity:   equity,
		Raw:      balance.Raw,
	})

	symbol := NativeSymbol(acct.Exchange, acct.Symbol)

	var positions *domain.RawResult
	if err := c.call(ctx, func(ctx context.Context) error {
		var err error
		positions, err = adapter.FetchPositions(ctx, symbol)
		return err
	}); err != nil {
		res.Status = CollectionError
		res.Error = fmt.Sprintf("fetch positions: %v", err)
		return res
	}
	open := FilterOpenPositions(positions.Items)
	c.snapshots.Store(ctx, domain.SnapshotPositions, acct.ID, domain.PositionsPayload{
		Exchange:  acct.Exchange,
		Symbol:    symbol,
		Positions: NormalizePositions(open),
		Raw:       positions.Raw,
	})

	var orders *domain.RawResult
	if err := c.call(ctx, func(ctx context.Context) error {
		var err error
		orders, err = adapter.FetchOpenOrders(ctx, symbol)
		return err
	}); err != nil {
		res.Status = CollectionError
		res.Error = fmt.Sprintf("fetch orders: %v", err)
		return res
	}
	c.snapshots.Store(ctx, domain.SnapshotOrders, acct.ID, domain.OrdersPayload{
		Exchange: acct.Exchange,
		Symbol:   symbol,
		Orders:   NormalizeOrders(orders.Items),
		Raw:      orders.Raw,
	})

	if err := c.call(ctx, func(ctx context.Context) error {
		price, err := adapter.FetchTicker(ctx, symbol)
		if err != nil {
			return err
		}
		return c.prices.Set(ctx, acct.Exchange, symbol, price)
	}); err != nil {
		// Price cache is best-effort; the feed refreshes it anyway.
		c.log.Warn("ticker refresh failed", zap.String("account", acct.ID), zap.Error(err))
	}

	if c.cfg.SyncTradeHistory {
		if err := c.syncTrades(ctx, acct, adapter, symbol); err != nil {
			c.log.Warn("trade history sync failed", zap.String("account", acct.ID), zap.Error(err))
		}
	}

	res.Status = CollectionSuccess
	res.Equity = &equity
	return res
}

func (c *Collector) syncTrades(ctx context.Context, acct *domain.Account, adapter domain.ExchangeAdapter, symbol string) error {
	endMs := time.Now().UnixMilli()
	startMs := endMs - c.cfg.TradeLookback.Milliseconds()

	var trades, income *domain.RawResult
	if err := c.call(ctx, func(ctx context.Context) error {
		var err error
		trades, err = adapter.FetchTrades(ctx, symbol, startMs, endMs)
		return err
	}); err != nil {
		return fmt.Errorf("fetch trades: %w", err)
	}
	if err := c.call(ctx, func(ctx context.Context) error {
		var err error
		income, err = adapter.FetchIncome(ctx, symbol, startMs, endMs)
		return err
	}); err != nil {
		return fmt.Errorf("fetch income: %w", err)
	}

	c.snapshots.Store(ctx, domain.SnapshotTradeHistory, acct.ID, domain.TradeHistoryPayload{
		Exchange:  acct.Exchange,
		Symbol:    symbol,
		Trades:    normalizeTrades(trades.Items),
		Income:    normalizeIncome(income.Items),
		FetchedAt: endMs,
		StartTime: startMs,
		EndTime:   endMs,
	})
	return nil
}

var (
	tradeIDChain    = fieldChain{"id", "tradeId"}
	tradeSideChain  = fieldChain{"side"}
	tradeFeeChain   = fieldChain{"commission", "fee"}
	tradePnLChain   = fieldChain{"realizedPnl", "fillPnl"}
	tradeTimeChain  = fieldChain{"time", "ts", "fillTime"}
	tradeSizeChain  = fieldChain{"qty", "fillSz"}
	tradePriceChain = fieldChain{"price", "fillPx"}

	incomeTypeChain   = fieldChain{"incomeType", "type"}
	incomeAmountChain = fieldChain{"income", "balChg", "amount"}
)

func normalizeTrades(items []map[string]any) []domain.Trade {
	trades := make([]domain.Trade, 0, len(items))
	for _, item := range items {
		trades = append(trades, domain.Trade{
			ID:          tradeIDChain.str(item),
			Symbol:      instrumentChain.str(item),
			Side:        tradeSideChain.str(item),
			Price:       tradePriceChain.float(item),
			Size:        tradeSizeChain.float(item),
			Fee:         tradeFeeChain.float(item),
			RealizedPnL: tradePnLChain.float(item),
			Timestamp:   int64(tradeTimeChain.float(item)),
		})
	}
	return trades
}

func normalizeIncome(items []map[string]any) []domain.IncomeEvent {
	events := make([]domain.IncomeEvent, 0, len(items))
	for _, item := range items {
		events = append(events, domain.IncomeEvent{
			Symbol:     instrumentChain.str(item),
			IncomeType: incomeTypeChain.str(item),
			Amount:     incomeAmountChain.float(item),
			Timestamp:  int64(tradeTimeChain.float(item)),
		})
	}
	return events
}
