package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

// MockRegistry serves a fixed account list.
type MockRegistry struct {
	Accounts []*domain.Account
	ListErr  error
}

func (m *MockRegistry) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Accounts, nil
}

func (m *MockRegistry) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	for _, a := range m.Accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, errors.New("account " + id + " not found")
}

// MockAdapter answers every exchange call from canned data. Individual
// calls can be failed per test via the Err fields.
type MockAdapter struct {
	ExchangeTag string

	Balance   []map[string]any
	Positions []map[string]any
	Orders    []map[string]any
	Trades    []map[string]any
	Income    []map[string]any
	Ticker    float64
	Meta      *domain.InstrumentMeta

	BalanceErr   error
	PositionsErr error
	OrdersErr    error
	TickerErr    error

	PlacedOrders    []domain.MarketOrderRequest
	PlaceOrderID    string
	PlaceErr        error
	CancelledOrders []string
	CancelledAll    []string
}

func rawResult(items []map[string]any) *domain.RawResult {
	raw, _ := json.Marshal(items)
	return &domain.RawResult{Raw: raw, Items: items}
}

func (m *MockAdapter) Exchange() string { return m.ExchangeTag }

func (m *MockAdapter) FetchBalance(ctx context.Context) (*domain.RawResult, error) {
	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	return rawResult(m.Balance), nil
}

func (m *MockAdapter) FetchPositions(ctx context.Context, symbol string) (*domain.RawResult, error) {
	if m.PositionsErr != nil {
		return nil, m.PositionsErr
	}
	return rawResult(m.Positions), nil
}

func (m *MockAdapter) FetchOpenOrders(ctx context.Context, symbol string) (*domain.RawResult, error) {
	if m.OrdersErr != nil {
		return nil, m.OrdersErr
	}
	return rawResult(m.Orders), nil
}

func (m *MockAdapter) FetchTrades(ctx context.Context, symbol string, startMs, endMs int64) (*domain.RawResult, error) {
	return rawResult(m.Trades), nil
}

func (m *MockAdapter) FetchIncome(ctx context.Context, symbol string, startMs, endMs int64) (*domain.RawResult, error) {
	return rawResult(m.Income), nil
}

func (m *MockAdapter) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	if m.TickerErr != nil {
		return 0, m.TickerErr
	}
	return m.Ticker, nil
}

func (m *MockAdapter) InstrumentMeta(ctx context.Context, symbol string) (*domain.InstrumentMeta, error) {
	if m.Meta == nil {
		return nil, errors.New("no instrument meta configured")
	}
	return m.Meta, nil
}

func (m *MockAdapter) PlaceMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (string, error) {
	if m.PlaceErr != nil {
		return "", m.PlaceErr
	}
	m.PlacedOrders = append(m.PlacedOrders, req)
	return m.PlaceOrderID, nil
}

func (m *MockAdapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	m.CancelledOrders = append(m.CancelledOrders, orderID)
	return nil
}

func (m *MockAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	m.CancelledAll = append(m.CancelledAll, symbol)
	return nil
}

// MockAdapterFactory hands out one mock per account id.
type MockAdapterFactory struct {
	Adapters map[string]*MockAdapter
}

func (f *MockAdapterFactory) ForAccount(acct *domain.Account) (domain.ExchangeAdapter, error) {
	a, ok := f.Adapters[acct.ID]
	if !ok {
		return nil, errors.New("no adapter for " + acct.ID)
	}
	return a, nil
}

// MockSnapshotRepo records every Store call in memory.
type MockSnapshotRepo struct {
	mu      sync.Mutex
	Stored  map[string]any // "{kind}/{accountId}" -> payload
	Latests map[string]*domain.Snapshot
	Hist    map[string][]domain.Snapshot
}

func NewMockSnapshotRepo() *MockSnapshotRepo {
	return &MockSnapshotRepo{
		Stored:  map[string]any{},
		Latests: map[string]*domain.Snapshot{},
		Hist:    map[string][]domain.Snapshot{},
	}
}

func snapKey(kind domain.SnapshotKind, accountID string) string {
	return string(kind) + "/" + accountID
}

func (m *MockSnapshotRepo) Store(ctx context.Context, kind domain.SnapshotKind, accountID string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stored[snapKey(kind, accountID)] = payload
}

func (m *MockSnapshotRepo) GetStored(kind domain.SnapshotKind, accountID string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Stored[snapKey(kind, accountID)]
	return p, ok
}

func (m *MockSnapshotRepo) SeedLatest(kind domain.SnapshotKind, accountID string, ts int64, payload any) {
	data, _ := json.Marshal(payload)
	m.Latests[snapKey(kind, accountID)] = &domain.Snapshot{Timestamp: ts, Data: data}
}

func (m *MockSnapshotRepo) Latest(ctx context.Context, kind domain.SnapshotKind, accountID string) (*domain.Snapshot, error) {
	return m.Latests[snapKey(kind, accountID)], nil
}

func (m *MockSnapshotRepo) History(ctx context.Context, kind domain.SnapshotKind, accountID string, startMs, endMs int64) ([]domain.Snapshot, error) {
	var out []domain.Snapshot
	for _, s := range m.Hist[snapKey(kind, accountID)] {
		if s.Timestamp >= startMs && s.Timestamp <= endMs {
			out = append(out, s)
		}
	}
	if out == nil {
		out = []domain.Snapshot{}
	}
	return out, nil
}

// MockEquityRepo captures recorded values and serves a fixed 24h-ago
// answer.
type MockEquityRepo struct {
	mu       sync.Mutex
	Recorded map[string][]float64
	Ago      map[string]*float64
	RecErr   error
}

func NewMockEquityRepo() *MockEquityRepo {
	return &MockEquityRepo{Recorded: map[string][]float64{}, Ago: map[string]*float64{}}
}

func (m *MockEquityRepo) Record(ctx context.Context, accountID string, value float64) error {
	if m.RecErr != nil {
		return m.RecErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded[accountID] = append(m.Recorded[accountID], value)
	return nil
}

func (m *MockEquityRepo) NHoursAgo(ctx context.Context, accountID string, hours float64) (*float64, error) {
	return m.Ago[accountID], nil
}

// MockPriceCache is an in-memory PriceCache.
type MockPriceCache struct {
	mu     sync.Mutex
	Prices map[string]float64
}

func NewMockPriceCache() *MockPriceCache {
	return &MockPriceCache{Prices: map[string]float64{}}
}

func (m *MockPriceCache) Set(ctx context.Context, exchange, symbol string, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[exchange+"/"+symbol] = price
	return nil
}

func (m *MockPriceCache) Get(ctx context.Context, exchange, symbol string) (*domain.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Prices[exchange+"/"+symbol]
	if !ok {
		return nil, nil
	}
	return &domain.PricePoint{Price: p, Timestamp: 1}, nil
}

// MockGridRepo is an in-memory GridLevelRepository.
type MockGridRepo struct {
	Ladders map[domain.AccountSymbol]*domain.GridLadder
}

func NewMockGridRepo() *MockGridRepo {
	return &MockGridRepo{Ladders: map[domain.AccountSymbol]*domain.GridLadder{}}
}

func (m *MockGridRepo) ladder(key domain.AccountSymbol) *domain.GridLadder {
	l, ok := m.Ladders[key]
	if !ok {
		l = &domain.GridLadder{}
		m.Ladders[key] = l
	}
	return l
}

func (m *MockGridRepo) SetLevel(ctx context.Context, key domain.AccountSymbol, side domain.GridSide, index int, level domain.GridLevel) error {
	level.Index = index
	l := m.ladder(key)
	if side == domain.GridBuy {
		l.Buy = append(l.Buy, level)
	} else {
		l.Sell = append(l.Sell, level)
	}
	return nil
}

func (m *MockGridRepo) GetLevels(ctx context.Context, key domain.AccountSymbol, side domain.GridSide) ([]domain.GridLevel, error) {
	l := m.ladder(key)
	if side == domain.GridBuy {
		return l.Buy, nil
	}
	return l.Sell, nil
}

func (m *MockGridRepo) GetBothSides(ctx context.Context, key domain.AccountSymbol) (*domain.GridLadder, error) {
	return m.ladder(key), nil
}

func (m *MockGridRepo) DeleteLevel(ctx context.Context, key domain.AccountSymbol, side domain.GridSide, index int) error {
	l := m.ladder(key)
	prune := func(levels []domain.GridLevel) []domain.GridLevel {
		out := levels[:0]
		for _, lvl := range levels {
			if lvl.Index != index {
				out = append(out, lvl)
			}
		}
		return out
	}
	if side == domain.GridBuy {
		l.Buy = prune(l.Buy)
	} else {
		l.Sell = prune(l.Sell)
	}
	return nil
}

func (m *MockGridRepo) ClearAll(ctx context.Context, key domain.AccountSymbol, side *domain.GridSide) error {
	l := m.ladder(key)
	if side == nil {
		l.Buy, l.Sell = nil, nil
		return nil
	}
	if *side == domain.GridBuy {
		l.Buy = nil
	} else {
		l.Sell = nil
	}
	return nil
}

func (m *MockGridRepo) GetBatch(ctx context.Context, keys []domain.AccountSymbol) (map[domain.AccountSymbol]*domain.GridLadder, error) {
	out := map[domain.AccountSymbol]*domain.GridLadder{}
	for _, k := range keys {
		out[k] = m.ladder(k)
	}
	return out, nil
}
