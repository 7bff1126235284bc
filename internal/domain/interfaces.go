package domain

import (
	"context"
	"encoding/json"
)

// RawResult is an exchange response before normalization: the exact
// bytes the exchange returned plus the decoded list items. Adapters
// own signing and transport only; field semantics are resolved by the
// normalizer in the usecase layer.
type RawResult struct {
	Raw   json.RawMessage
	Items []map[string]any
}

// MarketOrderRequest places a market order; used only by the action
// handlers for closing positions.
type MarketOrderRequest struct {
	Symbol     string
	Side       string // "buy" or "sell"
	Size       float64
	ReduceOnly bool
}

// ExchangeAdapter translates one exchange's wire format into raw
// responses. Two implementations exist, differing only in signing
// scheme and wire field names; callers select one by the account's
// exchange tag.
type ExchangeAdapter interface {
	Exchange() string

	FetchBalance(ctx context.Context) (*RawResult, error)
	FetchPositions(ctx context.Context, symbol string) (*RawResult, error)
	FetchOpenOrders(ctx context.Context, symbol string) (*RawResult, error)
	FetchTrades(ctx context.Context, symbol string, startMs, endMs int64) (*RawResult, error)
	FetchIncome(ctx context.Context, symbol string, startMs, endMs int64) (*RawResult, error)
	FetchTicker(ctx context.Context, symbol string) (float64, error)

	InstrumentMeta(ctx context.Context, symbol string) (*InstrumentMeta, error)
	PlaceMarketOrder(ctx context.Context, req MarketOrderRequest) (orderID string, err error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAllOrders(ctx context.Context, symbol string) error
}

// SnapshotRepository persists timestamped captures with per-kind
// retention plus a separate latest pointer.
type SnapshotRepository interface {
	Store(ctx context.Context, kind SnapshotKind, accountID string, payload any)
	Latest(ctx context.Context, kind SnapshotKind, accountID string) (*Snapshot, error)
	History(ctx context.Context, kind SnapshotKind, accountID string, startMs, endMs int64) ([]Snapshot, error)
}

// GridLevelRepository stores the synthetic resting-order ladders.
type GridLevelRepository interface {
	SetLevel(ctx context.Context, key AccountSymbol, side GridSide, index int, level GridLevel) error
	GetLevels(ctx context.Context, key AccountSymbol, side GridSide) ([]GridLevel, error)
	GetBothSides(ctx context.Context, key AccountSymbol) (*GridLadder, error)
	DeleteLevel(ctx context.Context, key AccountSymbol, side GridSide, index int) error
	ClearAll(ctx context.Context, key AccountSymbol, side *GridSide) error
	GetBatch(ctx context.Context, keys []AccountSymbol) (map[AccountSymbol]*GridLadder, error)
}

// EquityRepository tracks scalar equity over time per account.
type EquityRepository interface {
	Record(ctx context.Context, accountID string, value float64) error
	NHoursAgo(ctx context.Context, accountID string, hours float64) (*float64, error)
}

// PriceCache holds the last seen market price per (exchange, symbol)
// with a short TTL.
type PriceCache interface {
	Set(ctx context.Context, exchange, symbol string, price float64) error
	Get(ctx context.Context, exchange, symbol string) (*PricePoint, error)
}

// AccountRegistry is the external account/config store boundary. The
// monitor only lists and reads; lifecycle is owned elsewhere.
type AccountRegistry interface {
	ListAccounts(ctx context.Context) ([]*Account, error)
	GetAccount(ctx context.Context, id string) (*Account, error)
}
