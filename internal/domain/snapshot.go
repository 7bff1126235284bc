package domain

import (
	"encoding/json"
	"time"
)

// SnapshotKind selects the keyspace and the retention policy of a
// stored snapshot.
type SnapshotKind string

const (
	SnapshotPositions    SnapshotKind = "positions"
	SnapshotOrders       SnapshotKind = "orders"
	SnapshotTradeHistory SnapshotKind = "trade_history"
	SnapshotAccountState SnapshotKind = "account_state"
)

// TTL returns the retention window for the kind. Zero means the kind
// is kept forever.
func (k SnapshotKind) TTL() time.Duration {
	switch k {
	case SnapshotPositions, SnapshotOrders:
		return 30 * 24 * time.Hour
	case SnapshotAccountState:
		return 5 * time.Minute
	case SnapshotTradeHistory:
		return 0
	}
	return 30 * 24 * time.Hour
}

// Snapshot is the generic envelope every stored capture uses. Data is
// kept raw so the store stays payload-agnostic; callers decode it into
// the payload type matching the kind.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"` // epoch millis
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the snapshot body into the payload type matching
// the kind it was stored under.
func (s *Snapshot) Decode(v any) error {
	return json.Unmarshal(s.Data, v)
}

// PositionsPayload is the snapshot body for SnapshotPositions. Raw
// preserves the original exchange response for audit alongside the
// normalized positions.
type PositionsPayload struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Positions []Position      `json:"positions"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

type OrdersPayload struct {
	Exchange string          `json:"exchange"`
	Symbol   string          `json:"symbol"`
	Orders   []Order         `json:"orders"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

type TradeHistoryPayload struct {
	Exchange  string        `json:"exchange"`
	Symbol    string        `json:"symbol"`
	Trades    []Trade       `json:"trades"`
	Income    []IncomeEvent `json:"income"`
	FetchedAt int64         `json:"fetchedAt"`
	StartTime int64         `json:"startTime"`
	EndTime   int64         `json:"endTime"`
}

type AccountStatePayload struct {
	Exchange string          `json:"exchange"`
	Equity   float64         `json:"equity"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// PricePoint is the cached market price for one symbol.
type PricePoint struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}
