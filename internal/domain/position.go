package domain

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Position is the canonical position shape both exchanges are
// normalized into. Side is derived from the sign of the raw position
// amount; a flat position never reaches this struct.
type Position struct {
	InstrumentID       string  `json:"instrumentId"`
	Side               Side    `json:"side"`
	Contracts          float64 `json:"contracts"`
	AvgPrice           float64 `json:"avgPrice"`
	UnrealizedPnL      float64 `json:"unrealizedPnL"`
	UnrealizedPnLRatio float64 `json:"unrealizedPnLRatio"` // percent
	Leverage           float64 `json:"leverage"`
	NotionalUsd        float64 `json:"notionalUsd"`
}

type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderFilled  OrderStatus = "filled"
)

// Order is the canonical open-order shape. Value is price*size in
// quote currency units.
type Order struct {
	OrderID string      `json:"orderId,omitempty"`
	Price   float64     `json:"price"`
	Size    float64     `json:"size"`
	Value   float64     `json:"value"`
	Status  OrderStatus `json:"status"`
}

// Trade is a single fill from the exchange trade history.
type Trade struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
	Fee         float64 `json:"fee"`
	RealizedPnL float64 `json:"realizedPnL"`
	Timestamp   int64   `json:"timestamp"`
}

// IncomeEvent is a funding fee, commission or realized pnl entry from
// the exchange income stream.
type IncomeEvent struct {
	Symbol     string  `json:"symbol"`
	IncomeType string  `json:"incomeType"`
	Amount     float64 `json:"amount"`
	Timestamp  int64   `json:"timestamp"`
}
