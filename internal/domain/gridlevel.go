package domain

import (
	"fmt"
	"strings"
)

// GridSide partitions the grid keyspace. Exactly two values exist;
// tokens are stored uppercased.
type GridSide string

const (
	GridBuy  GridSide = "BUY"
	GridSell GridSide = "SELL"
)

func ParseGridSide(s string) (GridSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return GridBuy, nil
	case "SELL":
		return GridSell, nil
	}
	return "", fmt.Errorf("invalid grid side %q", s)
}

// GridLevel is one rung of a market-making ladder, maintained by an
// external strategy process independently of the exchange order book.
// Levels are addressed by a small integer index per
// (account, symbol, side); writing an existing index overwrites it.
type GridLevel struct {
	Index  int         `json:"index"`
	Price  float64     `json:"price"`
	Size   float64     `json:"size"`
	Value  float64     `json:"value"`
	Status OrderStatus `json:"status"`
}

// GridLadder holds both sides of one account's grid for a symbol.
type GridLadder struct {
	Buy  []GridLevel `json:"buy"`
	Sell []GridLevel `json:"sell"`
}

// AccountSymbol addresses one grid ladder in batch reads.
type AccountSymbol struct {
	Exchange  string
	AccountID string
	Symbol    string
}
