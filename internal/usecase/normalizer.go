package usecase

import (
	"math"
	"strconv"
	"strings"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

// fieldChain is an ordered list of raw field names tried in sequence
// for one logical field. The two exchanges name the same quantities
// differently and older payload variants of the same exchange family
// still show up; keeping the order in one table makes the fallback
// testable instead of scattering chained lookups through the code.
type fieldChain []string

var (
	positionAmtChain = fieldChain{"positionAmt", "pos", "pa"}
	entryPriceChain  = fieldChain{"entryPrice", "avgPx", "ep"}
	unrealizedChain  = fieldChain{"unRealizedProfit", "unrealizedProfit", "upl", "up"}
	pnlRatioChain    = fieldChain{"uplRatio"}
	leverageChain    = fieldChain{"leverage", "lever"}
	notionalChain    = fieldChain{"notional", "notionalUsd"}
	instrumentChain  = fieldChain{"symbol", "instId"}

	orderPriceChain  = fieldChain{"price", "px", "p"}
	orderSizeChain   = fieldChain{"origQty", "sz", "q"}
	orderStatusChain = fieldChain{"status", "state"}
	orderIDChain     = fieldChain{"orderId", "ordId"}

	equityChain = fieldChain{"totalWalletBalance", "totalMarginBalance", "totalEq", "eq"}
)

// numeric parses a raw JSON value that may be a float or a decimal
// string (exchanges send prices as strings to dodge float transit
// loss).
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		if n == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// lookup returns the first present, parseable field in the chain.
func (c fieldChain) lookup(item map[string]any) (float64, bool) {
	for _, name := range c {
		if v, ok := item[name]; ok {
			if f, ok := numeric(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// float is lookup with a zero default for missing optional fields.
func (c fieldChain) float(item map[string]any) float64 {
	f, _ := c.lookup(item)
	return f
}

func (c fieldChain) str(item map[string]any) string {
	for _, name := range c {
		switch v := item[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			// Numeric ids arrive as JSON numbers on one exchange.
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// FilterOpenPositions drops flat entries before normalization. Both
// exchanges report closed slots with a zero amount; the normalizer
// must never see them because side is derived from the sign.
func FilterOpenPositions(items []map[string]any) []map[string]any {
	open := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if math.Abs(positionAmtChain.float(item)) > 0 {
			open = append(open, item)
		}
	}
	return open
}

// NormalizePosition maps a raw position object from either exchange
// into the canonical shape. Side comes from the sign of the position
// amount: positive is LONG, negative SHORT.
func NormalizePosition(item map[string]any) domain.Position {
	amount := positionAmtChain.float(item)
	side := domain.SideLong
	if amount <= 0 {
		side = domain.SideShort
	}

	pos := domain.Position{
		InstrumentID:  instrumentChain.str(item),
		Side:          side,
		Contracts:     math.Abs(amount),
		AvgPrice:      entryPriceChain.float(item),
		UnrealizedPnL: unrealizedChain.float(item),
		Leverage:      leverageChain.float(item),
		NotionalUsd:   math.Abs(notionalChain.float(item)),
	}

	if ratio, ok := pnlRatioChain.lookup(item); ok {
		// Native ratio is a fraction; the canonical field is percent.
		pos.UnrealizedPnLRatio = ratio * 100
	} else if pos.Leverage > 0 && pos.NotionalUsd > 0 {
		margin := pos.NotionalUsd / pos.Leverage
		pos.UnrealizedPnLRatio = pos.UnrealizedPnL / margin * 100
	}
	return pos
}

func NormalizePositions(items []map[string]any) []domain.Position {
	positions := make([]domain.Position, 0, len(items))
	for _, item := range items {
		positions = append(positions, NormalizePosition(item))
	}
	return positions
}

func normalizeOrderStatus(raw string) domain.OrderStatus {
	switch strings.ToLower(raw) {
	case "filled":
		return domain.OrderFilled
	}
	return domain.OrderPending
}

// NormalizeOrder maps a raw open order into the canonical shape.
// Value is recomputed as price*size rather than trusted from the
// exchange.
func NormalizeOrder(item map[string]any) domain.Order {
	price := orderPriceChain.float(item)
	size := orderSizeChain.float(item)
	return domain.Order{
		OrderID: orderIDChain.str(item),
		Price:   price,
		Size:    size,
		Value:   price * size,
		Status:  normalizeOrderStatus(orderStatusChain.str(item)),
	}
}

func NormalizeOrders(items []map[string]any) []domain.Order {
	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		orders = append(orders, NormalizeOrder(item))
	}
	return orders
}

// ExtractEquity pulls account equity from a raw balance payload.
func ExtractEquity(items []map[string]any) float64 {
	for _, item := range items {
		if eq, ok := equityChain.lookup(item); ok {
			return eq
		}
	}
	return 0
}
