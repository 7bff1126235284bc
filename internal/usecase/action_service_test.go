package usecase_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/domain"
	"github.com/vitos/crypto_account_monitor/internal/usecase"
)

func newActionFixture(adapter *MockAdapter) (*usecase.ActionService, *MockGridRepo) {
	acct := activeAccount("okx-1", domain.ExchangeOKX, "BTC-USDT-SWAP")
	registry := &MockRegistry{Accounts: []*domain.Account{acct}}
	factory := &MockAdapterFactory{Adapters: map[string]*MockAdapter{"okx-1": adapter}}
	grids := NewMockGridRepo()
	return usecase.NewActionService(registry, factory, grids, zap.NewNop()), grids
}

func closeAdapter() *MockAdapter {
	return &MockAdapter{
		ExchangeTag: domain.ExchangeOKX,
		Positions: []map[string]any{
			{"instId": "BTC-USDT-SWAP", "pos": "1", "avgPx": "50000"},
		},
		Meta:         &domain.InstrumentMeta{Symbol: "BTC-USDT-SWAP", LotSize: 0.1, MinSize: 0.1},
		PlaceOrderID: "close-1",
	}
}

func TestClosePosition_FullClose(t *testing.T) {
	adapter := closeAdapter()
	svc, _ := newActionFixture(adapter)

	orderID, err := svc.ClosePosition(context.Background(), "okx-1", "BTC-USDT-SWAP", 100)
	if err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	if orderID != "close-1" {
		t.Errorf("Expected order id close-1, got %s", orderID)
	}
	if len(adapter.PlacedOrders) != 1 {
		t.Fatalf("Expected 1 placed order, got %d", len(adapter.PlacedOrders))
	}
	req := adapter.PlacedOrders[0]
	if req.Size != 1 {
		t.Errorf("Expected size 1, got %f", req.Size)
	}
	if req.Side != "sell" {
		t.Errorf("Expected sell for a LONG close, got %s", req.Side)
	}
	if !req.ReduceOnly {
		t.Error("Expected reduce-only order")
	}
}

func TestClosePosition_LotSizeRounding(t *testing.T) {
	adapter := closeAdapter()
	svc, _ := newActionFixture(adapter)

	// 25% of 1 contract is 0.25; with lot 0.1 it rounds down to 0.2.
	if _, err := svc.ClosePosition(context.Background(), "okx-1", "BTC-USDT-SWAP", 25); err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	if got := adapter.PlacedOrders[0].Size; got != 0.2 {
		t.Errorf("Expected size 0.2, got %f", got)
	}
}

func TestClosePosition_ShortBuysBack(t *testing.T) {
	adapter := closeAdapter()
	adapter.Positions = []map[string]any{
		{"instId": "BTC-USDT-SWAP", "pos": "-2", "avgPx": "50000"},
	}
	svc, _ := newActionFixture(adapter)

	if _, err := svc.ClosePosition(context.Background(), "okx-1", "BTC-USDT-SWAP", 50); err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	req := adapter.PlacedOrders[0]
	if req.Side != "buy" {
		t.Errorf("Expected buy for a SHORT close, got %s", req.Side)
	}
	if req.Size != 1 {
		t.Errorf("Expected size 1, got %f", req.Size)
	}
}

func TestClosePosition_PercentageBounds(t *testing.T) {
	svc, _ := newActionFixture(closeAdapter())

	for _, pct := range []float64{0, 9.99, 100.01, -5} {
		_, err := svc.ClosePosition(context.Background(), "okx-1", "BTC-USDT-SWAP", pct)
		var verr *usecase.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected validation error for %v, got %v", pct, err)
		}
	}
}

func TestClosePosition_BelowMinimumRejected(t *testing.T) {
	adapter := closeAdapter()
	// 10% of 1 contract is 0.1 contracts; with min 0.5 nothing can be
	// placed.
	adapter.Meta = &domain.InstrumentMeta{Symbol: "BTC-USDT-SWAP", LotSize: 0.1, MinSize: 0.5}
	svc, _ := newActionFixture(adapter)

	_, err := svc.ClosePosition(context.Background(), "okx-1", "BTC-USDT-SWAP", 10)
	var verr *usecase.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if len(adapter.PlacedOrders) != 0 {
		t.Error("Order must not reach the exchange when below minimum")
	}
}

func TestClosePosition_NoOpenPosition(t *testing.T) {
	adapter := closeAdapter()
	adapter.Positions = []map[string]any{{"instId": "BTC-USDT-SWAP", "pos": "0"}}
	svc, _ := newActionFixture(adapter)

	_, err := svc.ClosePosition(context.Background(), "okx-1", "BTC-USDT-SWAP", 100)
	var verr *usecase.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestClosePosition_UnknownAccount(t *testing.T) {
	svc, _ := newActionFixture(closeAdapter())

	_, err := svc.ClosePosition(context.Background(), "ghost", "BTC-USDT-SWAP", 100)
	var verr *usecase.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestCancelOrder(t *testing.T) {
	adapter := closeAdapter()
	svc, _ := newActionFixture(adapter)
	ctx := context.Background()

	if err := svc.CancelOrder(ctx, "okx-1", "", "ord-9"); err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}
	if len(adapter.CancelledOrders) != 1 || adapter.CancelledOrders[0] != "ord-9" {
		t.Errorf("Unexpected cancelled orders: %v", adapter.CancelledOrders)
	}

	err := svc.CancelOrder(ctx, "okx-1", "", "")
	var verr *usecase.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected validation error for empty orderId, got %v", err)
	}
}

func TestCancelAllOrders(t *testing.T) {
	adapter := closeAdapter()
	svc, _ := newActionFixture(adapter)

	if err := svc.CancelAllOrders(context.Background(), "okx-1"); err != nil {
		t.Fatalf("CancelAllOrders failed: %v", err)
	}
	if len(adapter.CancelledAll) != 1 || adapter.CancelledAll[0] != "BTC-USDT-SWAP" {
		t.Errorf("Unexpected cancel-all symbols: %v", adapter.CancelledAll)
	}
}

func TestDeleteGridLevel(t *testing.T) {
	svc, grids := newActionFixture(closeAdapter())
	ctx := context.Background()
	key := domain.AccountSymbol{Exchange: "okx", AccountID: "okx-1", Symbol: "BTC-USDT-SWAP"}

	grids.SetLevel(ctx, key, domain.GridBuy, 0, domain.GridLevel{Price: 49000})
	grids.SetLevel(ctx, key, domain.GridBuy, 1, domain.GridLevel{Price: 48000})

	if err := svc.DeleteGridLevel(ctx, "okx-1", "", "buy", 0); err != nil {
		t.Fatalf("DeleteGridLevel failed: %v", err)
	}
	levels, _ := grids.GetLevels(ctx, key, domain.GridBuy)
	if len(levels) != 1 || levels[0].Index != 1 {
		t.Errorf("Unexpected remaining levels: %v", levels)
	}

	var verr *usecase.ValidationError
	if err := svc.DeleteGridLevel(ctx, "okx-1", "", "sideways", 0); !errors.As(err, &verr) {
		t.Errorf("Expected validation error for bad side, got %v", err)
	}
	if err := svc.DeleteGridLevel(ctx, "okx-1", "", "buy", -1); !errors.As(err, &verr) {
		t.Errorf("Expected validation error for negative index, got %v", err)
	}
}

func TestClearGridLevels(t *testing.T) {
	svc, grids := newActionFixture(closeAdapter())
	ctx := context.Background()
	key := domain.AccountSymbol{Exchange: "okx", AccountID: "okx-1", Symbol: "BTC-USDT-SWAP"}

	grids.SetLevel(ctx, key, domain.GridBuy, 0, domain.GridLevel{Price: 49000})
	grids.SetLevel(ctx, key, domain.GridSell, 0, domain.GridLevel{Price: 51000})

	if err := svc.ClearGridLevels(ctx, "okx-1", "", "sell"); err != nil {
		t.Fatalf("ClearGridLevels failed: %v", err)
	}
	ladder, _ := grids.GetBothSides(ctx, key)
	if len(ladder.Sell) != 0 {
		t.Error("Expected sell side cleared")
	}
	if len(ladder.Buy) != 1 {
		t.Error("Expected buy side untouched")
	}

	if err := svc.ClearGridLevels(ctx, "okx-1", "", ""); err != nil {
		t.Fatalf("ClearGridLevels failed: %v", err)
	}
	ladder, _ = grids.GetBothSides(ctx, key)
	if len(ladder.Buy) != 0 {
		t.Error("Expected both sides cleared")
	}
}
