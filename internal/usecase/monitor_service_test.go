package usecase_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/domain"
	"github.com/vitos/crypto_account_monitor/internal/usecase"
)

func newMonitorFixture() (*usecase.MonitorService, *MockSnapshotRepo, *MockGridRepo, *MockEquityRepo, *MockPriceCache) {
	registry := &MockRegistry{Accounts: []*domain.Account{
		activeAccount("okx-1", domain.ExchangeOKX, "BTC-USDT-SWAP"),
		activeAccount("aster-2", domain.ExchangeAster, "BTCUSDT"),
	}}
	snapshots := NewMockSnapshotRepo()
	grids := NewMockGridRepo()
	equity := NewMockEquityRepo()
	prices := NewMockPriceCache()
	svc := usecase.NewMonitorService(registry, snapshots, grids, equity, prices, zap.NewNop())
	return svc, snapshots, grids, equity, prices
}

func TestMonitorService_ListAccountsFilter(t *testing.T) {
	svc, _, _, _, _ := newMonitorFixture()
	ctx := context.Background()

	all, err := svc.ListAccounts(ctx, "")
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(all))
	}

	okx, err := svc.ListAccounts(ctx, domain.ExchangeOKX)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(okx) != 1 || okx[0].ID != "okx-1" {
		t.Errorf("Unexpected filtered accounts: %v", okx)
	}
}

func TestMonitorService_LatestAll(t *testing.T) {
	svc, snapshots, _, _, _ := newMonitorFixture()
	ctx := context.Background()

	snapshots.SeedLatest(domain.SnapshotPositions, "okx-1", 1000, domain.PositionsPayload{Exchange: "okx"})

	all, err := svc.LatestAll(ctx, domain.SnapshotPositions, "")
	if err != nil {
		t.Fatalf("LatestAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(all))
	}

	byID := map[string]usecase.AccountLatest{}
	for _, e := range all {
		byID[e.Account.ID] = e
	}
	if byID["okx-1"].Snapshot == nil || byID["okx-1"].Snapshot.Timestamp != 1000 {
		t.Error("Expected snapshot for okx-1")
	}
	// Never-collected accounts appear with a null snapshot, not an
	// error.
	if byID["aster-2"].Snapshot != nil {
		t.Error("Expected null snapshot for aster-2")
	}
}

func TestMonitorService_Summaries(t *testing.T) {
	svc, snapshots, grids, equity, prices := newMonitorFixture()
	ctx := context.Background()

	snapshots.SeedLatest(domain.SnapshotAccountState, "okx-1", 1000,
		domain.AccountStatePayload{Exchange: "okx", Equity: 10500})
	snapshots.SeedLatest(domain.SnapshotPositions, "okx-1", 1000,
		domain.PositionsPayload{Positions: []domain.Position{{InstrumentID: "BTC-USDT-SWAP", Side: domain.SideLong}}})
	past := 10000.0
	equity.Ago["okx-1"] = &past
	grids.SetLevel(ctx, domain.AccountSymbol{Exchange: "okx", AccountID: "okx-1", Symbol: "BTC-USDT-SWAP"},
		domain.GridBuy, 0, domain.GridLevel{Price: 49000})
	prices.Set(ctx, "okx", "BTC-USDT-SWAP", 50123)

	summaries, err := svc.Summaries(ctx)
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}

	byID := map[string]usecase.AccountSummary{}
	for _, s := range summaries {
		byID[s.Account.ID] = s
	}

	s1 := byID["okx-1"]
	if s1.Equity == nil || *s1.Equity != 10500 {
		t.Errorf("Expected equity 10500, got %v", s1.Equity)
	}
	if s1.Equity24hD == nil || *s1.Equity24hD != 500 {
		t.Errorf("Expected 24h delta 500, got %v", s1.Equity24hD)
	}
	if len(s1.Positions) != 1 {
		t.Errorf("Expected 1 position, got %d", len(s1.Positions))
	}
	if len(s1.Grid.Buy) != 1 {
		t.Errorf("Expected 1 buy level, got %d", len(s1.Grid.Buy))
	}
	if s1.MarketPrice == nil || s1.MarketPrice.Price != 50123 {
		t.Errorf("Expected market price 50123, got %v", s1.MarketPrice)
	}

	// An account with no data still yields a complete row with empty
	// collections and null equity.
	s2 := byID["aster-2"]
	if s2.Equity != nil {
		t.Error("Expected null equity for aster-2")
	}
	if s2.Equity24hD != nil {
		t.Error("Expected null delta without current equity")
	}
	if s2.Positions == nil || s2.Orders == nil || s2.Grid == nil {
		t.Error("Expected empty collections, not nulls")
	}
}

func TestMonitorService_Grid(t *testing.T) {
	svc, _, grids, _, _ := newMonitorFixture()
	ctx := context.Background()

	grids.SetLevel(ctx, domain.AccountSymbol{Exchange: "aster", AccountID: "aster-2", Symbol: "BTCUSDT"},
		domain.GridSell, 1, domain.GridLevel{Price: 52000})

	ladder, err := svc.Grid(ctx, "aster-2")
	if err != nil {
		t.Fatalf("Grid failed: %v", err)
	}
	if len(ladder.Sell) != 1 || ladder.Sell[0].Price != 52000 {
		t.Errorf("Unexpected ladder: %v", ladder)
	}

	if _, err := svc.Grid(ctx, "ghost"); err == nil {
		t.Error("Expected error for unknown account")
	}
}
