package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

// AccountInfo is the public account shape; credentials never leave
// the registry.
type AccountInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// AccountLatest pairs an account with its most recent snapshot of one
// kind. Snapshot is null when nothing has been collected yet.
type AccountLatest struct {
	Account  AccountInfo      `json:"account"`
	Snapshot *domain.Snapshot `json:"snapshot"`
}

// AccountSummary is the dashboard row: latest equity, its 24h delta,
// and both grid ladders.
type AccountSummary struct {
	Account     AccountInfo        `json:"account"`
	Equity      *float64           `json:"equity"`
	Equity24hD  *float64           `json:"equity24hDelta"`
	Positions   []domain.Position  `json:"positions"`
	Orders      []domain.Order     `json:"orders"`
	Grid        *domain.GridLadder `json:"grid"`
	MarketPrice *domain.PricePoint `json:"marketPrice"`
}

// MonitorService is the read side over the snapshot, grid, equity and
// price stores. Pure lookups; it never talks to an exchange.
type MonitorService struct {
	registry  domain.AccountRegistry
	snapshots domain.SnapshotRepository
	grids     domain.GridLevelRepository
	equity    domain.EquityRepository
	prices    domain.PriceCache
	log       *zap.Logger
}

func NewMonitorService(
	registry domain.AccountRegistry,
	snapshots domain.SnapshotRepository,
	grids domain.GridLevelRepository,
	equity domain.EquityRepository,
	prices domain.PriceCache,
	log *zap.Logger,
) *MonitorService {
	return &MonitorService{
		registry:  registry,
		snapshots: snapshots,
		grids:     grids,
		equity:    equity,
		prices:    prices,
		log:       log,
	}
}

func toInfo(a *domain.Account) AccountInfo {
	return AccountInfo{ID: a.ID, Name: a.Name, Symbol: a.Symbol, Exchange: a.Exchange}
}

// ListAccounts returns registry accounts, optionally restricted to
// one exchange.
func (m *MonitorService) ListAccounts(ctx context.Context, exchange string) ([]AccountInfo, error) {
	accounts, err := m.registry.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	infos := make([]AccountInfo, 0, len(accounts))
	for _, a := range accounts {
		if exchange != "" && a.Exchange != exchange {
			continue
		}
		infos = append(infos, toInfo(a))
	}
	return infos, nil
}

// Latest returns the latest snapshot of the kind for one account, or
// nil when none exists.
func (m *MonitorService) Latest(ctx context.Context, kind domain.SnapshotKind, accountID string) (*domain.Snapshot, error) {
	return m.snapshots.Latest(ctx, kind, accountID)
}

// History returns the account's snapshots within [startMs, endMs].
func (m *MonitorService) History(ctx context.Context, kind domain.SnapshotKind, accountID string, startMs, endMs int64) ([]domain.Snapshot, error) {
	return m.snapshots.History(ctx, kind, accountID, startMs, endMs)
}

// Grid returns both sides of one account's ladder.
func (m *MonitorService) Grid(ctx context.Context, accountID string) (*domain.GridLadder, error) {
	acct, err := m.registry.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return m.grids.GetBothSides(ctx, domain.AccountSymbol{
		Exchange:  acct.Exchange,
		AccountID: acct.ID,
		Symbol:    NativeSymbol(acct.Exchange, acct.Symbol),
	})
}

// LatestAll fans the latest lookup out across all matching accounts
// concurrently. A failing lookup yields a null snapshot for that
// account rather than failing the whole read.
func (m *MonitorService) LatestAll(ctx context.Context, kind domain.SnapshotKind, exchange string) ([]AccountLatest, error) {
	infos, err := m.ListAccounts(ctx, exchange)
	if err != nil {
		return nil, err
	}

	out := make([]AccountLatest, len(infos))
	var g errgroup.Group
	for i, info := range infos {
		g.Go(func() error {
			snap, err := m.snapshots.Latest(ctx, kind, info.ID)
			if err != nil {
				m.log.Warn("latest lookup failed",
					zap.String("account", info.ID), zap.Error(err))
				snap = nil
			}
			out[i] = AccountLatest{Account: info, Snapshot: snap}
			return nil
		})
	}
	g.Wait()
	return out, nil
}

// Summaries builds the dashboard rows. Grid ladders come from one
// batched round trip; per-account snapshot reads fan out
// concurrently.
func (m *MonitorService) Summaries(ctx context.Context) ([]AccountSummary, error) {
	accounts, err := m.registry.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	keys := make([]domain.AccountSymbol, len(accounts))
	for i, a := range accounts {
		keys[i] = domain.AccountSymbol{
			Exchange:  a.Exchange,
			AccountID: a.ID,
			Symbol:    NativeSymbol(a.Exchange, a.Symbol),
		}
	}
	ladders, err := m.grids.GetBatch(ctx, keys)
	if err != nil {
		m.log.Warn("grid batch read failed", zap.Error(err))
		ladders = map[domain.AccountSymbol]*domain.GridLadder{}
	}

	out := make([]AccountSummary, len(accounts))
	var g errgroup.Group
	for i, acct := range accounts {
		key := keys[i]
		g.Go(func() error {
			out[i] = m.summary(ctx, acct, key, ladders[key])
			return nil
		})
	}
	g.Wait()
	return out, nil
}

func (m *MonitorService) summary(ctx context.Context, acct *domain.Account, key domain.AccountSymbol, ladder *domain.GridLadder) AccountSummary {
	s := AccountSummary{
		Account:   toInfo(acct),
		Positions: []domain.Position{},
		Orders:    []domain.Order{},
		Grid:      ladder,
	}
	if s.Grid == nil {
		s.Grid = &domain.GridLadder{Buy: []domain.GridLevel{}, Sell: []domain.GridLevel{}}
	}

	if snap, err := m.snapshots.Latest(ctx, domain.SnapshotAccountState, acct.ID); err == nil && snap != nil {
		var state domain.AccountStatePayload
		if snap.Decode(&state) == nil {
			s.Equity = &state.Equity
		}
	}
	if s.Equity != nil {
		if past, err := m.equity.NHoursAgo(ctx, acct.ID, 24); err == nil && past != nil {
			delta := *s.Equity - *past
			s.Equity24hD = &delta
		}
	}

	if snap, err := m.snapshots.Latest(ctx, domain.SnapshotPositions, acct.ID); err == nil && snap != nil {
		var payload domain.PositionsPayload
		if snap.Decode(&payload) == nil {
			s.Positions = payload.Positions
		}
	}
	if snap, err := m.snapshots.Latest(ctx, domain.SnapshotOrders, acct.ID); err == nil && snap != nil {
		var payload domain.OrdersPayload
		if snap.Decode(&payload) == nil {
			s.Orders = payload.Orders
		}
	}

	if price, err := m.prices.Get(ctx, key.Exchange, key.Symbol); err == nil {
		s.MarketPrice = price
	}
	return s
}
