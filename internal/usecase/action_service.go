package usecase

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

// ValidationError marks a request rejected before any exchange call;
// the web layer maps it to a 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ActionService executes operator actions: closing positions and
// cancelling orders talk to the exchange directly, bypassing the
// snapshot store; grid-level deletes mutate only the grid store.
type ActionService struct {
	registry domain.AccountRegistry
	adapters AdapterFactory
	grids    domain.GridLevelRepository
	log      *zap.Logger
}

func NewActionService(
	registry domain.AccountRegistry,
	adapters AdapterFactory,
	grids domain.GridLevelRepository,
	log *zap.Logger,
) *ActionService {
	return &ActionService{registry: registry, adapters: adapters, grids: grids, log: log}
}

func (a *ActionService) adapterFor(ctx context.Context, accountID string) (*domain.Account, domain.ExchangeAdapter, error) {
	acct, err := a.registry.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, validationf("unknown account %s", accountID)
	}
	adapter, err := a.adapters.ForAccount(acct)
	if err != nil {
		return nil, nil, err
	}
	return acct, adapter, nil
}

// ClosePosition closes the given percentage (10-100) of the current
// position with a reduce-only market order. The close size is rounded
// down to the instrument's lot size; a result below the minimum order
// size is rejected before reaching the exchange.
func (a *ActionService) ClosePosition(ctx context.Context, accountID, symbol string, percentage float64) (string, error) {
	if percentage < 10 || percentage > 100 {
		return "", validationf("percentage must be between 10 and 100, got %v", percentage)
	}

	acct, adapter, err := a.adapterFor(ctx, accountID)
	if err != nil {
		return "", err
	}
	symbol = NativeSymbol(acct.Exchange, symbol)

	raw, err := adapter.FetchPositions(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("fetch positions: %w", err)
	}
	open := FilterOpenPositions(raw.Items)
	if len(open) == 0 {
		return "", validationf("no open position for %s", symbol)
	}
	pos := NormalizePosition(open[0])

	meta, err := adapter.InstrumentMeta(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("instrument meta: %w", err)
	}

	size := pos.Contracts * percentage / 100
	// Round down to the lot step; the epsilon guards against float
	// division landing a hair under a whole step.
	size = math.Floor(size/meta.LotSize+1e-9) * meta.LotSize
	if size < meta.MinSize {
		return "", validationf("close size %v below instrument minimum %v", size, meta.MinSize)
	}

	side := "sell"
	if pos.Side == domain.SideShort {
		side = "buy"
	}

	orderID, err := adapter.PlaceMarketOrder(ctx, domain.MarketOrderRequest{
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		ReduceOnly: true,
	})
	if err != nil {
		return "", fmt.Errorf("place close order: %w", err)
	}

	a.log.Info("position close placed",
		zap.String("account", accountID),
		zap.String("symbol", symbol),
		zap.Float64("percentage", percentage),
		zap.Float64("size", size),
		zap.String("orderId", orderID))
	return orderID, nil
}

func (a *ActionService) CancelOrder(ctx context.Context, accountID, instrumentID, orderID string) error {
	if orderID == "" {
		return validationf("orderId is required")
	}
	acct, adapter, err := a.adapterFor(ctx, accountID)
	if err != nil {
		return err
	}
	if instrumentID == "" {
		instrumentID = acct.Symbol
	}
	instrumentID = NativeSymbol(acct.Exchange, instrumentID)

	if err := adapter.CancelOrder(ctx, instrumentID, orderID); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	a.log.Info("order cancelled",
		zap.String("account", accountID),
		zap.String("instrument", instrumentID),
		zap.String("orderId", orderID))
	return nil
}

func (a *ActionService) CancelAllOrders(ctx context.Context, accountID string) error {
	acct, adapter, err := a.adapterFor(ctx, accountID)
	if err != nil {
		return err
	}
	symbol := NativeSymbol(acct.Exchange, acct.Symbol)
	if err := adapter.CancelAllOrders(ctx, symbol); err != nil {
		return fmt.Errorf("cancel all orders: %w", err)
	}
	a.log.Info("all orders cancelled",
		zap.String("account", accountID), zap.String("symbol", symbol))
	return nil
}

func (a *ActionService) gridKey(ctx context.Context, accountID, symbol string) (domain.AccountSymbol, error) {
	acct, err := a.registry.GetAccount(ctx, accountID)
	if err != nil {
		return domain.AccountSymbol{}, validationf("unknown account %s", accountID)
	}
	if symbol == "" {
		symbol = acct.Symbol
	}
	return domain.AccountSymbol{
		Exchange:  acct.Exchange,
		AccountID: acct.ID,
		Symbol:    NativeSymbol(acct.Exchange, symbol),
	}, nil
}

func (a *ActionService) DeleteGridLevel(ctx context.Context, accountID, symbol, side string, index int) error {
	gridSide, err := domain.ParseGridSide(side)
	if err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	if index < 0 {
		return validationf("levelIndex must be non-negative")
	}
	key, err := a.gridKey(ctx, accountID, symbol)
	if err != nil {
		return err
	}
	return a.grids.DeleteLevel(ctx, key, gridSide, index)
}

// ClearGridLevels clears one side, or both when side is empty.
func (a *ActionService) ClearGridLevels(ctx context.Context, accountID, symbol, side string) error {
	var sidePtr *domain.GridSide
	if side != "" {
		gridSide, err := domain.ParseGridSide(side)
		if err != nil {
			return &ValidationError{Msg: err.Error()}
		}
		sidePtr = &gridSide
	}
	key, err := a.gridKey(ctx, accountID, symbol)
	if err != nil {
		return err
	}
	return a.grids.ClearAll(ctx, key, sidePtr)
}
