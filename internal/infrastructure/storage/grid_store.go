package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

const levelFieldPrefix = "level_"

// GridStore holds the synthetic resting-order ladders. Each
// (exchange, account, symbol, side) is one hash whose fields are
// level_{index}; writing an existing index overwrites it. Per-side
// keys make "clear all buys" one DEL instead of a filtered scan.
type GridStore struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

func NewGridStore(rdb *redis.Client, prefix string, log *zap.Logger) *GridStore {
	return &GridStore{rdb: rdb, prefix: prefix, log: log}
}

func (g *GridStore) key(k domain.AccountSymbol, side domain.GridSide) string {
	return fmt.Sprintf("%s:grid:%s:%s:%s:%s", g.prefix, k.Exchange, k.AccountID, k.Symbol, side)
}

func levelField(index int) string {
	return levelFieldPrefix + strconv.Itoa(index)
}

func (g *GridStore) SetLevel(ctx context.Context, key domain.AccountSymbol, side domain.GridSide, index int, level domain.GridLevel) error {
	level.Index = index
	body, err := json.Marshal(level)
	if err != nil {
		return fmt.Errorf("grid level marshal: %w", err)
	}
	if err := g.rdb.HSet(ctx, g.key(key, side), levelField(index), body).Err(); err != nil {
		return fmt.Errorf("grid level write: %w", err)
	}
	return nil
}

// GetLevels returns all set indices sorted ascending. Fields that do
// not parse are dropped and logged, never surfaced: a corrupt rung
// must not hide the rest of the ladder from the dashboard.
func (g *GridStore) GetLevels(ctx context.Context, key domain.AccountSymbol, side domain.GridSide) ([]domain.GridLevel, error) {
	fields, err := g.rdb.HGetAll(ctx, g.key(key, side)).Result()
	if err != nil {
		return nil, fmt.Errorf("grid levels read: %w", err)
	}
	return g.parseFields(fields, g.key(key, side)), nil
}

func (g *GridStore) parseFields(fields map[string]string, key string) []domain.GridLevel {
	levels := make([]domain.GridLevel, 0, len(fields))
	for field, val := range fields {
		idxStr, ok := strings.CutPrefix(field, levelFieldPrefix)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		var lvl domain.GridLevel
		if err := json.Unmarshal([]byte(val), &lvl); err != nil {
			g.log.Warn("corrupt grid level dropped",
				zap.String("key", key), zap.String("field", field), zap.Error(err))
			continue
		}
		lvl.Index = idx
		levels = append(levels, lvl)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Index < levels[j].Index })
	return levels
}

// GetBothSides issues the two per-side reads concurrently; there is
// no ordering dependency between them.
func (g *GridStore) GetBothSides(ctx context.Context, key domain.AccountSymbol) (*domain.GridLadder, error) {
	ladder := &domain.GridLadder{}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		levels, err := g.GetLevels(ctx, key, domain.GridBuy)
		if err != nil {
			return err
		}
		ladder.Buy = levels
		return nil
	})
	eg.Go(func() error {
		levels, err := g.GetLevels(ctx, key, domain.GridSell)
		if err != nil {
			return err
		}
		ladder.Sell = levels
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return ladder, nil
}

func (g *GridStore) DeleteLevel(ctx context.Context, key domain.AccountSymbol, side domain.GridSide, index int) error {
	if err := g.rdb.HDel(ctx, g.key(key, side), levelField(index)).Err(); err != nil {
		return fmt.Errorf("grid level delete: %w", err)
	}
	return nil
}

// ClearAll removes one side's full set, or both when side is nil.
func (g *GridStore) ClearAll(ctx context.Context, key domain.AccountSymbol, side *domain.GridSide) error {
	keys := []string{g.key(key, domain.GridBuy), g.key(key, domain.GridSell)}
	if side != nil {
		keys = []string{g.key(key, *side)}
	}
	if err := g.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("grid clear: %w", err)
	}
	return nil
}

// GetBatch fetches every ladder for the given pairs in a single
// pipelined round trip. Dashboard pages listing many accounts would
// otherwise pay 2N sequential reads.
func (g *GridStore) GetBatch(ctx context.Context, keys []domain.AccountSymbol) (map[domain.AccountSymbol]*domain.GridLadder, error) {
	if len(keys) == 0 {
		return map[domain.AccountSymbol]*domain.GridLadder{}, nil
	}

	type cmdPair struct {
		buy  *redis.MapStringStringCmd
		sell *redis.MapStringStringCmd
	}
	cmds := make([]cmdPair, len(keys))

	_, err := g.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i].buy = pipe.HGetAll(ctx, g.key(k, domain.GridBuy))
			cmds[i].sell = pipe.HGetAll(ctx, g.key(k, domain.GridSell))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("grid batch read: %w", err)
	}

	out := make(map[domain.AccountSymbol]*domain.GridLadder, len(keys))
	for i, k := range keys {
		out[k] = &domain.GridLadder{
			Buy:  g.parseFields(cmds[i].buy.Val(), g.key(k, domain.GridBuy)),
			Sell: g.parseFields(cmds[i].sell.Val(), g.key(k, domain.GridSell)),
		}
	}
	return out, nil
}
