package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

const priceTTL = 60 * time.Second

// MarketPriceCache keeps the last seen market price per
// (exchange, symbol). The 60s TTL means consumers either see a
// recent price or none at all.
type MarketPriceCache struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
	now    func() time.Time
}

func NewMarketPriceCache(rdb *redis.Client, prefix string, log *zap.Logger) *MarketPriceCache {
	return &MarketPriceCache{rdb: rdb, prefix: prefix, log: log, now: time.Now}
}

func (c *MarketPriceCache) key(exchange, symbol string) string {
	return fmt.Sprintf("%s:price:%s:%s", c.prefix, exchange, symbol)
}

func (c *MarketPriceCache) Set(ctx context.Context, exchange, symbol string, price float64) error {
	body, err := json.Marshal(domain.PricePoint{Price: price, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("price marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(exchange, symbol), body, priceTTL).Err(); err != nil {
		return fmt.Errorf("price write: %w", err)
	}
	return nil
}

func (c *MarketPriceCache) Get(ctx context.Context, exchange, symbol string) (*domain.PricePoint, error) {
	raw, err := c.rdb.Get(ctx, c.key(exchange, symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("price read: %w", err)
	}
	var p domain.PricePoint
	if err := json.Unmarshal(raw, &p); err != nil {
		c.log.Warn("corrupt price entry dropped",
			zap.String("exchange", exchange), zap.String("symbol", symbol), zap.Error(err))
		return nil, nil
	}
	return &p, nil
}
