package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const equityTTL = 7 * 24 * time.Hour

// EquityStore tracks scalar equity per account as timestamped samples
// and answers "what was equity approximately N hours ago". Samples
// are never listed out to clients, only matched against a target
// instant.
type EquityStore struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
	now    func() time.Time
}

func NewEquityStore(rdb *redis.Client, prefix string, log *zap.Logger) *EquityStore {
	return &EquityStore{rdb: rdb, prefix: prefix, log: log, now: time.Now}
}

func (e *EquityStore) key(accountID, suffix string) string {
	return fmt.Sprintf("%s:equity:%s:%s", e.prefix, accountID, suffix)
}

func (e *EquityStore) Record(ctx context.Context, accountID string, value float64) error {
	ms := e.now().UnixMilli()
	key := e.key(accountID, strconv.FormatInt(ms, 10))
	val := strconv.FormatFloat(value, 'f', -1, 64)
	if err := e.rdb.Set(ctx, key, val, equityTTL).Err(); err != nil {
		return fmt.Errorf("equity write: %w", err)
	}
	return nil
}

// NHoursAgo returns the sample numerically closest to now-hours,
// restricted to a one-hour window either side of the target. Returns
// nil when no sample lands in the window. Equidistant samples resolve
// to the earlier one so repeated queries stay deterministic.
func (e *EquityStore) NHoursAgo(ctx context.Context, accountID string, hours float64) (*float64, error) {
	target := e.now().UnixMilli() - int64(hours*float64(time.Hour/time.Millisecond))
	window := int64(time.Hour / time.Millisecond)

	bestKey := ""
	var bestTs, bestDist int64

	iter := e.rdb.Scan(ctx, 0, e.key(accountID, "*"), 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		ts, err := strconv.ParseInt(key[strings.LastIndexByte(key, ':')+1:], 10, 64)
		if err != nil {
			continue
		}
		dist := int64(math.Abs(float64(ts - target)))
		if dist > window {
			continue
		}
		if bestKey == "" || dist < bestDist || (dist == bestDist && ts < bestTs) {
			bestKey, bestTs, bestDist = key, ts, dist
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("equity scan: %w", err)
	}
	if bestKey == "" {
		return nil, nil
	}

	raw, err := e.rdb.Get(ctx, bestKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("equity read: %w", err)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.log.Warn("corrupt equity sample dropped", zap.String("key", bestKey), zap.Error(err))
		return nil, nil
	}
	return &value, nil
}
