package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitos/crypto_account_monitor/internal/domain"
)

const latestSuffix = "latest"

// SnapshotStore keeps timestamped captures per (kind, account) plus a
// separate latest pointer. The latest pointer is its own key, not the
// newest history entry, so the hot read path never scans and history
// entries can expire underneath it.
type SnapshotStore struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
	now    func() time.Time
}

func NewSnapshotStore(rdb *redis.Client, prefix string, log *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		rdb:    rdb,
		prefix: prefix,
		log:    log,
		now:    time.Now,
	}
}

func (s *SnapshotStore) key(kind domain.SnapshotKind, accountID, suffix string) string {
	return fmt.Sprintf("%s:snap:%s:%s:%s", s.prefix, kind, accountID, suffix)
}

// Store writes the history entry and overwrites the latest pointer,
// both under the kind's TTL. A failed write is logged and dropped:
// one account's store failure must not abort the collection cycle,
// and the next cycle heals the gap.
func (s *SnapshotStore) Store(ctx context.Context, kind domain.SnapshotKind, accountID string, payload any) {
	ms := s.now().UnixMilli()

	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("snapshot payload marshal failed",
			zap.String("kind", string(kind)), zap.String("account", accountID), zap.Error(err))
		return
	}
	body, err := json.Marshal(domain.Snapshot{Timestamp: ms, Data: data})
	if err != nil {
		s.log.Error("snapshot envelope marshal failed",
			zap.String("kind", string(kind)), zap.String("account", accountID), zap.Error(err))
		return
	}

	ttl := kind.TTL()
	histKey := s.key(kind, accountID, strconv.FormatInt(ms, 10))
	if err := s.rdb.Set(ctx, histKey, body, ttl).Err(); err != nil {
		s.log.Error("snapshot history write failed",
			zap.String("key", histKey), zap.Error(err))
		return
	}
	// Written back-to-back with the history entry; a crash in between
	// leaves latest stale for one cycle, which is acceptable.
	latestKey := s.key(kind, accountID, latestSuffix)
	if err := s.rdb.Set(ctx, latestKey, body, ttl).Err(); err != nil {
		s.log.Error("snapshot latest write failed",
			zap.String("key", latestKey), zap.Error(err))
	}
}

// Latest returns nil when no snapshot exists, it expired, or the
// stored bytes do not parse. Only transport failures surface as
// errors.
func (s *SnapshotStore) Latest(ctx context.Context, kind domain.SnapshotKind, accountID string) (*domain.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, s.key(kind, accountID, latestSuffix)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot latest read: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.log.Warn("corrupt latest snapshot dropped",
			zap.String("kind", string(kind)), zap.String("account", accountID), zap.Error(err))
		return nil, nil
	}
	return &snap, nil
}

// History scans every retained key for the account, excludes the
// latest pointer, keeps timestamps within [startMs, endMs] inclusive
// and returns the entries sorted ascending. Cost is proportional to
// the retention window, not the requested range.
func (s *SnapshotStore) History(ctx context.Context, kind domain.SnapshotKind, accountID string, startMs, endMs int64) ([]domain.Snapshot, error) {
	pattern := s.key(kind, accountID, "*")

	type entry struct {
		key string
		ts  int64
	}
	var entries []entry

	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		suffix := key[strings.LastIndexByte(key, ':')+1:]
		if suffix == latestSuffix {
			continue
		}
		ts, err := strconv.ParseInt(suffix, 10, 64)
		if err != nil {
			s.log.Warn("snapshot key with bad timestamp skipped", zap.String("key", key))
			continue
		}
		if ts < startMs || ts > endMs {
			continue
		}
		entries = append(entries, entry{key: key, ts: ts})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("snapshot history scan: %w", err)
	}
	if len(entries) == 0 {
		return []domain.Snapshot{}, nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ts < entries[j].ts })

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot history fetch: %w", err)
	}

	snaps := make([]domain.Snapshot, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Expired between scan and fetch.
			continue
		}
		var snap domain.Snapshot
		if err := json.Unmarshal([]byte(str), &snap); err != nil {
			s.log.Warn("corrupt history snapshot dropped", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
