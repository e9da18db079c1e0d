// Package usageledger stores per-call usage records in Redis, indexed by run.
package usageledger

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/usage"
)

const (
	defaultPrefix = "usage"
	runsKeySuffix = "runs"
)

type Option func(*RedisLedger)

// WithPrefix namespaces every key, e.g. "usage:staging".
func WithPrefix(prefix string) Option {
	return func(l *RedisLedger) {
		if prefix != "" {
			l.prefix = prefix
		}
	}
}

// WithRetention expires a run's record list after ttl. Zero keeps records forever.
func WithRetention(ttl time.Duration) Option {
	return func(l *RedisLedger) {
		l.retention = ttl
	}
}

// RedisLedger keeps one list per run (usage:{run_id}) plus a sorted set of run ids scored by
// first-seen time (usage:runs).
type RedisLedger struct {
	rdb       redis.UniversalClient
	prefix    string
	retention time.Duration
}

func NewRedisLedger(rdb redis.UniversalClient, opts ...Option) *RedisLedger {
	l := &RedisLedger{rdb: rdb, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *RedisLedger) Append(ctx context.Context, records []usage.Record) error {
	if len(records) == 0 {
		return nil
	}

	byRun := make(map[string][]any)
	firstSeen := make(map[string]time.Time)
	order := make([]string, 0)
	for _, rec := range records {
		if rec.RunID == "" {
			return fmt.Errorf("usage record run id is required")
		}
		payload, err := sonic.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal usage record: %w", err)
		}
		if _, ok := byRun[rec.RunID]; !ok {
			order = append(order, rec.RunID)
			firstSeen[rec.RunID] = rec.RecordedAt
		}
		byRun[rec.RunID] = append(byRun[rec.RunID], payload)
	}

	pipe := l.rdb.TxPipeline()
	for _, runID := range order {
		key := l.runKey(runID)
		pipe.RPush(ctx, key, byRun[runID]...)
		if l.retention > 0 {
			pipe.Expire(ctx, key, l.retention)
		}
		score := firstSeen[runID]
		if score.IsZero() {
			score = time.Now()
		}
		pipe.ZAddNX(ctx, l.runsKey(), redis.Z{Score: float64(score.Unix()), Member: runID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append usage records: %w", err)
	}
	return nil
}

func (l *RedisLedger) ListByRun(ctx context.Context, runID string) ([]usage.Record, error) {
	raw, err := l.rdb.LRange(ctx, l.runKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list usage records: %w", err)
	}

	out := make([]usage.Record, 0, len(raw))
	for i, item := range raw {
		var rec usage.Record
		if err := sonic.UnmarshalString(item, &rec); err != nil {
			return nil, fmt.Errorf("decode usage record %d of run %s: %w", i, runID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListRuns returns run ids newest first. Run ids sort chronologically, so ties on the
// first-seen score fall back to reverse lexical order.
func (l *RedisLedger) ListRuns(ctx context.Context, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := l.rdb.ZRevRange(ctx, l.runsKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list usage runs: %w", err)
	}
	return ids, nil
}

func (l *RedisLedger) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}

func (l *RedisLedger) runKey(runID string) string {
	return l.prefix + ":" + runID
}

func (l *RedisLedger) runsKey() string {
	return l.prefix + ":" + runsKeySuffix
}
