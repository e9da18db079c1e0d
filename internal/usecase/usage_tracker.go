package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/usage"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

const (
	defaultUsageBufferSize    = 1024
	defaultUsageBatchSize     = 64
	defaultUsageFlushInterval = 2 * time.Second
	defaultUsageWriteTimeout  = 5 * time.Second
)

type UsageTrackerConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	WriteTimeout  time.Duration
}

type UsageTrackerStats struct {
	Written int64
	Dropped int64
	Failed  int64
}

// UsageTracker records external call consumption into a ledger without blocking callers.
// Records are buffered and written in batches by a single background writer; ledger
// failures are logged and counted, never returned to the recording call site.
// A nil tracker discards everything.
type UsageTracker struct {
	ledger       usage.Ledger
	logger       *logging.Logger
	now          func() time.Time
	batchSize    int
	interval     time.Duration
	writeTimeout time.Duration

	records chan usage.Record
	flushes chan chan struct{}
	stop    chan struct{}
	done    chan struct{}
	closed  atomic.Bool

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewUsageTracker(ledger usage.Ledger, cfg UsageTrackerConfig, logger *logging.Logger) *UsageTracker {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultUsageBufferSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultUsageBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultUsageFlushInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultUsageWriteTimeout
	}

	t := &UsageTracker{
		ledger:       ledger,
		logger:       logger,
		now:          time.Now,
		batchSize:    cfg.BatchSize,
		interval:     cfg.FlushInterval,
		writeTimeout: cfg.WriteTimeout,
		records:      make(chan usage.Record, cfg.BufferSize),
		flushes:      make(chan chan struct{}),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	go t.loop()
	return t
}

// Record is the short form used by call sites that only know token counts.
func (t *UsageTracker) Record(runID, stage string, tokensIn, tokensOut int, latency time.Duration) {
	t.Track(usage.Record{
		RunID:     runID,
		Stage:     stage,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		Latency:   latency,
	})
}

// Track enqueues rec. It never blocks: when the buffer is full the record is dropped and logged.
func (t *UsageTracker) Track(rec usage.Record) {
	if t == nil {
		return
	}
	if t.closed.Load() {
		t.dropped.Add(1)
		t.logger.Warn("usage record dropped after tracker close", "run_id", rec.RunID, "stage", rec.Stage)
		return
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = t.now().UTC()
	}

	select {
	case t.records <- rec:
	default:
		t.dropped.Add(1)
		t.logger.Warn("usage buffer full, record dropped", "run_id", rec.RunID, "stage", rec.Stage)
	}
}

// Flush blocks until every record enqueued before the call has been handed to the ledger,
// or ctx is done.
func (t *UsageTracker) Flush(ctx context.Context) error {
	if t == nil || t.closed.Load() {
		return nil
	}

	ack := make(chan struct{})
	select {
	case t.flushes <- ack:
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending records and stops the writer. Records tracked afterwards are dropped.
func (t *UsageTracker) Close(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if t.closed.CompareAndSwap(false, true) {
		close(t.stop)
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *UsageTracker) Stats() UsageTrackerStats {
	if t == nil {
		return UsageTrackerStats{}
	}
	return UsageTrackerStats{
		Written: t.written.Load(),
		Dropped: t.dropped.Load(),
		Failed:  t.failed.Load(),
	}
}

func (t *UsageTracker) loop() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	batch := make([]usage.Record, 0, t.batchSize)
	for {
		select {
		case rec := <-t.records:
			batch = append(batch, rec)
			if len(batch) >= t.batchSize {
				batch = t.write(batch)
			}
		case <-ticker.C:
			batch = t.write(batch)
		case ack := <-t.flushes:
			batch = t.write(t.drain(batch))
			close(ack)
		case <-t.stop:
			t.write(t.drain(batch))
			return
		}
	}
}

func (t *UsageTracker) drain(batch []usage.Record) []usage.Record {
	for {
		select {
		case rec := <-t.records:
			batch = append(batch, rec)
		default:
			return batch
		}
	}
}

func (t *UsageTracker) write(batch []usage.Record) []usage.Record {
	if len(batch) == 0 {
		return batch
	}
	if t.ledger == nil {
		t.dropped.Add(int64(len(batch)))
		return batch[:0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.writeTimeout)
	defer cancel()

	if err := t.ledger.Append(ctx, batch); err != nil {
		t.failed.Add(int64(len(batch)))
		t.logger.Error("write usage records failed", "records", len(batch), "run_id", batch[0].RunID, "error", err)
	} else {
		t.written.Add(int64(len(batch)))
	}
	return make([]usage.Record, 0, t.batchSize)
}
