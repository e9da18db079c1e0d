package observability

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	"github.com/riskibarqy/player-risk-alerts/internal/platform/retry"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap/zapcore"
)

const (
	shipQueueSize     = 1024
	shipBatchRecords  = 50
	shipFlushInterval = time.Second
	shipDrainTimeout  = 5 * time.Second
)

// InitLogger builds the process logger: stdout in the configured format, teed to Better Stack
// when enabled. The returned shutdown flushes the last batch.
func InitLogger(cfg config.Config) (*logging.Logger, func(context.Context) error, error) {
	return initLogger(cfg, os.Stdout)
}

func initLogger(cfg config.Config, stdout io.Writer) (*logging.Logger, func(context.Context) error, error) {
	if !cfg.BetterStackEnabled {
		logger := logging.New(stdout, cfg.LogFormat, cfg.LogLevel)
		return logger, func(context.Context) error { return syncLogger(logger) }, nil
	}

	endpoint := normalizeBetterStackEndpoint(cfg.BetterStackEndpoint)
	if endpoint == "" {
		return nil, nil, fmt.Errorf("betterstack endpoint cannot be empty")
	}

	shipper := newBetterStackShipper(endpoint, strings.TrimSpace(cfg.BetterStackToken), cfg.BetterStackTimeout)
	shipCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(betterStackEncoderConfig()),
		zapcore.AddSync(shipper),
		cfg.BetterStackMinLevel,
	)

	logger := logging.New(stdout, cfg.LogFormat, cfg.LogLevel, shipCore).With(
		"service", cfg.ServiceName,
		"env", cfg.AppEnv,
	)
	logger.Info("betterstack enabled", "endpoint", endpoint, "min_level", cfg.BetterStackMinLevel.String())

	return logger, func(ctx context.Context) error {
		if ctx == nil {
			ctx = context.Background()
		}
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, shipDrainTimeout)
			defer cancel()
		}
		if err := syncLogger(logger); err != nil {
			return err
		}
		if err := shipper.Close(ctx); err != nil {
			return fmt.Errorf("drain betterstack queue: %w", err)
		}
		return nil
	}, nil
}

func syncLogger(logger *logging.Logger) error {
	err := logger.Sync()
	if err == nil {
		return nil
	}
	// stdout is a terminal or pipe in CLI use and does not support fsync.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "bad file descriptor") || strings.Contains(msg, "invalid argument") {
		return nil
	}
	return err
}

func betterStackEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "dt",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func normalizeBetterStackEndpoint(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	return "https://" + value
}

// betterStackShipper batches JSON records into array bodies. A failing fixture tends to log a
// burst of errors at once, so records go out in groups of up to shipBatchRecords or every
// shipFlushInterval, whichever comes first.
type betterStackShipper struct {
	endpoint string
	token    string
	client   *http.Client
	policy   retry.Policy

	mu        sync.RWMutex
	closed    bool
	queue     chan []byte
	closeOnce sync.Once
	done      chan struct{}
	dropped   atomic.Uint64
}

func newBetterStackShipper(endpoint, token string, timeout time.Duration) *betterStackShipper {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	s := &betterStackShipper{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: timeout},
		policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			Jitter:      0.2,
			Retryable:   func(err error, _ int) bool { return !crerr.Is(err, errShipRejected) },
		},
		queue: make(chan []byte, shipQueueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

// Write never blocks the logger. Records are dropped when the queue is full or closed.
func (s *betterStackShipper) Write(p []byte) (int, error) {
	record := bytes.TrimSpace(p)
	if len(record) == 0 {
		return len(p), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return len(p), nil
	}

	// zap reuses its buffer after Write returns.
	select {
	case s.queue <- append([]byte(nil), record...):
	default:
		if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
			fmt.Fprintf(os.Stderr, "betterstack queue full; dropped logs=%d\n", n)
		}
	}
	return len(p), nil
}

func (s *betterStackShipper) Sync() error {
	return nil
}

func (s *betterStackShipper) run() {
	defer close(s.done)

	ticker := time.NewTicker(shipFlushInterval)
	defer ticker.Stop()

	batch := make([][]byte, 0, shipBatchRecords)
	flush := func() {
		if len(batch) > 0 {
			s.send(batch)
			batch = batch[:0]
		}
	}
	for {
		select {
		case record, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, record)
			if len(batch) == shipBatchRecords {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

var errShipRejected = crerr.New("betterstack rejected batch")

func (s *betterStackShipper) send(batch [][]byte) {
	body := bytebufferpool.Get()
	defer bytebufferpool.Put(body)
	_ = body.WriteByte('[')
	for i, record := range batch {
		if i > 0 {
			_ = body.WriteByte(',')
		}
		_, _ = body.Write(record)
	}
	_ = body.WriteByte(']')

	_, _, err := retry.Do(context.Background(), s.policy, func(ctx context.Context, _ int) (struct{}, error) {
		return struct{}{}, s.post(ctx, body.B)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "betterstack dropped %d log records: %v\n", len(batch), err)
	}
}

func (s *betterStackShipper) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return crerr.Mark(err, errShipRejected)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("betterstack status=%d", resp.StatusCode)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return crerr.Mark(fmt.Errorf("betterstack status=%d", resp.StatusCode), errShipRejected)
	}
	return nil
}

// Close stops accepting records and waits for the final batch to be sent.
func (s *betterStackShipper) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
