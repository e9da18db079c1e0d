// Package logging wraps zap with key/value call sites, a process default and an optional
// mirror that forwards records to a second sink.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// Format selects the record encoder.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

func ParseFormat(v string) Format {
	if strings.EqualFold(strings.TrimSpace(v), string(FormatConsole)) {
		return FormatConsole
	}
	return FormatJSON
}

func (f Format) encoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.FunctionKey = zapcore.OmitKey
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	if f == FormatConsole {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// MirrorFunc receives every record that passes the level check, after it is written locally.
type MirrorFunc func(ctx context.Context, level Level, msg string, args ...any)

type Logger struct {
	zap    *zap.Logger
	synced atomic.Bool
}

var (
	defaultLogger atomic.Pointer[Logger]
	mirror        atomic.Pointer[MirrorFunc]
)

func init() {
	defaultLogger.Store(NewNop())
}

// New builds a logger writing to w. Extra cores, such as a log shipper, are teed in.
func New(w io.Writer, format Format, level Level, extra ...zapcore.Core) *Logger {
	if w == nil {
		w = os.Stdout
	}

	cores := []zapcore.Core{zapcore.NewCore(format.encoder(), zapcore.Lock(zapcore.AddSync(w)), level)}
	for _, core := range extra {
		if core != nil {
			cores = append(cores, core)
		}
	}

	// Skip log() and the exported level method so callers show up as the caller.
	z := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{zap: z}
}

func NewNop() *Logger {
	return &Logger{zap: zap.NewNop()}
}

func Default() *Logger {
	if logger := defaultLogger.Load(); logger != nil {
		return logger
	}
	return NewNop()
}

func SetDefault(logger *Logger) {
	if logger == nil {
		logger = NewNop()
	}
	defaultLogger.Store(logger)
}

// SetMirror installs fn as the process-wide mirror. A nil fn removes it.
func SetMirror(fn MirrorFunc) {
	if fn == nil {
		mirror.Store(nil)
		return
	}
	mirror.Store(&fn)
}

// Sync flushes buffered records once; later calls are no-ops.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil || !l.synced.CompareAndSwap(false, true) {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return NewNop()
	}
	return &Logger{zap: l.zap.With(fieldsFromArgs(args)...)}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(context.Background(), LevelDebug, msg, args)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(context.Background(), LevelInfo, msg, args)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(context.Background(), LevelWarn, msg, args)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(context.Background(), LevelError, msg, args)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.log(ctx, LevelError, msg, args)
}

func (l *Logger) log(ctx context.Context, level Level, msg string, args []any) {
	if l == nil || l.zap == nil {
		l = Default()
	}
	ce := l.zap.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(append(fieldsFromArgs(args), contextFields(ctx)...)...)

	if fn := mirror.Load(); fn != nil {
		(*fn)(ctx, level, msg, args...)
	}
}

// contextFields correlates a record with its pipeline run and, when a span is active, its trace.
func contextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, zap.Stringer("trace_id", sc.TraceID()), zap.Stringer("span_id", sc.SpanID()))
	}
	return fields
}

// fieldsFromArgs pairs alternating keys and values. A non-string key becomes "arg" and a
// trailing key without a value is logged as null.
func fieldsFromArgs(args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		key, _ := args[i].(string)
		if key == "" {
			key = "arg"
		}
		if i+1 == len(args) {
			fields = append(fields, zap.Any(key, nil))
			break
		}
		fields = append(fields, field(key, args[i+1]))
	}
	return fields
}

func field(key string, value any) zap.Field {
	switch v := value.(type) {
	case error:
		return zap.NamedError(key, v)
	case time.Time:
		return zap.Time(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case fmt.Stringer:
		return zap.Stringer(key, v)
	default:
		return zap.Any(key, v)
	}
}
