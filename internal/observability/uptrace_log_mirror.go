package observability

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
	otellog "go.opentelemetry.io/otel/log"
	otelglobal "go.opentelemetry.io/otel/log/global"
)

const uptraceLogInstrumentation = "player-risk-alerts/internal/platform/logging"

// Debug chatter emitted once per player per stage. Locally useful, too noisy to ship.
var unshippedDebugEvents = map[string]struct{}{
	"news articles fetched":           {},
	"roster still fresh, sync skipped": {},
}

func newUptraceLogMirror(serviceVersion string) logging.MirrorFunc {
	otelLogger := otelglobal.Logger(
		uptraceLogInstrumentation,
		otellog.WithInstrumentationVersion(serviceVersion),
	)

	return func(ctx context.Context, level logging.Level, msg string, args ...any) {
		if !shouldShipLog(level, msg, args) {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		severity := toOTelSeverity(level)
		if !otelLogger.Enabled(ctx, otellog.EnabledParameters{Severity: severity, EventName: msg}) {
			return
		}

		now := time.Now().UTC()
		var record otellog.Record
		record.SetTimestamp(now)
		record.SetObservedTimestamp(now)
		record.SetSeverity(severity)
		record.SetSeverityText(strings.ToUpper(level.String()))
		record.SetEventName(msg)
		record.SetBody(otellog.StringValue(msg))
		if runID := logging.RunIDFromContext(ctx); runID != "" {
			record.AddAttributes(otellog.String("pipeline.run_id", runID))
		}
		if attrs := buildOTelLogAttributes(args); len(attrs) > 0 {
			record.AddAttributes(attrs...)
		}
		otelLogger.Emit(ctx, record)
	}
}

// shouldShipLog drops health probe request lines and per-player debug chatter.
func shouldShipLog(level logging.Level, msg string, args []any) bool {
	if level == logging.LevelDebug {
		if _, noisy := unshippedDebugEvents[msg]; noisy {
			return false
		}
	}
	if msg != "http request" {
		return true
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, _ := args[i].(string); key == "path" {
			path, _ := args[i+1].(string)
			return !isHealthPath(path)
		}
	}
	return true
}

func isHealthPath(path string) bool {
	switch strings.ToLower(strings.TrimSpace(path)) {
	case "/healthz", "/health", "/livez", "/readyz":
		return true
	}
	return false
}

func buildOTelLogAttributes(args []any) []otellog.KeyValue {
	attrs := make([]otellog.KeyValue, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, _ := args[i].(string)
		if strings.TrimSpace(key) == "" {
			key = "arg_" + strconv.Itoa(i/2)
		}
		if i+1 == len(args) {
			attrs = append(attrs, otellog.Empty(key))
			break
		}
		attrs = append(attrs, otellog.KeyValue{Key: key, Value: toOTelLogValue(args[i+1])})
	}
	return attrs
}

func toOTelSeverity(level logging.Level) otellog.Severity {
	switch level {
	case logging.LevelDebug:
		return otellog.SeverityDebug
	case logging.LevelInfo:
		return otellog.SeverityInfo
	case logging.LevelWarn:
		return otellog.SeverityWarn
	case logging.LevelError:
		return otellog.SeverityError
	}
	if level < logging.LevelDebug {
		return otellog.SeverityTrace
	}
	return otellog.SeverityFatal
}

// toOTelLogValue converts the argument shapes the pipeline logs. Domain enums such as risk tags
// and stage names are string types and come out as plain strings.
func toOTelLogValue(value any) otellog.Value {
	switch v := value.(type) {
	case nil:
		return otellog.Value{}
	case string:
		return otellog.StringValue(v)
	case bool:
		return otellog.BoolValue(v)
	case int:
		return otellog.IntValue(v)
	case int64:
		return otellog.Int64Value(v)
	case float64:
		return otellog.Float64Value(v)
	case time.Time:
		return otellog.StringValue(v.UTC().Format(time.RFC3339Nano))
	case time.Duration:
		return otellog.StringValue(v.String())
	case error:
		return otellog.StringValue(v.Error())
	case fmt.Stringer:
		return otellog.StringValue(v.String())
	case []string:
		items := make([]otellog.Value, len(v))
		for i, s := range v {
			items[i] = otellog.StringValue(s)
		}
		return otellog.SliceValue(items...)
	case map[string]any:
		keys := slices.Sorted(maps.Keys(v))
		kvs := make([]otellog.KeyValue, 0, len(keys))
		for _, k := range keys {
			kvs = append(kvs, otellog.KeyValue{Key: k, Value: toOTelLogValue(v[k])})
		}
		return otellog.MapValue(kvs...)
	}
	if rv := reflect.ValueOf(value); rv.Kind() == reflect.String {
		return otellog.StringValue(rv.String())
	}
	return otellog.StringValue(fmt.Sprint(value))
}
