package httpapi

import (
	"net/http"

	"github.com/riskibarqy/player-risk-alerts/internal/platform/logging"
)

// NewRouter serves the read-only alert and run API.
func NewRouter(handler *Handler, logger *logging.Logger, corsAllowedOrigins []string) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	registerAlertRoutes(mux, handler)
	registerRunRoutes(mux, handler)

	return RequestTracing(RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(r.Context(), "handler panicked", "method", r.Method, "path", r.URL.Path, "panic", rec)
				writeInternalError(r.Context(), w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
