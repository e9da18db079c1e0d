package httpapi

import (
	"context"
	"net/http"
	"strconv"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
)

type responseEnvelope struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

// errorBody reports the same reason codes a run summary uses for failed fixtures.
type errorBody struct {
	Code              int    `json:"code"`
	Status            string `json:"status"`
	Reason            string `json:"reason"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

type errorClass struct {
	httpStatus int
	status     string
}

var errorClasses = map[string]errorClass{
	usecase.ReasonInvalidInput:      {http.StatusBadRequest, "INVALID_ARGUMENT"},
	usecase.ReasonDataNotFound:      {http.StatusNotFound, "NOT_FOUND"},
	usecase.ReasonTeamNotFound:      {http.StatusNotFound, "NOT_FOUND"},
	usecase.ReasonRateLimited:       {http.StatusTooManyRequests, "RESOURCE_EXHAUSTED"},
	usecase.ReasonSourceUnavailable: {http.StatusServiceUnavailable, "UNAVAILABLE"},
	usecase.ReasonUnavailable:       {http.StatusServiceUnavailable, "UNAVAILABLE"},
	usecase.ReasonTransient:         {http.StatusGatewayTimeout, "DEADLINE_EXCEEDED"},
	usecase.ReasonCancelled:         {499, "CANCELLED"},
}

var internalClass = errorClass{http.StatusInternalServerError, "INTERNAL"}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(_ context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, responseEnvelope{Data: data})
}

// writeError hides the message of anything it cannot classify so storage errors never reach
// the caller verbatim.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	reason := usecase.Classify(err)
	class, known := errorClasses[reason]
	if !known {
		writeInternalError(ctx, w)
		return
	}

	body := &errorBody{
		Code:    class.httpStatus,
		Status:  class.status,
		Reason:  reason,
		Message: err.Error(),
	}
	if wait, ok := usecase.RetryAfterHint(err); ok {
		body.RetryAfterSeconds = int(wait.Seconds() + 0.5)
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	}
	writeJSON(w, class.httpStatus, responseEnvelope{Error: body})
}

func writeInternalError(_ context.Context, w http.ResponseWriter) {
	writeJSON(w, internalClass.httpStatus, responseEnvelope{Error: &errorBody{
		Code:    internalClass.httpStatus,
		Status:  internalClass.status,
		Reason:  usecase.ReasonUnknown,
		Message: "internal server error",
	}})
}
