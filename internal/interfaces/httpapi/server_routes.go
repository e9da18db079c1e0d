package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerAlertRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/alerts/latest", handler.LatestAlerts)
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}/alerts", handler.ListFixtureAlerts)
	mux.HandleFunc("GET /v1/runs/{runID}/alerts", handler.ListRunAlerts)
}

func registerRunRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/runs", handler.ListRuns)
	mux.HandleFunc("GET /v1/runs/{runID}", handler.GetRun)
	mux.HandleFunc("GET /v1/runs/{runID}/usage", handler.GetRunUsage)
}
