package app

import (
	"net/http"

	"github.com/riskibarqy/player-risk-alerts/internal/interfaces/httpapi"
)

func newHTTPServer(c *Container) *http.Server {
	handler := httpapi.NewHandler(c.Alerts, c.Runs, c.Logger)
	router := httpapi.NewRouter(handler, c.Logger, c.Config.CORSAllowedOrigins)

	return &http.Server{
		Addr:         c.Config.HTTPAddr,
		Handler:      router,
		ReadTimeout:  c.Config.ReadTimeout,
		WriteTimeout: c.Config.WriteTimeout,
	}
}
