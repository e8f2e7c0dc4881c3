package server

import (
	"io"
	"net/http"

	"github.com/afroash/storm-antenna/internal/metrics"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter wires every route. stream may be nil to disable /ws/status and
// accessLog may be nil to disable request logging.
func NewRouter(api *APIHandler, stream http.Handler, accessLog io.Writer, logger zerolog.Logger) http.Handler {
	r := mux.NewRouter()

	handle := func(path string, h http.Handler, methods ...string) {
		counter := metrics.HTTPRequests.MustCurryWith(prometheus.Labels{"route": path})
		r.Handle(path, promhttp.InstrumentHandlerCounter(counter, h)).Methods(methods...)
	}
	get := func(path string, h http.HandlerFunc) {
		handle(path, h, http.MethodGet)
	}
	control := func(path string, h http.HandlerFunc) {
		handle(path, h, http.MethodGet, http.MethodPost)
	}

	// Status page and JSON status
	control("/", api.HandlePage)
	control("/api/status", api.HandleStatus)
	control("/api/sensors", api.HandleStatus)

	// Control
	control("/antenna/{state:on|off}", api.HandleAntenna)
	control("/led/{name}/{state:on|off}", api.HandleLED)
	control("/test/outputs", api.HandleTestOutputs)
	control("/test/individual", api.HandleTestIndividual)
	control("/reset/overrides", api.HandleResetOverrides)

	// History
	get("/api/history", api.HandleHistory)
	get("/api/commands", api.HandleCommands)
	get("/api/stats", api.HandleStats)

	get("/health", api.HandleHealth)
	handle("/metrics", promhttp.Handler(), http.MethodGet)

	if stream != nil {
		handle("/ws/status", stream, http.MethodGet)
	}

	unmatched := promhttp.InstrumentHandlerCounter(
		metrics.HTTPRequests.MustCurryWith(prometheus.Labels{"route": "unmatched"}),
		http.HandlerFunc(notFound),
	)
	r.NotFoundHandler = unmatched
	r.MethodNotAllowedHandler = unmatched

	var h http.Handler = r
	if accessLog != nil {
		h = handlers.LoggingHandler(accessLog, h)
	}
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger}),
		handlers.PrintRecoveryStack(false),
	)(h)
}

// recoveryLogger adapts zerolog to handlers.RecoveryHandlerLogger
type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Interface("panic", v).Msg("Recovered from handler panic")
}
