package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/afroash/storm-antenna/internal/models"
	"github.com/afroash/storm-antenna/internal/storage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	defaultStatsDays    = 7
)

// APIHandler serves the control routes, the JSON API and the status page
type APIHandler struct {
	ctrl    Controller
	memory  RecordStore
	history HistoricalStore
	logger  zerolog.Logger
}

// NewAPIHandler creates a new API handler. history may be nil when the
// database is disabled; history queries then fall back to memory.
func NewAPIHandler(ctrl Controller, memory RecordStore, history HistoricalStore, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		ctrl:    ctrl,
		memory:  memory,
		history: history,
		logger:  logger,
	}
}

// StatusResponse is the JSON status document
type StatusResponse struct {
	Device           *models.DeviceInfo   `json:"device"`
	Kind             models.RecordKind    `json:"kind"`
	RecordedAt       time.Time            `json:"recorded_at"`
	Presence         bool                 `json:"presence"`
	Storm            bool                 `json:"storm"`
	Clouds           bool                 `json:"clouds"`
	CloudsSensor     bool                 `json:"clouds_sensor"`
	Temperature      *float64             `json:"temperature"`
	Humidity         *float64             `json:"humidity"`
	AntennaConnected bool                 `json:"antenna_connected"`
	OnAir            bool                 `json:"on_air"`
	Timestamp        int64                `json:"timestamp"`
	Uptime           int64                `json:"uptime"`
	ControlReason    string               `json:"control_reason"`
	WeatherStatus    string               `json:"weather_status"`
	WeatherKnown     bool                 `json:"weather_known"`
	ManualOverrides  models.OverrideState `json:"manual_overrides"`
	ActiveOverrides  []models.Channel     `json:"active_overrides"`
	Faults           []string             `json:"faults,omitempty"`
	Thresholds       models.Thresholds    `json:"thresholds"`
}

// NewStatusResponse flattens a record into the status document
func NewStatusResponse(rec *models.CycleRecord, device *models.DeviceInfo, th models.Thresholds) StatusResponse {
	return StatusResponse{
		Device:           device,
		Kind:             rec.Kind,
		RecordedAt:       rec.RecordedAt,
		Presence:         rec.Snapshot.Presence,
		Storm:            rec.Snapshot.Storm,
		Clouds:           rec.Weather.PoorWeather,
		CloudsSensor:     rec.Snapshot.Clouds,
		Temperature:      rec.Snapshot.Temperature,
		Humidity:         rec.Snapshot.Humidity,
		AntennaConnected: rec.AntennaState(),
		OnAir:            rec.OnAir(),
		Timestamp:        rec.Snapshot.Timestamp,
		Uptime:           rec.Snapshot.Timestamp / 1000,
		ControlReason:    rec.Plan.Reason,
		WeatherStatus:    rec.Weather.StatusText,
		WeatherKnown:     rec.Weather.Known,
		ManualOverrides:  rec.Overrides,
		ActiveOverrides:  rec.Overrides.Active(),
		Faults:           rec.Faults,
		Thresholds:       th,
	}
}

// HandleStatus runs a decision cycle and returns the resulting status
func (api *APIHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	rec := api.ctrl.Cycle(r.Context())
	api.writeJSON(w, NewStatusResponse(rec, api.ctrl.Device(), api.ctrl.Thresholds()))
}

// HandleAntenna switches the antenna relay and pins it as a manual override
func (api *APIHandler) HandleAntenna(w http.ResponseWriter, r *http.Request) {
	on := mux.Vars(r)["state"] == "on"
	api.ctrl.Cycle(r.Context())

	if err := api.ctrl.Manual(r.Context(), models.ChannelAntenna, on); err != nil {
		api.serverError(w, err, "antenna command failed")
		return
	}

	if on {
		writeText(w, http.StatusOK, "Antenna Connected")
	} else {
		writeText(w, http.StatusOK, "Antenna Disconnected")
	}
}

// HandleLED switches an indicator LED and pins it as a manual override
func (api *APIHandler) HandleLED(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	on := vars["state"] == "on"

	ch, err := models.ParseLEDName(vars["name"])
	if err != nil || !slices.Contains(api.ctrl.Channels(), ch) {
		notFound(w, r)
		return
	}

	api.ctrl.Cycle(r.Context())
	if err := api.ctrl.Manual(r.Context(), ch, on); err != nil {
		api.serverError(w, err, "LED command failed")
		return
	}

	state := "OFF"
	if on {
		state = "ON"
	}
	writeText(w, http.StatusOK, ch.Label()+" "+state)
}

// HandleTestOutputs runs the all-outputs test sequence
func (api *APIHandler) HandleTestOutputs(w http.ResponseWriter, r *http.Request) {
	api.ctrl.Cycle(r.Context())
	if err := api.ctrl.TestOutputs(r.Context()); err != nil {
		api.serverError(w, err, "output test failed")
		return
	}
	writeText(w, http.StatusOK, "Output test completed")
}

// HandleTestIndividual blinks each LED in turn
func (api *APIHandler) HandleTestIndividual(w http.ResponseWriter, r *http.Request) {
	api.ctrl.Cycle(r.Context())
	if err := api.ctrl.TestIndividual(r.Context()); err != nil {
		api.serverError(w, err, "individual LED test failed")
		return
	}
	writeText(w, http.StatusOK, "Individual LED test completed")
}

// HandleResetOverrides clears every manual override
func (api *APIHandler) HandleResetOverrides(w http.ResponseWriter, r *http.Request) {
	api.ctrl.Cycle(r.Context())
	api.ctrl.Reset(r.Context())
	writeText(w, http.StatusOK, "Manual overrides reset - back to automatic")
}

// HandleHistory returns recent cycle records, newest first.
// Query params: limit, before (RFC3339).
func (api *APIHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	before := time.Now().Add(time.Second)
	if b := r.URL.Query().Get("before"); b != "" {
		parsed, err := time.Parse(time.RFC3339, b)
		if err != nil {
			http.Error(w, "invalid before timestamp", http.StatusBadRequest)
			return
		}
		before = parsed
	}

	if api.history != nil {
		records, err := api.history.GetCyclesBefore(before, limit)
		if err == nil {
			api.writeJSON(w, nonNil(records))
			return
		}
		api.logger.Warn().Err(err).Msg("History query failed, serving from memory")
	}

	api.writeJSON(w, nonNil(api.memory.GetBefore(before, limit)))
}

// HandleCommands returns recent control commands, newest first
func (api *APIHandler) HandleCommands(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	if api.history != nil {
		commands, err := api.history.GetCommands(limit)
		if err == nil {
			api.writeJSON(w, nonNil(commands))
			return
		}
		api.logger.Warn().Err(err).Msg("Command query failed, serving from memory")
	}

	api.writeJSON(w, nonNil(api.memory.GetCommands(limit)))
}

// StatsResponse combines memory and database statistics
type StatsResponse struct {
	Memory   StoreStats            `json:"memory"`
	Database *storage.StorageStats `json:"database,omitempty"`
	Daily    []storage.DailyStat   `json:"daily,omitempty"`
}

// HandleStats returns store statistics. Query param days bounds the daily rollup.
func (api *APIHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Memory: api.memory.Stats()}

	if api.history != nil {
		days := defaultStatsDays
		if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
			days = d
		}
		end := time.Now().UTC()
		start := end.AddDate(0, 0, -days)

		dbStats, err := api.history.GetStorageStats()
		if err != nil {
			api.serverError(w, err, "storage stats failed")
			return
		}
		daily, err := api.history.GetDailyStats(start, end)
		if err != nil {
			api.serverError(w, err, "daily stats failed")
			return
		}
		resp.Database = dbStats
		resp.Daily = daily
	}

	api.writeJSON(w, resp)
}

// HandleHealth reports liveness without touching the hardware
func (api *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	device := api.ctrl.Device()
	api.writeJSON(w, map[string]interface{}{
		"status": "ok",
		"device": device.ID,
		"uptime": int64(device.Uptime().Seconds()),
	})
}

func (api *APIHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (api *APIHandler) serverError(w http.ResponseWriter, err error, msg string) {
	api.logger.Error().Err(err).Msg(msg)
	writeText(w, http.StatusInternalServerError, "Server Error")
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(body))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusNotFound, "404 - Not Found")
}

func parseLimit(s string) int {
	limit := defaultHistoryLimit
	if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
		limit = parsed
	}
	return min(limit, maxHistoryLimit)
}

// nonNil keeps empty results encoding as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
