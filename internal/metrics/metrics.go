package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storm_antenna_cycles_total",
			Help: "Total decision cycles by outcome",
		},
		[]string{"antenna"},
	)

	CycleLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storm_antenna_cycle_latency_seconds",
			Help:    "Decision cycle latency in seconds, including the climate read",
			Buckets: prometheus.DefBuckets,
		},
	)

	SensorFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storm_antenna_sensor_faults_total",
			Help: "Total sensor faults by kind",
		},
		[]string{"kind"},
	)

	ActuatorWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storm_antenna_actuator_writes_total",
			Help: "Total output writes by channel and result",
		},
		[]string{"channel", "result"},
	)

	ManualCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storm_antenna_manual_commands_total",
			Help: "Total manual control commands",
		},
		[]string{"command", "result"},
	)

	OverrideActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storm_antenna_override_active",
			Help: "1 when the channel is under manual override",
		},
		[]string{"channel"},
	)

	AntennaConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storm_antenna_connected",
			Help: "Relay state read back at the last cycle",
		},
	)

	Temperature = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storm_antenna_temperature_celsius",
			Help: "Last valid temperature reading",
		},
	)

	Humidity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storm_antenna_humidity_percent",
			Help: "Last valid relative humidity reading",
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storm_antenna_stream_clients",
			Help: "Connected status stream clients",
		},
	)

	HistoryWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storm_antenna_history_writes_total",
			Help: "Cycle records written to the history database",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storm_antenna_http_requests_total",
			Help: "HTTP requests by route template and status code",
		},
		[]string{"route", "code"},
	)

	Publishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storm_antenna_mqtt_publishes_total",
			Help: "Status messages published to the broker",
		},
		[]string{"result"},
	)
)

// BoolValue converts a state to a gauge value
func BoolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
