package models

import "fmt"

// SensorSnapshot is one capture of every sensor input, taken fresh per decision cycle.
type SensorSnapshot struct {
	Presence         bool     `json:"presence"`
	Storm            bool     `json:"storm"`
	Clouds           bool     `json:"clouds"`
	Temperature      *float64 `json:"temperature"`
	Humidity         *float64 `json:"humidity"`
	AntennaConnected bool     `json:"antenna_connected"`
	Timestamp        int64    `json:"timestamp"` // ms since controller start

	// WeatherDetail explains why Temperature/Humidity are absent ("" when present).
	WeatherDetail string `json:"weather_detail,omitempty"`

	// Fault is set when the digital inputs could not be read at all.
	Fault string `json:"fault,omitempty"`
}

// HasClimate reports whether a paired temperature/humidity reading is present.
func (s SensorSnapshot) HasClimate() bool {
	return s.Temperature != nil && s.Humidity != nil
}

// WithClimate returns a copy carrying the paired reading.
func (s SensorSnapshot) WithClimate(temperature, humidity float64) SensorSnapshot {
	s.Temperature = &temperature
	s.Humidity = &humidity
	s.WeatherDetail = ""
	return s
}

// WithoutClimate returns a copy with both readings cleared and the reason recorded.
func (s SensorSnapshot) WithoutClimate(detail string) SensorSnapshot {
	s.Temperature = nil
	s.Humidity = nil
	s.WeatherDetail = detail
	return s
}

// FailSafeSnapshot is substituted for a snapshot whose inputs could not be read.
// With presence and storm false the antenna rule resolves to disconnect.
func FailSafeSnapshot(timestamp int64, antennaConnected bool, err error) SensorSnapshot {
	fault := "unknown fault"
	if err != nil {
		fault = err.Error()
	}
	return SensorSnapshot{
		Presence:         false,
		Storm:            false,
		Clouds:           false,
		AntennaConnected: antennaConnected,
		Timestamp:        timestamp,
		WeatherDetail:    fault,
		Fault:            fault,
	}
}

func (s SensorSnapshot) String() string {
	climate := "climate=n/a"
	if s.HasClimate() {
		climate = fmt.Sprintf("temp=%.1f°C humidity=%.0f%%", *s.Temperature, *s.Humidity)
	}
	return fmt.Sprintf("presence=%t storm=%t clouds=%t antenna=%t %s",
		s.Presence, s.Storm, s.Clouds, s.AntennaConnected, climate)
}
