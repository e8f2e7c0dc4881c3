package models

// Thresholds bound the weather classifier.
type Thresholds struct {
	HumidityMax float64 `json:"humidity_max" yaml:"humidity_max"`
	TempMin     float64 `json:"temp_min" yaml:"temp_min"`
	TempMax     float64 `json:"temp_max" yaml:"temp_max"`
}

// DefaultThresholds mirror the values the controller shipped with.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HumidityMax: 80,
		TempMin:     5,
		TempMax:     35,
	}
}

// WeatherSource names what a WeatherAssessment was derived from.
type WeatherSource string

const (
	WeatherSourceClimate WeatherSource = "climate"
	WeatherSourceClouds  WeatherSource = "clouds_sensor"
	WeatherSourceNone    WeatherSource = "none"
)

// WeatherAssessment is the classifier output, recomputed every cycle.
type WeatherAssessment struct {
	PoorWeather bool          `json:"poor_weather"`
	StatusText  string        `json:"status_text"`
	Known       bool          `json:"known"`
	Source      WeatherSource `json:"source"`
}
