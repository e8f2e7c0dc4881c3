package control

import (
	"fmt"

	"github.com/afroash/storm-antenna/internal/models"
	"github.com/afroash/storm-antenna/internal/sensor"
)

// Classify derives the weather assessment from a paired climate reading.
// Rules are checked in order and the first match wins: high humidity, cold, hot, normal.
// An absent or implausible reading is unknown, never poor.
func Classify(temperature, humidity *float64, detail string, th models.Thresholds) models.WeatherAssessment {
	if temperature == nil || humidity == nil {
		if detail == "" {
			detail = "no reading"
		}
		return unknownWeather(detail)
	}

	t, h := *temperature, *humidity
	if err := sensor.ValidateReading(t, h); err != nil {
		return unknownWeather("invalid readings")
	}

	w := models.WeatherAssessment{Known: true, Source: models.WeatherSourceClimate}
	switch {
	case h > th.HumidityMax:
		w.PoorWeather = true
		w.StatusText = fmt.Sprintf("high humidity (%.0f%%) – cloudy", h)
	case t < th.TempMin:
		w.PoorWeather = true
		w.StatusText = fmt.Sprintf("cold (%.1f°C) – poor conditions", t)
	case t > th.TempMax:
		w.PoorWeather = true
		w.StatusText = fmt.Sprintf("hot (%.1f°C) – extreme heat", t)
	default:
		w.StatusText = fmt.Sprintf("normal (%.1f°C, %.0f%%)", t, h)
	}
	return w
}

// FromCloudsSensor is the assessment for boards with a raw clouds input and no climate sensor.
func FromCloudsSensor(clouds bool) models.WeatherAssessment {
	w := models.WeatherAssessment{
		PoorWeather: clouds,
		Known:       true,
		Source:      models.WeatherSourceClouds,
		StatusText:  "clear weather",
	}
	if clouds {
		w.StatusText = "cloudy weather"
	}
	return w
}

// NoWeatherSensor is the assessment for boards with neither weather input.
func NoWeatherSensor() models.WeatherAssessment {
	return models.WeatherAssessment{
		StatusText: "no weather sensor",
		Source:     models.WeatherSourceNone,
	}
}

func unknownWeather(detail string) models.WeatherAssessment {
	return models.WeatherAssessment{
		PoorWeather: false,
		StatusText:  "sensor error: " + detail,
		Known:       false,
		Source:      models.WeatherSourceClimate,
	}
}
