package control

import "github.com/afroash/storm-antenna/internal/models"

// Reasons reported with the antenna decision.
const (
	ReasonStorm      = "storm detected – safety first"
	ReasonNoPresence = "no person detected"
	ReasonUnknown    = "unknown condition"
	ReasonOverride   = "manual override active"
)

// Decide maps one snapshot, its weather assessment and the override flags to a plan.
// It is pure: identical inputs always give an identical plan.
func Decide(snap models.SensorSnapshot, weather models.WeatherAssessment, overrides models.OverrideState) models.ActuatorPlan {
	connect, reason := antennaRule(snap, weather)

	plan := models.ActuatorPlan{
		AntennaShouldConnect: connect,
		StormLEDOn:           snap.Storm,
		CloudsLEDOn:          weather.PoorWeather,
		OnAirLEDOn:           connect,
		Reason:               reason,
	}

	if overrides.Antenna {
		plan.Reason = ReasonOverride + "; automatic rule: " + reason
	}
	return plan
}

// antennaRule is evaluated first match wins: fault, storm, absence, presence.
func antennaRule(snap models.SensorSnapshot, weather models.WeatherAssessment) (bool, string) {
	switch {
	case snap.Fault != "":
		return false, "sensor error: " + snap.Fault + " – fail-safe off"
	case snap.Storm:
		return false, ReasonStorm
	case !snap.Presence:
		return false, ReasonNoPresence
	case snap.Presence && !snap.Storm:
		return true, "person present, " + weather.StatusText + " – antenna on"
	default:
		// Not reachable with boolean inputs.
		return false, ReasonUnknown
	}
}
