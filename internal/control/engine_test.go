package control

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/afroash/storm-antenna/internal/models"
)

func allSnapshots() []models.SensorSnapshot {
	var snaps []models.SensorSnapshot
	for _, presence := range []bool{false, true} {
		for _, storm := range []bool{false, true} {
			for _, clouds := range []bool{false, true} {
				snaps = append(snaps, models.SensorSnapshot{Presence: presence, Storm: storm, Clouds: clouds})
			}
		}
	}
	return snaps
}

func allWeather() []models.WeatherAssessment {
	th := models.DefaultThresholds()
	return []models.WeatherAssessment{
		Classify(ptr(22), ptr(50), "", th),
		Classify(ptr(22), ptr(90), "", th),
		Classify(ptr(0), ptr(50), "", th),
		Classify(nil, nil, "timeout", th),
		FromCloudsSensor(true),
		NoWeatherSensor(),
	}
}

func TestDecide_AntennaRule(t *testing.T) {
	for _, snap := range allSnapshots() {
		for _, w := range allWeather() {
			for _, o := range []models.OverrideState{{}, {Antenna: true}, {StormLED: true, CloudsLED: true}} {
				plan := Decide(snap, w, o)

				switch {
				case snap.Storm:
					if plan.AntennaShouldConnect {
						t.Errorf("storm must disconnect: snap=%+v weather=%q", snap, w.StatusText)
					}
				case !snap.Presence:
					if plan.AntennaShouldConnect {
						t.Errorf("absence must disconnect: snap=%+v", snap)
					}
				default:
					if !plan.AntennaShouldConnect {
						t.Errorf("presence without storm must connect: snap=%+v weather=%q", snap, w.StatusText)
					}
				}

				if plan.OnAirLEDOn != plan.AntennaShouldConnect {
					t.Errorf("on-air LED %v does not follow antenna %v", plan.OnAirLEDOn, plan.AntennaShouldConnect)
				}
				if plan.StormLEDOn != snap.Storm {
					t.Errorf("storm LED = %v, want %v", plan.StormLEDOn, snap.Storm)
				}
				if plan.CloudsLEDOn != w.PoorWeather {
					t.Errorf("clouds LED = %v, want %v", plan.CloudsLEDOn, w.PoorWeather)
				}
			}
		}
	}
}

func TestDecide_Reasons(t *testing.T) {
	normal := Classify(ptr(22), ptr(50), "", models.DefaultThresholds())

	tests := []struct {
		name string
		snap models.SensorSnapshot
		want string
	}{
		{"storm", models.SensorSnapshot{Presence: true, Storm: true}, ReasonStorm},
		{"absent", models.SensorSnapshot{}, ReasonNoPresence},
		{"present", models.SensorSnapshot{Presence: true}, "person present, normal (22.0°C, 50%) – antenna on"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.snap, normal, models.OverrideState{}).Reason; got != tt.want {
				t.Errorf("Reason = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecide_IsPure(t *testing.T) {
	snap := models.SensorSnapshot{Presence: true}.WithClimate(21, 40)
	w := Classify(snap.Temperature, snap.Humidity, "", models.DefaultThresholds())
	o := models.OverrideState{StormLED: true}

	first := Decide(snap, w, o)
	second := Decide(snap, w, o)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Decide not idempotent: %+v vs %+v", first, second)
	}
	if *snap.Temperature != 21 || !o.StormLED {
		t.Error("Decide mutated its inputs")
	}
}

func TestDecide_FailSafeOnSensorFault(t *testing.T) {
	snap := models.FailSafeSnapshot(0, true, errors.New("presence line busy"))
	w := Classify(nil, nil, snap.Fault, models.DefaultThresholds())

	plan := Decide(snap, w, models.OverrideState{})
	if plan.AntennaShouldConnect || plan.OnAirLEDOn {
		t.Errorf("sensor fault must disconnect, got %+v", plan)
	}
	if !strings.Contains(plan.Reason, "presence line busy") {
		t.Errorf("reason %q should carry the fault", plan.Reason)
	}

	// A fault wins even if stale inputs claimed presence.
	snap.Presence = true
	if Decide(snap, w, models.OverrideState{}).AntennaShouldConnect {
		t.Error("fault with presence must still disconnect")
	}
}

func TestDecide_OverrideReason(t *testing.T) {
	plan := Decide(models.SensorSnapshot{Storm: true}, NoWeatherSensor(), models.OverrideState{Antenna: true})
	if !strings.HasPrefix(plan.Reason, ReasonOverride) {
		t.Errorf("Reason = %q, want override prefix", plan.Reason)
	}
	if !strings.Contains(plan.Reason, ReasonStorm) {
		t.Errorf("Reason = %q should still report the automatic rule", plan.Reason)
	}
}
