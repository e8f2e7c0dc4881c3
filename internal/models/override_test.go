package models

import (
	"errors"
	"testing"
)

func TestParseLEDName(t *testing.T) {
	tests := []struct {
		name    string
		want    Channel
		wantErr bool
	}{
		{"storm", ChannelStormLED, false},
		{"led1", ChannelStormLED, false},
		{"clouds", ChannelCloudsLED, false},
		{"LED2", ChannelCloudsLED, false},
		{"on_air", ChannelOnAirLED, false},
		{"led3", ChannelOnAirLED, false},
		{"status", "", true},
		{"antenna", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLEDName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLEDName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLEDName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestOverrideState_WithAndActive(t *testing.T) {
	var o OverrideState
	if o.Any() {
		t.Fatal("zero OverrideState should have no active overrides")
	}

	o = o.With(ChannelAntenna, true).With(ChannelOnAirLED, true)
	if !o.Get(ChannelAntenna) || !o.Get(ChannelOnAirLED) {
		t.Errorf("flags not set: %+v", o)
	}
	if o.Get(ChannelStormLED) || o.Get(ChannelCloudsLED) {
		t.Errorf("unexpected flags set: %+v", o)
	}

	active := o.Active()
	if len(active) != 2 || active[0] != ChannelAntenna || active[1] != ChannelOnAirLED {
		t.Errorf("Active() = %v", active)
	}
}

func TestFailSafeSnapshot(t *testing.T) {
	s := FailSafeSnapshot(1234, true, errors.New("gpio read failed"))

	if s.Presence || s.Storm || s.Clouds {
		t.Errorf("fail-safe snapshot must have all inputs false: %+v", s)
	}
	if s.HasClimate() {
		t.Error("fail-safe snapshot must not carry climate readings")
	}
	if s.Fault != "gpio read failed" {
		t.Errorf("Fault = %q", s.Fault)
	}
	if !s.AntennaConnected {
		t.Error("relay readback should be preserved")
	}
	if s.Timestamp != 1234 {
		t.Errorf("Timestamp = %d, want 1234", s.Timestamp)
	}
}

func TestCycleRecord_Copy(t *testing.T) {
	temp, hum := 20.0, 50.0
	rec := NewCycleRecord(RecordKindCycle, SensorSnapshot{Temperature: &temp, Humidity: &hum}, WeatherAssessment{}, ActuatorPlan{}, OverrideState{})
	rec.Faults = []string{"relay stuck"}

	c := rec.Copy()
	*c.Snapshot.Temperature = 99
	c.Faults[0] = "changed"

	if *rec.Snapshot.Temperature != 20.0 {
		t.Error("Copy shares temperature pointer")
	}
	if rec.Faults[0] != "relay stuck" {
		t.Error("Copy shares faults slice")
	}
}
