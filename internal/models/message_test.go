// internal/models/message_test.go
package models

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	rec := NewCycleRecord(RecordKindCycle, SensorSnapshot{Presence: true}, WeatherAssessment{}, ActuatorPlan{AntennaShouldConnect: true, Reason: "ok"}, OverrideState{})

	msg, err := NewMessage(MessageTypeStatus, StatusMessage{Record: rec})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	if msg.Type != MessageTypeStatus {
		t.Errorf("Type = %v, want %v", msg.Type, MessageTypeStatus)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if len(msg.Payload) == 0 {
		t.Error("Payload should not be empty")
	}
}

func TestMessage_UnmarshalPayload(t *testing.T) {
	temp, hum := 21.0, 55.0
	rec := NewCycleRecord(RecordKindManual,
		SensorSnapshot{Presence: true, Temperature: &temp, Humidity: &hum},
		WeatherAssessment{StatusText: "normal", Known: true},
		ActuatorPlan{AntennaShouldConnect: true, Reason: "person present"},
		OverrideState{Antenna: true, OnAirLED: true},
	)

	msg, err := NewMessage(MessageTypeStatus, StatusMessage{Record: rec, Uptime: 12})
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	var decoded StatusMessage
	if err := msg.UnmarshalPayload(&decoded); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}

	if decoded.Record.ID != rec.ID {
		t.Errorf("ID = %v, want %v", decoded.Record.ID, rec.ID)
	}
	if decoded.Record.Snapshot.Temperature == nil || *decoded.Record.Snapshot.Temperature != 21.0 {
		t.Errorf("Temperature not preserved: %v", decoded.Record.Snapshot.Temperature)
	}
	if !decoded.Record.Overrides.OnAirLED {
		t.Error("OnAirLED override not preserved")
	}
	if decoded.Uptime != 12 {
		t.Errorf("Uptime = %d, want 12", decoded.Uptime)
	}
}
