// internal/models/sensor_info_test.go
package models

import (
	"testing"
	"time"
)

func TestNewDeviceInfo(t *testing.T) {
	info := NewDeviceInfo("esp-antenna-01", "Roof", "dht11", "v1.0.0")

	if info == nil {
		t.Fatal("NewDeviceInfo returned nil")
	}
	if info.ID != "esp-antenna-01" {
		t.Errorf("ID = %v, want esp-antenna-01", info.ID)
	}
	if info.Variant != "dht11" {
		t.Errorf("Variant = %v, want dht11", info.Variant)
	}
	if info.StartTime.IsZero() {
		t.Error("StartTime should not be zero")
	}
}

func TestDeviceInfo_Uptime(t *testing.T) {
	info := &DeviceInfo{
		ID:        "esp-antenna-01",
		StartTime: time.Now().Add(-1 * time.Hour),
	}

	uptime := info.Uptime()

	// Should be approximately 1 hour (within a second tolerance)
	if uptime < 59*time.Minute || uptime > 61*time.Minute {
		t.Errorf("Uptime = %v, expected approximately 1 hour", uptime)
	}

	ms := info.SinceStart()
	if ms < (59 * time.Minute).Milliseconds() {
		t.Errorf("SinceStart = %d, expected about an hour in ms", ms)
	}
}
