// internal/sensor/reader_test.go
package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/afroash/storm-antenna/internal/hardware"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/rs/zerolog"
)

func newTestBoard(withClouds bool) *hardware.SimBoard {
	inputs := []string{hardware.InputPresence, hardware.InputStorm}
	if withClouds {
		inputs = append(inputs, hardware.InputClouds)
	}
	return hardware.NewSimBoard(inputs, []string{hardware.OutputAntenna})
}

func TestReader_Read(t *testing.T) {
	board := newTestBoard(false)
	board.Pin(hardware.InputPresence).Drive(true)
	board.Pin(hardware.OutputAntenna).Drive(true)

	mock := &MockDHTSensor{temperature: 22.5, humidity: 45.0}
	info := models.NewDeviceInfo("test-board", "Test Lab", "dht11", "v1.0.0")

	reader, err := NewReader(board.Board, mock, info, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	snap, err := reader.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	if !snap.Presence || snap.Storm {
		t.Errorf("presence/storm = %v/%v, want true/false", snap.Presence, snap.Storm)
	}
	if !snap.AntennaConnected {
		t.Error("AntennaConnected should read back the relay state")
	}
	if !snap.HasClimate() || *snap.Temperature != 22.5 || *snap.Humidity != 45.0 {
		t.Errorf("climate = %v/%v", snap.Temperature, snap.Humidity)
	}
	if mock.readCount != 1 {
		t.Errorf("mock read count = %d, want 1", mock.readCount)
	}
}

func TestReader_ClimateFailureIsNotFatal(t *testing.T) {
	board := newTestBoard(false)
	mock := &MockDHTSensor{err: errors.New("checksum mismatch")}
	info := models.NewDeviceInfo("test-board", "", "dht11", "")

	reader, _ := NewReader(board.Board, mock, info, zerolog.Nop())
	snap, err := reader.Read(context.Background())
	if err != nil {
		t.Fatalf("climate failure should not fail the snapshot: %v", err)
	}
	if snap.HasClimate() {
		t.Error("climate should be absent after a failed read")
	}
	if snap.WeatherDetail != "checksum mismatch" {
		t.Errorf("WeatherDetail = %q", snap.WeatherDetail)
	}
}

func TestReader_DigitalFailure(t *testing.T) {
	board := newTestBoard(true)
	board.Pin(hardware.InputStorm).FailReads(errors.New("bus error"))
	info := models.NewDeviceInfo("test-board", "", "enhanced", "")

	reader, _ := NewReader(board.Board, nil, info, zerolog.Nop())
	_, err := reader.Read(context.Background())
	if !errors.Is(err, ErrSensorUnavailable) {
		t.Errorf("err = %v, want ErrSensorUnavailable", err)
	}
}

func TestReader_CloudsWithoutClimate(t *testing.T) {
	board := newTestBoard(true)
	board.Pin(hardware.InputClouds).Drive(true)
	info := models.NewDeviceInfo("test-board", "", "enhanced", "")

	reader, _ := NewReader(board.Board, nil, info, zerolog.Nop())
	if reader.HasClimate() || !reader.HasClouds() {
		t.Fatalf("HasClimate/HasClouds = %v/%v", reader.HasClimate(), reader.HasClouds())
	}

	snap, err := reader.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if !snap.Clouds {
		t.Error("clouds input not captured")
	}
	if snap.WeatherDetail != "no climate sensor" {
		t.Errorf("WeatherDetail = %q", snap.WeatherDetail)
	}
}

func TestNewReader_MissingInput(t *testing.T) {
	board := hardware.NewSimBoard([]string{hardware.InputPresence}, []string{hardware.OutputAntenna})
	if _, err := NewReader(board.Board, nil, models.NewDeviceInfo("x", "", "", ""), zerolog.Nop()); err == nil {
		t.Error("expected error when storm input is missing")
	}
}
