package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/afroash/storm-antenna/internal/config"
	"github.com/afroash/storm-antenna/internal/control"
	"github.com/afroash/storm-antenna/internal/hardware"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/afroash/storm-antenna/internal/sensor"
	"github.com/afroash/storm-antenna/internal/storage"
	"github.com/rs/zerolog"
)

// app is the hardware and decision pipeline shared by every command
type app struct {
	cfg        *config.AppConfig
	logger     zerolog.Logger
	device     *models.DeviceInfo
	board      *hardware.Board
	reader     *sensor.Reader
	controller *control.Controller
}

func newApp(cfg *config.AppConfig, logger zerolog.Logger) (*app, error) {
	device := models.NewDeviceInfo(cfg.Device.ID, cfg.Device.Location, cfg.Hardware.Variant, version)

	board, climate, err := openHardware(cfg.Hardware, logger)
	if err != nil {
		return nil, err
	}

	reader, err := sensor.NewReader(board, climate, device, logger.With().Str("component", "sensors").Logger())
	if err != nil {
		board.Close()
		return nil, err
	}

	overrides := control.NewOverrideStore()
	applier := control.NewApplier(board, overrides, control.ApplierOptions{
		TestOnDuration:  cfg.SelfTest.OnDuration,
		TestOffDuration: cfg.SelfTest.OffDuration,
	}, logger.With().Str("component", "outputs").Logger())

	ctrl := control.NewController(reader, applier, overrides, cfg.Weather.Thresholds(), device, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		device:     device,
		board:      board,
		reader:     reader,
		controller: ctrl,
	}, nil
}

// openHardware opens GPIO lines, or simulated ones when hardware.simulate is set.
// The returned climate sensor is nil when no DHT11 is wired.
func openHardware(hw config.HardwareConfig, logger zerolog.Logger) (*hardware.Board, sensor.DHTSensor, error) {
	if hw.Simulate {
		inputs, outputs := hw.LineNames()
		sim := hardware.NewSimBoard(inputs, outputs)
		logger.Warn().Strs("inputs", inputs).Strs("outputs", outputs).Msg("Using simulated hardware")

		if !hw.DHT.IsEnabled() {
			return sim.Board, nil, nil
		}
		return sim.Board, &sensor.StaticDHT{
			Temperature: hw.DHT.Simulated.Temperature,
			Humidity:    hw.DHT.Simulated.Humidity,
		}, nil
	}

	board, err := hardware.OpenBoard(hw.BoardSpec(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open GPIO: %w", err)
	}

	if !hw.DHT.IsEnabled() {
		return board, nil, nil
	}
	dht, err := sensor.NewDHT11Reader(*hw.DHT.Pin, hw.DHT.MaxRetries)
	if err != nil {
		// Weather falls back to "sensor error" every cycle; the antenna rule does not need it.
		logger.Error().Err(err).Int("pin", *hw.DHT.Pin).Msg("DHT11 unavailable, weather will report sensor errors")
		return board, &sensor.StaticDHT{Err: fmt.Errorf("%w: %v", sensor.ErrSensorUnavailable, err)}, nil
	}
	return board, dht, nil
}

// openHistory opens the SQLite store, creating its directory
func openHistory(cfg config.DatabaseConfig, logger zerolog.Logger) (*storage.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	store, err := storage.NewSQLiteStore(cfg.Path, logger)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("path", cfg.Path).Msg("SQLite store opened")
	return store, nil
}

func (a *app) Close() {
	if err := a.reader.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Closing climate sensor")
	}
	if err := a.board.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Closing GPIO lines")
	}
}
