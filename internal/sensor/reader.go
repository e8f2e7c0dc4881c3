package sensor

import (
	"context"
	"fmt"

	"github.com/afroash/storm-antenna/internal/hardware"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/rs/zerolog"
)

// Reader captures a SensorSnapshot from the wired inputs
type Reader struct {
	presence hardware.Input
	storm    hardware.Input
	clouds   hardware.Input // nil unless a raw clouds sensor is wired
	relay    hardware.Output
	climate  DHTSensor // nil unless a DHT11 is wired
	device   *models.DeviceInfo
	logger   zerolog.Logger
}

// NewReader creates a snapshot reader over the board. climate may be nil.
func NewReader(board *hardware.Board, climate DHTSensor, device *models.DeviceInfo, logger zerolog.Logger) (*Reader, error) {
	presence, ok := board.Input(hardware.InputPresence)
	if !ok {
		return nil, fmt.Errorf("presence input is not wired")
	}
	storm, ok := board.Input(hardware.InputStorm)
	if !ok {
		return nil, fmt.Errorf("storm input is not wired")
	}
	relay, ok := board.Output(hardware.OutputAntenna)
	if !ok {
		return nil, fmt.Errorf("antenna output is not wired")
	}
	clouds, _ := board.Input(hardware.InputClouds)

	return &Reader{
		presence: presence,
		storm:    storm,
		clouds:   clouds,
		relay:    relay,
		climate:  climate,
		device:   device,
		logger:   logger,
	}, nil
}

// HasClimate reports whether a temperature/humidity sensor is wired
func (r *Reader) HasClimate() bool {
	return r.climate != nil
}

// HasClouds reports whether a raw clouds sensor is wired
func (r *Reader) HasClouds() bool {
	return r.clouds != nil
}

// Read performs a single capture. A failure on a digital input returns an error
// wrapping ErrSensorUnavailable; a climate failure only clears the climate fields.
func (r *Reader) Read(ctx context.Context) (models.SensorSnapshot, error) {
	snap := models.SensorSnapshot{Timestamp: r.device.SinceStart()}

	connected, err := r.relay.State()
	if err != nil {
		return snap, fmt.Errorf("%w: relay readback: %v", ErrSensorUnavailable, err)
	}
	snap.AntennaConnected = connected

	if snap.Presence, err = r.presence.Read(); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}
	if snap.Storm, err = r.storm.Read(); err != nil {
		return snap, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
	}
	if r.clouds != nil {
		if snap.Clouds, err = r.clouds.Read(); err != nil {
			return snap, fmt.Errorf("%w: %v", ErrSensorUnavailable, err)
		}
	}

	if r.climate == nil {
		return snap.WithoutClimate("no climate sensor"), nil
	}
	if err := ctx.Err(); err != nil {
		return snap.WithoutClimate("read cancelled"), nil
	}

	temperature, humidity, err := r.climate.Read()
	if err != nil {
		r.logger.Warn().Err(err).Msg("climate sensor read failed")
		return snap.WithoutClimate(err.Error()), nil
	}

	snap = snap.WithClimate(temperature, humidity)
	r.logger.Debug().Msgf("read sensors: %s", snap.String())
	return snap, nil
}

// Close releases the climate sensor
func (r *Reader) Close() error {
	if r.climate == nil {
		return nil
	}
	return r.climate.Close()
}
