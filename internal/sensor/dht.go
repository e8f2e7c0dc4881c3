package sensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/afroash/dht"
)

var (
	// ErrSensorUnavailable is returned when a sensor could not be read at all
	ErrSensorUnavailable = errors.New("sensor unavailable")

	// ErrSensorOutOfRange is returned for physically implausible readings
	ErrSensorOutOfRange = errors.New("sensor reading out of range")
)

// Plausible DHT11 output range. Anything outside is treated as a failed read.
const (
	MinTemperature = -40.0
	MaxTemperature = 80.0
	MinHumidity    = 0.0
	MaxHumidity    = 100.0
)

// DHTSensor defines the interface for reading from a DHT sensor
type DHTSensor interface {
	// Read performs a single reading from the sensor
	// Returns temperature (°C), humidity (%), and any error
	Read() (temperature float64, humidity float64, err error)

	// Close cleans up GPIO resources
	Close() error
}

// DHT11Reader implements DHTSensor for DHT11 hardware
type DHT11Reader struct {
	pin        int
	maxRetries int
	sensor     *dht.Sensor
}

// NewDHT11Reader creates a new DHT11 sensor reader
func NewDHT11Reader(pin, maxRetries int) (*DHT11Reader, error) {
	sensor, err := dht.NewDHT11(pin)
	if err != nil {
		return nil, fmt.Errorf("init DHT11 on pin %d: %w", pin, err)
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &DHT11Reader{
		pin:        pin,
		maxRetries: maxRetries,
		sensor:     sensor,
	}, nil
}

// Read performs a reading from the DHT11 sensor with retry logic
func (d *DHT11Reader) Read() (float64, float64, error) {
	reading, err := d.sensor.ReadRetry(d.maxRetries)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: DHT11 pin %d after %d retries: %v", ErrSensorUnavailable, d.pin, d.maxRetries, err)
	}
	if err := ValidateReading(reading.Temperature, reading.Humidity); err != nil {
		return 0, 0, err
	}

	return reading.Temperature, reading.Humidity, nil
}

// Close cleans up GPIO resources
func (d *DHT11Reader) Close() error {
	return d.sensor.Close()
}

// ValidateReading checks if temperature and humidity values are physically plausible
func ValidateReading(temp, humidity float64) error {
	if math.IsNaN(temp) || math.IsNaN(humidity) {
		return fmt.Errorf("%w: not a number", ErrSensorOutOfRange)
	}
	if temp < MinTemperature || temp > MaxTemperature {
		return fmt.Errorf("%w: temperature %.1f°C outside %.0f..%.0f°C", ErrSensorOutOfRange, temp, MinTemperature, MaxTemperature)
	}
	if humidity < MinHumidity || humidity > MaxHumidity {
		return fmt.Errorf("%w: humidity %.1f%% outside %.0f..%.0f%%", ErrSensorOutOfRange, humidity, MinHumidity, MaxHumidity)
	}
	return nil
}

// StaticDHT returns a fixed reading. It backs simulated boards.
type StaticDHT struct {
	Temperature float64
	Humidity    float64
	Err         error
}

// Read returns the configured reading
func (s *StaticDHT) Read() (float64, float64, error) {
	if s.Err != nil {
		return 0, 0, s.Err
	}
	if err := ValidateReading(s.Temperature, s.Humidity); err != nil {
		return 0, 0, err
	}
	return s.Temperature, s.Humidity, nil
}

// Close is a no-op
func (s *StaticDHT) Close() error {
	return nil
}
