package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/afroash/storm-antenna/internal/models"
	"gopkg.in/yaml.v3"
)

// AppConfig holds all configuration for the antenna controller
type AppConfig struct {
	Device   DeviceConfig    `yaml:"device"`
	Server   ServerSettings  `yaml:"server"`
	Hardware HardwareConfig  `yaml:"hardware"`
	Weather  WeatherConfig   `yaml:"weather"`
	SelfTest SelfTestConfig  `yaml:"selftest"`
	Storage  StorageSettings `yaml:"storage"`
	MQTT     MQTTConfig      `yaml:"mqtt"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// DeviceConfig identifies the board
type DeviceConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

// ServerSettings contains HTTP server configuration
type ServerSettings struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Addr returns the listen address
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WeatherConfig holds the classifier thresholds. Unset values take the defaults.
type WeatherConfig struct {
	HumidityMax *float64 `yaml:"humidity_max"`
	TempMin     *float64 `yaml:"temp_min"`
	TempMax     *float64 `yaml:"temp_max"`
}

// Thresholds resolves the configured bounds
func (w WeatherConfig) Thresholds() models.Thresholds {
	th := models.DefaultThresholds()
	if w.HumidityMax != nil {
		th.HumidityMax = *w.HumidityMax
	}
	if w.TempMin != nil {
		th.TempMin = *w.TempMin
	}
	if w.TempMax != nil {
		th.TempMax = *w.TempMax
	}
	return th
}

// SelfTestConfig controls the output test sequence
type SelfTestConfig struct {
	RunOnStart  bool          `yaml:"run_on_start"`
	OnDuration  time.Duration `yaml:"on_duration"`
	OffDuration time.Duration `yaml:"off_duration"`
}

// StorageSettings contains storage configuration
type StorageSettings struct {
	BufferSize int            `yaml:"buffer_size"`
	Database   DatabaseConfig `yaml:"database"`
}

// DatabaseConfig contains SQLite history settings
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Path            string        `yaml:"path"`
	BatchSize       int           `yaml:"batch_size"`
	FlushPeriod     time.Duration `yaml:"flush_period"`
	ChannelSize     int           `yaml:"channel_size"`
	RetentionDays   int           `yaml:"retention_days"`
	CleanupSchedule string        `yaml:"cleanup_schedule"`
}

// MQTTConfig contains broker settings for status publishing
type MQTTConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Topic          string        `yaml:"topic"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	QoS            byte          `yaml:"qos"`
	Retained       bool          `yaml:"retained"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadAppConfig loads configuration from a YAML file
func LoadAppConfig(path string) (*AppConfig, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config AppConfig
	if err := yaml.Unmarshal(yamlData, &config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := config.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := config.OverrideFromEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

// ApplyDefaults sets default values for any unset fields and expands the
// hardware variant preset
func (ac *AppConfig) ApplyDefaults() error {
	if ac.Device.ID == "" {
		ac.Device.ID = "storm-antenna"
	}

	if ac.Server.Port == 0 {
		ac.Server.Port = 8080
	}
	if ac.Server.Host == "" {
		ac.Server.Host = "0.0.0.0"
	}
	if ac.Server.ReadTimeout == 0 {
		ac.Server.ReadTimeout = 15 * time.Second
	}
	if ac.Server.WriteTimeout == 0 {
		// long enough for the output test sequence
		ac.Server.WriteTimeout = 30 * time.Second
	}

	if err := ac.Hardware.ApplyDefaults(); err != nil {
		return err
	}

	if ac.SelfTest.OnDuration == 0 {
		ac.SelfTest.OnDuration = 1 * time.Second
	}
	if ac.SelfTest.OffDuration == 0 {
		ac.SelfTest.OffDuration = 500 * time.Millisecond
	}

	if ac.Storage.BufferSize == 0 {
		ac.Storage.BufferSize = 100
	}
	db := &ac.Storage.Database
	if db.Path == "" {
		db.Path = "./data/storm-antenna.db"
	}
	if db.BatchSize == 0 {
		db.BatchSize = 10
	}
	if db.FlushPeriod == 0 {
		db.FlushPeriod = 5 * time.Second
	}
	if db.ChannelSize == 0 {
		db.ChannelSize = 100
	}
	if db.RetentionDays == 0 {
		db.RetentionDays = 30
	}
	if db.CleanupSchedule == "" {
		db.CleanupSchedule = "@every 1h"
	}

	if ac.MQTT.ClientID == "" {
		ac.MQTT.ClientID = ac.Device.ID
	}
	if ac.MQTT.Topic == "" {
		ac.MQTT.Topic = "storm-antenna/" + ac.Device.ID
	}
	if ac.MQTT.ConnectTimeout == 0 {
		ac.MQTT.ConnectTimeout = 10 * time.Second
	}

	if ac.Logging.Level == "" {
		ac.Logging.Level = "info"
	}
	if ac.Logging.Format == "" {
		ac.Logging.Format = "json"
	}
	return nil
}

// OverrideFromEnv overrides config values from environment variables
func (ac *AppConfig) OverrideFromEnv() error {
	if v := os.Getenv("DEVICE_ID"); v != "" {
		ac.Device.ID = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		ac.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		ac.Server.Port = port
	}
	if v := os.Getenv("HARDWARE_SIMULATE"); v != "" {
		simulate, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HARDWARE_SIMULATE: %w", err)
		}
		ac.Hardware.Simulate = simulate
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		ac.MQTT.Broker = v
		ac.MQTT.Enabled = true
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		ac.Logging.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid
func (ac *AppConfig) Validate() error {
	if ac.Server.Port < 1 || ac.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if err := ac.Hardware.Validate(); err != nil {
		return err
	}

	th := ac.Weather.Thresholds()
	if th.HumidityMax <= 0 || th.HumidityMax > 100 {
		return fmt.Errorf("weather humidity_max must be in (0, 100]")
	}
	if th.TempMin >= th.TempMax {
		return fmt.Errorf("weather temp_min must be below temp_max")
	}

	if ac.SelfTest.OnDuration < 0 || ac.SelfTest.OffDuration < 0 {
		return fmt.Errorf("selftest durations must not be negative")
	}

	if ac.Storage.BufferSize < 10 {
		return fmt.Errorf("buffer size must be at least 10")
	}
	if ac.Storage.Database.Enabled {
		if ac.Storage.Database.Path == "" {
			return fmt.Errorf("database path is required when the database is enabled")
		}
		if ac.Storage.Database.BatchSize < 1 {
			return fmt.Errorf("database batch size must be at least 1")
		}
		if ac.Storage.Database.RetentionDays < 1 {
			return fmt.Errorf("retention days must be at least 1")
		}
	}

	if ac.MQTT.Enabled {
		if ac.MQTT.Broker == "" {
			return fmt.Errorf("mqtt broker is required when mqtt is enabled")
		}
		if ac.MQTT.Topic == "" {
			return fmt.Errorf("mqtt topic is required when mqtt is enabled")
		}
		if ac.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt qos must be 0, 1 or 2")
		}
	}

	switch strings.ToLower(ac.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging format must be json or text")
	}
	return nil
}

// String returns a safe string representation (hides the MQTT password)
func (ac *AppConfig) String() string {
	return fmt.Sprintf("AppConfig{Device: %+v, Server: %+v, Hardware: [variant=%s simulate=%t chip=%s dht=%t], Weather: %+v, Storage: %+v, MQTT: [enabled=%t broker=%s topic=%s user=%s password=%s], Logging: %+v}",
		ac.Device,
		ac.Server,
		ac.Hardware.Variant,
		ac.Hardware.Simulate,
		ac.Hardware.Chip,
		ac.Hardware.DHT.IsEnabled(),
		ac.Weather.Thresholds(),
		ac.Storage,
		ac.MQTT.Enabled,
		ac.MQTT.Broker,
		ac.MQTT.Topic,
		ac.MQTT.Username,
		maskToken(ac.MQTT.Password),
		ac.Logging,
	)
}

// maskToken masks all but first 4 characters of a secret
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
