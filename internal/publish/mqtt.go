package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/afroash/storm-antenna/internal/config"
	"github.com/afroash/storm-antenna/internal/metrics"
	"github.com/afroash/storm-antenna/internal/models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const (
	availabilityOnline  = "online"
	availabilityOffline = "offline"
	disconnectQuiesce   = 250 // ms
)

// Client is the part of mqtt.Client the publisher uses
type Client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes status and command records to a broker.
//
// Topics, relative to the configured base topic:
//
//	<topic>/status        latest status message, retained when configured
//	<topic>/commands      every control command
//	<topic>/availability  "online" / "offline" (last will)
type MQTTPublisher struct {
	client   Client
	topic    string
	qos      byte
	retained bool
	timeout  time.Duration
	device   *models.DeviceInfo
	logger   zerolog.Logger
}

// NewMQTTPublisher connects to the broker and announces availability.
// The client reconnects on its own after the first successful connect.
func NewMQTTPublisher(cfg config.MQTTConfig, device *models.DeviceInfo, logger zerolog.Logger) (*MQTTPublisher, error) {
	logger = logger.With().Str("broker", cfg.Broker).Logger()
	availability := cfg.Topic + "/availability"

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute).
		SetWill(availability, availabilityOffline, cfg.QoS, true).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info().Msg("Connected to MQTT broker")
			c.Publish(availability, cfg.QoS, true, availabilityOnline)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("MQTT connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %s", cfg.Broker, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return newPublisher(client, cfg, device, logger), nil
}

func newPublisher(client Client, cfg config.MQTTConfig, device *models.DeviceInfo, logger zerolog.Logger) *MQTTPublisher {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{
		client:   client,
		topic:    cfg.Topic,
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  timeout,
		device:   device,
		logger:   logger,
	}
}

// Record publishes a status message for the record
func (p *MQTTPublisher) Record(rec *models.CycleRecord) {
	msg, err := models.NewMessage(models.MessageTypeStatus, models.StatusMessage{
		Device: p.device,
		Uptime: rec.Snapshot.Timestamp / 1000,
		Record: rec,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to create status message")
		return
	}
	p.publish(p.topic+"/status", p.retained, msg)
}

// RecordCommand publishes a control command
func (p *MQTTPublisher) RecordCommand(rec *models.CommandRecord) {
	msg, err := models.NewMessage(models.MessageTypeCommand, rec)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to create command message")
		return
	}
	p.publish(p.topic+"/commands", false, msg)
}

// publish never blocks the caller; delivery is confirmed in the background
func (p *MQTTPublisher) publish(topic string, retained bool, msg *models.Message) {
	if !p.client.IsConnected() {
		metrics.Publishes.WithLabelValues("dropped").Inc()
		p.logger.Debug().Str("topic", topic).Msg("Not connected, message dropped")
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		metrics.Publishes.WithLabelValues("error").Inc()
		p.logger.Error().Err(err).Msg("Failed to marshal message")
		return
	}

	token := p.client.Publish(topic, p.qos, retained, payload)
	go p.await(topic, token)
}

func (p *MQTTPublisher) await(topic string, token mqtt.Token) {
	if !token.WaitTimeout(p.timeout) {
		metrics.Publishes.WithLabelValues("timeout").Inc()
		p.logger.Warn().Str("topic", topic).Msg("Publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		metrics.Publishes.WithLabelValues("error").Inc()
		p.logger.Warn().Err(err).Str("topic", topic).Msg("Publish failed")
		return
	}
	metrics.Publishes.WithLabelValues("ok").Inc()
}

// Close marks the controller offline and disconnects
func (p *MQTTPublisher) Close() {
	if p.client.IsConnected() {
		token := p.client.Publish(p.topic+"/availability", p.qos, true, availabilityOffline)
		token.WaitTimeout(p.timeout)
	}
	p.client.Disconnect(disconnectQuiesce)
	p.logger.Info().Msg("MQTT publisher closed")
}
