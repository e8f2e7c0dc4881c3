package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/afroash/storm-antenna/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ConnectionState represents the current state of the connection
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (cs ConnectionState) String() string {
	switch cs {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// StatusHandler receives every status message from the controller
type StatusHandler func(*models.StatusMessage)

// Connection follows a controller's status stream and reconnects when it drops
type Connection struct {
	URL                      string
	conn                     *websocket.Conn
	state                    ConnectionState
	stateMutex               sync.RWMutex
	logger                   zerolog.Logger
	handler                  StatusHandler
	reconnectInterval        time.Duration
	maxReconnectInterval     time.Duration
	currentReconnectInterval time.Duration
	staleTimeout             time.Duration
	received                 int64
}

// ConnectionConfig holds configuration for the connection
type ConnectionConfig struct {
	URL                  string
	ReconnectInterval    time.Duration
	MaxReconnectInterval time.Duration

	// StaleTimeout drops the connection when neither a message nor a ping
	// arrives in time. The controller pings every 54s.
	StaleTimeout time.Duration
}

// NewConnection creates a new connection manager
func NewConnection(config ConnectionConfig, handler StatusHandler, logger zerolog.Logger) *Connection {
	if config.StaleTimeout <= 0 {
		config.StaleTimeout = 90 * time.Second
	}
	return &Connection{
		URL:                      config.URL,
		state:                    StateDisconnected,
		logger:                   logger,
		handler:                  handler,
		reconnectInterval:        config.ReconnectInterval,
		maxReconnectInterval:     config.MaxReconnectInterval,
		currentReconnectInterval: config.ReconnectInterval,
		staleTimeout:             config.StaleTimeout,
	}
}

// setState safely updates the connection state
func (c *Connection) setState(state ConnectionState) {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	c.state = state
	c.logger.Debug().Str("state", state.String()).Msg("Connection state updated")
}

// State returns the current connection state
func (c *Connection) State() ConnectionState {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.state
}

// IsConnected returns true if currently connected
func (c *Connection) IsConnected() bool {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.state == StateConnected
}

// Received returns the number of status messages delivered to the handler
func (c *Connection) Received() int64 {
	c.stateMutex.RLock()
	defer c.stateMutex.RUnlock()
	return c.received
}

// Connect opens the status stream
func (c *Connection) Connect(ctx context.Context) error {
	c.setState(StateConnecting)
	c.logger.Info().Str("url", c.URL).Msg("Connecting to controller...")

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("dial failed: %w", err)
	}
	defer resp.Body.Close()

	c.stateMutex.Lock()
	c.conn = conn
	c.stateMutex.Unlock()

	c.setState(StateConnected)
	c.currentReconnectInterval = c.reconnectInterval // reset backoff
	c.logger.Info().Msg("Connected to controller")
	return nil
}

// Run follows the stream with auto-reconnect.
// Blocks until context is cancelled
func (c *Connection) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.Connect(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Connection failed")
			c.waitBeforeReconnect(ctx)
			continue
		}

		c.follow(ctx)

		if ctx.Err() == nil {
			c.logger.Info().Msg("Connection lost, will reconnect")
			c.waitBeforeReconnect(ctx)
		}
	}
}

// waitBeforeReconnect waits before next reconnection attempt with exponential backoff
func (c *Connection) waitBeforeReconnect(ctx context.Context) {
	c.logger.Info().Dur("delay", c.currentReconnectInterval).Msg("Waiting before reconnect")
	select {
	case <-time.After(c.currentReconnectInterval):
	case <-ctx.Done():
		return
	}
	c.currentReconnectInterval *= 2
	if c.currentReconnectInterval > c.maxReconnectInterval {
		c.currentReconnectInterval = c.maxReconnectInterval
	}
}

// follow reads until the connection fails or ctx is cancelled
func (c *Connection) follow(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.disconnect()
		case <-done:
		}
	}()

	c.readLoop()
	close(done)
	c.disconnect()
}

// readLoop reads messages from the controller
func (c *Connection) readLoop() {
	c.logger.Debug().Msg("Starting read loop")
	defer c.logger.Debug().Msg("Read loop stopped")

	c.stateMutex.RLock()
	conn := c.conn
	c.stateMutex.RUnlock()
	if conn == nil {
		return
	}

	conn.SetReadDeadline(time.Now().Add(c.staleTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(c.staleTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		var msg models.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if c.IsConnected() {
				c.logger.Warn().Err(err).Msg("Read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.staleTimeout))
		c.handleMessage(&msg)
	}
}

// handleMessage processes a message received from the controller
func (c *Connection) handleMessage(msg *models.Message) {
	c.logger.Debug().Str("type", string(msg.Type)).Msg("Received message")
	switch msg.Type {
	case models.MessageTypeStatus:
		var status models.StatusMessage
		if err := msg.UnmarshalPayload(&status); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to unmarshal status")
			return
		}
		c.stateMutex.Lock()
		c.received++
		c.stateMutex.Unlock()
		if c.handler != nil {
			c.handler(&status)
		}
	case models.MessageTypeError:
		var errMsg models.ErrorMessage
		if err := msg.UnmarshalPayload(&errMsg); err == nil {
			c.logger.Warn().Str("code", errMsg.Code).Str("msg", errMsg.Message).Msg("Controller error")
		}
	default:
		c.logger.Debug().Str("type", string(msg.Type)).Msg("Unknown message type")
	}
}

// disconnect closes the WebSocket connection
func (c *Connection) disconnect() {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	if c.conn == nil {
		return
	}
	c.conn.Close()
	c.conn = nil
	c.state = StateDisconnected
	c.logger.Info().Msg("Connection disconnected")
}

// Close gracefully shuts down the connection
func (c *Connection) Close() error {
	c.logger.Info().Msg("Closing connection")

	c.stateMutex.Lock()
	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
	}
	c.stateMutex.Unlock()

	c.disconnect()
	c.setState(StateDisconnected)
	return nil
}
