package server

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/afroash/storm-antenna/internal/metrics"
	"github.com/afroash/storm-antenna/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Constants for WebSocket timeouts
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	clientBuffer = 16
)

// StatusStream pushes every cycle record to connected websocket clients.
type StatusStream struct {
	upgrader       websocket.Upgrader
	device         *models.DeviceInfo
	current        func() *models.CycleRecord
	logger         zerolog.Logger
	allowedOrigins []string
	clients        map[*streamClient]struct{}
	mutex          sync.RWMutex
}

type streamClient struct {
	conn    *websocket.Conn
	send    chan *models.Message
	started time.Time
}

// NewStatusStream creates a stream. current supplies the record sent to new
// clients on connect and may return nil.
func NewStatusStream(device *models.DeviceInfo, current func() *models.CycleRecord, logger zerolog.Logger, allowedOrigins ...string) *StatusStream {
	s := &StatusStream{
		device:         device,
		current:        current,
		logger:         logger,
		allowedOrigins: allowedOrigins,
		clients:        make(map[*streamClient]struct{}),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

// checkOrigin validates the request Origin against the configured allowlist.
// A missing Origin header is a same-origin request.
func (s *StatusStream) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if slices.Contains(s.allowedOrigins, origin) {
		return true
	}
	s.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: origin not in allowlist")
	return false
}

// ServeHTTP upgrades the connection and streams status until the client leaves
func (s *StatusStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := &streamClient{
		conn:    conn,
		send:    make(chan *models.Message, clientBuffer),
		started: time.Now(),
	}

	if rec := s.current(); rec != nil {
		if msg, err := s.statusMessage(rec); err == nil {
			client.send <- msg
		}
	}

	s.mutex.Lock()
	s.clients[client] = struct{}{}
	count := len(s.clients)
	s.mutex.Unlock()
	metrics.StreamClients.Set(float64(count))

	s.logger.Info().Str("remote", conn.RemoteAddr().String()).Int("clients", count).Msg("Status client connected")

	go s.writePump(client)
	s.readPump(client)
}

// Record broadcasts a record to every client. Slow clients drop messages.
func (s *StatusStream) Record(rec *models.CycleRecord) {
	msg, err := s.statusMessage(rec)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create status message")
		return
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
			s.logger.Debug().Str("remote", client.conn.RemoteAddr().String()).Msg("Status client slow, message dropped")
		}
	}
}

// ClientCount returns the number of connected clients
func (s *StatusStream) ClientCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.clients)
}

func (s *StatusStream) statusMessage(rec *models.CycleRecord) (*models.Message, error) {
	return models.NewMessage(models.MessageTypeStatus, models.StatusMessage{
		Device: s.device,
		Uptime: rec.Snapshot.Timestamp / 1000,
		Record: rec,
	})
}

// readPump discards client input and keeps the read deadline alive
func (s *StatusStream) readPump(client *streamClient) {
	defer s.remove(client)

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

func (s *StatusStream) writePump(client *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to send status")
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// remove unregisters a client and closes its send channel, ending writePump
func (s *StatusStream) remove(client *streamClient) {
	s.mutex.Lock()
	if _, ok := s.clients[client]; !ok {
		s.mutex.Unlock()
		return
	}
	delete(s.clients, client)
	close(client.send)
	count := len(s.clients)
	s.mutex.Unlock()

	metrics.StreamClients.Set(float64(count))
	s.logger.Info().
		Str("remote", client.conn.RemoteAddr().String()).
		Dur("connected", time.Since(client.started)).
		Msg("Status client disconnected")
}

// Close disconnects every client
func (s *StatusStream) Close() {
	s.mutex.RLock()
	clients := make([]*streamClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mutex.RUnlock()

	for _, c := range clients {
		s.remove(c)
	}
}
