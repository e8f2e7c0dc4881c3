package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/afroash/storm-antenna/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// MockStatusServer streams canned status messages to each client
type MockStatusServer struct {
	server       *httptest.Server
	upgrader     websocket.Upgrader
	mutex        sync.Mutex
	connections  []*websocket.Conn
	shouldAccept bool
	sendOnAccept int  // status messages sent after the upgrade
	closeAfter   bool // close the connection once sent
	accepted     int
}

func NewMockStatusServer() *MockStatusServer {
	mock := &MockStatusServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		shouldAccept: true,
		sendOnAccept: 1,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handleWebSocket))
	return mock
}

func (m *MockStatusServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !m.shouldAccept {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	m.mutex.Lock()
	m.connections = append(m.connections, conn)
	m.accepted++
	m.mutex.Unlock()

	for i := 0; i < m.sendOnAccept; i++ {
		rec := models.NewCycleRecord(models.RecordKindCycle,
			models.SensorSnapshot{Presence: true, Timestamp: int64(i+1) * 1000},
			models.WeatherAssessment{StatusText: "normal"},
			models.ActuatorPlan{AntennaShouldConnect: true, Reason: "person present"},
			models.OverrideState{})
		msg, _ := models.NewMessage(models.MessageTypeStatus, models.StatusMessage{Uptime: int64(i + 1), Record: rec})
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	if m.closeAfter {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (m *MockStatusServer) URL() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http")
}

func (m *MockStatusServer) Accepted() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.accepted
}

func (m *MockStatusServer) Close() {
	m.mutex.Lock()
	for _, conn := range m.connections {
		conn.Close()
	}
	m.mutex.Unlock()
	m.server.Close()
}

type statusCollector struct {
	mutex    sync.Mutex
	statuses []*models.StatusMessage
}

func (s *statusCollector) handle(msg *models.StatusMessage) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.statuses = append(s.statuses, msg)
}

func (s *statusCollector) count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.statuses)
}

// Helper to create test connection
func createTestConnection(serverURL string, handler StatusHandler) *Connection {
	config := ConnectionConfig{
		URL:                  serverURL,
		ReconnectInterval:    50 * time.Millisecond,
		MaxReconnectInterval: 200 * time.Millisecond,
		StaleTimeout:         2 * time.Second,
	}
	return NewConnection(config, handler, zerolog.Nop())
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Tests

func TestNewConnection(t *testing.T) {
	conn := createTestConnection("ws://localhost/ws/status", nil)

	if conn.State() != StateDisconnected {
		t.Errorf("Initial state = %v, want %v", conn.State(), StateDisconnected)
	}
	if conn.IsConnected() {
		t.Error("IsConnected should be false initially")
	}
}

func TestConnection_Connect_Success(t *testing.T) {
	server := NewMockStatusServer()
	defer server.Close()

	conn := createTestConnection(server.URL(), nil)
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if conn.State() != StateConnected {
		t.Errorf("State = %v, want %v", conn.State(), StateConnected)
	}

	conn.Close()
	if conn.IsConnected() {
		t.Error("Should not be connected after Close()")
	}
}

func TestConnection_Connect_Failure_ServerRefuses(t *testing.T) {
	server := NewMockStatusServer()
	server.shouldAccept = false
	defer server.Close()

	conn := createTestConnection(server.URL(), nil)
	if err := conn.Connect(context.Background()); err == nil {
		t.Error("Connect should fail when server refuses")
	}
	if conn.State() != StateDisconnected {
		t.Errorf("State = %v, want disconnected", conn.State())
	}
}

func TestConnection_ReceivesStatus(t *testing.T) {
	server := NewMockStatusServer()
	server.sendOnAccept = 3
	defer server.Close()

	collector := &statusCollector{}
	conn := createTestConnection(server.URL(), collector.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	waitUntil(t, func() bool { return collector.count() == 3 })

	if conn.Received() != 3 {
		t.Errorf("Received() = %d, want 3", conn.Received())
	}
	first := collector.statuses[0]
	if first.Record == nil || first.Record.Plan.Reason != "person present" {
		t.Errorf("first status = %+v", first)
	}
}

func TestConnection_Reconnect_AfterDisconnect(t *testing.T) {
	server := NewMockStatusServer()
	server.closeAfter = true
	defer server.Close()

	collector := &statusCollector{}
	conn := createTestConnection(server.URL(), collector.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	waitUntil(t, func() bool { return server.Accepted() >= 2 })
	waitUntil(t, func() bool { return collector.count() >= 2 })
}

func TestConnection_RunStopsOnCancel(t *testing.T) {
	server := NewMockStatusServer()
	defer server.Close()

	conn := createTestConnection(server.URL(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()

	waitUntil(t, conn.IsConnected)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if conn.IsConnected() {
		t.Error("Should be disconnected after cancel")
	}
}

func TestConnection_ExponentialBackoff(t *testing.T) {
	conn := createTestConnection("ws://localhost:1/invalid", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	conn.Run(ctx)

	if conn.IsConnected() {
		t.Error("Should not be connected to invalid server")
	}
	if conn.currentReconnectInterval != conn.maxReconnectInterval {
		t.Errorf("interval = %v, want capped at %v", conn.currentReconnectInterval, conn.maxReconnectInterval)
	}
}

func TestConnection_IgnoresMalformedStatus(t *testing.T) {
	collector := &statusCollector{}
	conn := createTestConnection("ws://localhost/ws/status", collector.handle)

	conn.handleMessage(&models.Message{Type: models.MessageTypeStatus, Payload: []byte(`"not an object"`)})
	conn.handleMessage(&models.Message{Type: models.MessageTypeCommand, Payload: []byte(`{}`)})

	if collector.count() != 0 {
		t.Errorf("handler called %d times, want 0", collector.count())
	}
}

func TestConnectionState_String(t *testing.T) {
	tests := []struct {
		state    ConnectionState
		expected string
	}{
		{StateDisconnected, "disconnected"},
		{StateConnecting, "connecting"},
		{StateConnected, "connected"},
		{ConnectionState(9), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.state.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}
