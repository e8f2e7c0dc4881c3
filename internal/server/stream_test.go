package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afroash/storm-antenna/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func startStream(t *testing.T, current *models.CycleRecord, origins ...string) (*StatusStream, string) {
	t.Helper()
	device := models.NewDeviceInfo("stream-test", "", "basic", "test")
	stream := NewStatusStream(device, func() *models.CycleRecord { return current }, zerolog.Nop(), origins...)

	srv := httptest.NewServer(stream)
	t.Cleanup(func() {
		stream.Close()
		srv.Close()
	})
	return stream, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readStatus(t *testing.T, conn *websocket.Conn) models.StatusMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg models.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != models.MessageTypeStatus {
		t.Fatalf("type = %q, want status", msg.Type)
	}
	var status models.StatusMessage
	if err := msg.UnmarshalPayload(&status); err != nil {
		t.Fatalf("payload: %v", err)
	}
	return status
}

func waitForClients(t *testing.T, s *StatusStream, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", s.ClientCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamSendsCurrentOnConnect(t *testing.T) {
	current := createTestRecord("initial", time.Now())
	current.Snapshot.Timestamp = 7_000
	_, url := startStream(t, current)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	status := readStatus(t, conn)
	if status.Record == nil || status.Record.Plan.Reason != "initial" {
		t.Errorf("record = %+v", status.Record)
	}
	if status.Uptime != 7 {
		t.Errorf("uptime = %d, want 7", status.Uptime)
	}
	if status.Device == nil || status.Device.ID != "stream-test" {
		t.Errorf("device = %+v", status.Device)
	}
}

func TestStreamBroadcastsRecords(t *testing.T) {
	stream, url := startStream(t, nil)

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}
	waitForClients(t, stream, 2)

	stream.Record(createTestRecord("storm detected", time.Now()))

	for i, conn := range conns {
		status := readStatus(t, conn)
		if status.Record.Plan.Reason != "storm detected" {
			t.Errorf("client %d reason = %q", i, status.Record.Plan.Reason)
		}
	}
}

func TestStreamRemovesClosedClients(t *testing.T) {
	stream, url := startStream(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitForClients(t, stream, 1)

	conn.Close()
	waitForClients(t, stream, 0)
}

func TestStreamOriginCheck(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		wantOK  bool
	}{
		{"same origin", "", nil, true},
		{"allowlisted", "http://dashboard.local", []string{"http://dashboard.local"}, true},
		{"foreign", "http://evil.example", []string{"http://dashboard.local"}, false},
		{"no allowlist", "http://evil.example", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, url := startStream(t, nil, tt.allowed...)

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if conn != nil {
				defer conn.Close()
			}

			if tt.wantOK && err != nil {
				t.Fatalf("dial: %v", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatal("expected handshake to be rejected")
				}
				if resp == nil || resp.StatusCode != http.StatusForbidden {
					t.Errorf("response = %v, want 403", resp)
				}
			}
		})
	}
}
