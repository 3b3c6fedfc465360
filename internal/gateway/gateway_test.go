package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prepwise/interview-gateway/internal/config"
	"github.com/prepwise/interview-gateway/internal/session"
)

func testGatewayConfig() *config.Config {
	return &config.Config{
		Port:            "8080",
		DeepgramAPIKey:  "test",
		TTSAPIKey:       "test",
		GenAPIKey:       "test",
		AudioBufferSize: 4096,
	}
}

func dialTestGateway(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()

	g := New(testGatewayConfig())
	server := httptest.NewServer(g.Handler())

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("Dial failed: %v", err)
	}

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readUpdate(t *testing.T, conn *websocket.Conn) session.Update {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var u session.Update
		if err := json.Unmarshal(data, &u); err != nil {
			t.Fatalf("Malformed update frame: %v", err)
		}
		return u
	}
}

func TestHandler_MalformedControlFrame(t *testing.T) {
	conn, cleanup := dialTestGateway(t)
	defer cleanup()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	u := readUpdate(t, conn)
	if u.Type != session.UpdateError {
		t.Errorf("Expected error update, got %q", u.Type)
	}
}

func TestHandler_StartWithoutConfig(t *testing.T) {
	conn, cleanup := dialTestGateway(t)
	defer cleanup()

	if err := conn.WriteJSON(commandFrame{Type: "start"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	u := readUpdate(t, conn)
	if u.Type != session.UpdateError {
		t.Errorf("Expected error update for start without config, got %q", u.Type)
	}
}

func TestHandler_StartInvalidConfigRejected(t *testing.T) {
	conn, cleanup := dialTestGateway(t)
	defer cleanup()

	cmd := commandFrame{
		Type: "start",
		Config: &session.Config{
			CandidateName:   "Alex",
			Role:            "Engineer",
			Company:         "Acme",
			DurationMinutes: 2, // below the minimum
		},
	}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	u := readUpdate(t, conn)
	if u.Type != session.UpdateError {
		t.Fatalf("Expected error update for invalid duration, got %q", u.Type)
	}
	if !strings.Contains(u.Error, "duration") {
		t.Errorf("Expected duration validation error, got %q", u.Error)
	}
}

func TestHandler_ToggleWithoutSessionRejected(t *testing.T) {
	conn, cleanup := dialTestGateway(t)
	defer cleanup()

	for _, cmd := range []string{"mute", "pause"} {
		if err := conn.WriteJSON(commandFrame{Type: cmd}); err != nil {
			t.Fatalf("Write %s failed: %v", cmd, err)
		}
		u := readUpdate(t, conn)
		if u.Type != session.UpdateError {
			t.Errorf("Expected error update for %s without session, got %q", cmd, u.Type)
		}
	}
}

func TestHandler_EndWithoutSessionIsNoOp(t *testing.T) {
	conn, cleanup := dialTestGateway(t)
	defer cleanup()

	if err := conn.WriteJSON(commandFrame{Type: "end"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// No error frame should arrive; verify the connection still works by
	// provoking a known error afterwards
	if err := conn.WriteJSON(commandFrame{Type: "mute"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	u := readUpdate(t, conn)
	if u.Type != session.UpdateError || !strings.Contains(u.Error, "mute") {
		t.Errorf("Expected the mute rejection, got %+v", u)
	}
}

func TestHandler_BinaryWithoutSessionIgnored(t *testing.T) {
	conn, cleanup := dialTestGateway(t)
	defer cleanup()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// Connection must survive stray audio frames
	if err := conn.WriteJSON(commandFrame{Type: "pause"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	u := readUpdate(t, conn)
	if u.Type != session.UpdateError {
		t.Errorf("Expected pause rejection after stray audio, got %q", u.Type)
	}
}

func TestHandler_NonWebSocketRequestRejected(t *testing.T) {
	g := New(testGatewayConfig())
	server := httptest.NewServer(g.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		t.Error("Expected plain HTTP request to be rejected")
	}
}
