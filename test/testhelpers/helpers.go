// Package testhelpers provides common utilities and helper functions for
// testing the ChatRelay server.
//
// This package contains reusable test utilities that are shared across unit
// and integration tests. It provides functions for starting a fully wired
// relay server, connecting WebSocket clients, and reading typed protocol
// events to reduce code duplication in test files.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Tyrowin/chatrelay/internal/server"
	"github.com/gorilla/websocket"
)

// StartChatServer starts a complete relay (hub + routes) on an httptest
// server and returns the base HTTP URL. The test server's own URL is added to
// the allowed origins. customize may be nil.
func StartChatServer(t *testing.T, customize func(cfg *server.Config)) string {
	t.Helper()

	cfg := server.NewConfig()
	if customize != nil {
		customize(cfg)
	}
	server.SetConfig(cfg)

	hub := server.NewHub()
	server.StartHub(hub)

	testServer := httptest.NewServer(server.SetupRoutes(hub))

	cfg.AllowedOrigins = append([]string{testServer.URL}, cfg.AllowedOrigins...)
	server.SetConfig(cfg)

	t.Cleanup(func() {
		testServer.Close()
		_ = hub.Shutdown(2 * time.Second)
		server.SetConfig(nil)
	})

	return testServer.URL
}

// WebSocketURL converts the test server's base HTTP URL to its ws:// endpoint.
func WebSocketURL(t *testing.T, baseURL string) string {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"
	return u.String()
}

// ConnectClient dials the WebSocket endpoint with the given origin and
// registers cleanup for the connection.
func ConnectClient(t *testing.T, wsURL, origin string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	header.Set("Origin", origin)

	conn, resp, err := dialer.Dial(wsURL, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes a JSON event frame to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event map[string]any) {
	t.Helper()

	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("Failed to send %v event: %v", event["type"], err)
	}
}

// ReadEvent reads the next JSON event frame, failing the test on error.
func ReadEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var event map[string]any
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return event
}

// WaitForEvent reads events until one of the wanted type arrives. Events of
// other types are discarded, which keeps tests independent of unrelated
// broadcasts interleaved by other clients.
func WaitForEvent(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		event := ReadEvent(t, conn)
		if event["type"] == eventType {
			return event
		}
	}
	t.Fatalf("Timed out waiting for %q event", eventType)
	return nil
}

// WaitForRoomCount reads room_users events until the expected count arrives.
func WaitForRoomCount(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	var last float64 = -1
	for time.Now().Before(deadline) {
		event := WaitForEvent(t, conn, "room_users")
		count, ok := event["count"].(float64)
		if !ok {
			t.Fatalf("room_users event missing numeric count: %v", event)
		}
		if int(count) == want {
			return
		}
		last = count
	}
	t.Fatalf("Timed out waiting for room_users count %d (last seen %v)", want, last)
}

// ExpectNoEvent asserts that no event of the given type arrives within the
// timeout. Other event types are ignored.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		var event map[string]any
		err := conn.ReadJSON(&event)
		if err != nil {
			return // timeout or close: nothing of the forbidden type arrived
		}
		if event["type"] == eventType {
			t.Fatalf("Expected no %q event, but received: %v", eventType, event)
		}
	}
}

// Strings converts a JSON array field into a []string for assertions.
func Strings(t *testing.T, value any) []string {
	t.Helper()

	raw, ok := value.([]any)
	if !ok {
		t.Fatalf("Expected a JSON array, got %T", value)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			t.Fatalf("Expected string array element, got %T", item)
		}
		out = append(out, s)
	}
	return out
}
