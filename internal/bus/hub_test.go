package bus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startBus(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(testLogger())
	go hub.Run(ctx)

	srv := httptest.NewServer(NewRouter(hub, "test", testLogger()))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-hub.Done()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, channel string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if channel != "" {
		url += "?channel=" + channel
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitMembers blocks until the hub reports n members on channel.
func waitMembers(t *testing.T, hub *Hub, channel string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Stats().Channels[channel] == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("channel %q never reached %d members: %+v", channel, n, hub.Stats())
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("kind=%d", kind)
	}
	return string(data)
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Fatalf("unexpected frame %q", data)
	}
}

func TestBroadcastSkipsSender(t *testing.T) {
	hub, srv := startBus(t)

	a := dial(t, srv, "room")
	b := dial(t, srv, "room")
	c := dial(t, srv, "room")
	other := dial(t, srv, "elsewhere")
	waitMembers(t, hub, "room", 3)
	waitMembers(t, hub, "elsewhere", 1)

	frame := `{"type":"ready","from":"a"}`
	if err := a.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := readText(t, b); got != frame {
		t.Fatalf("b got %q", got)
	}
	if got := readText(t, c); got != frame {
		t.Fatalf("c got %q", got)
	}
	expectSilence(t, a)
	expectSilence(t, other)
}

func TestDefaultChannel(t *testing.T) {
	hub, srv := startBus(t)

	dial(t, srv, "")
	waitMembers(t, hub, DefaultChannel, 1)
}

func TestFramesRelayedUntouched(t *testing.T) {
	hub, srv := startBus(t)

	a := dial(t, srv, "raw")
	b := dial(t, srv, "raw")
	waitMembers(t, hub, "raw", 2)

	// The bus does not parse payloads.
	frame := "not json at all"
	a.WriteMessage(websocket.TextMessage, []byte(frame))
	if got := readText(t, b); got != frame {
		t.Fatalf("got %q", got)
	}
}

func TestDisconnectRemovesMember(t *testing.T) {
	hub, srv := startBus(t)

	a := dial(t, srv, "room")
	dial(t, srv, "room")
	waitMembers(t, hub, "room", 2)

	a.Close()
	waitMembers(t, hub, "room", 1)
}

func TestEmptyChannelDeleted(t *testing.T) {
	hub, srv := startBus(t)

	a := dial(t, srv, "solo")
	waitMembers(t, hub, "solo", 1)
	a.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := hub.Stats().Channels["solo"]; !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("channel not deleted: %+v", hub.Stats())
}

func TestHubStopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(testLogger())
	go hub.Run(ctx)
	srv := httptest.NewServer(NewRouter(hub, "test", testLogger()))
	defer srv.Close()

	conn := dial(t, srv, "room")
	waitMembers(t, hub, "room", 1)

	cancel()
	<-hub.Done()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected connection to close")
	}
	if s := hub.Stats(); s.Clients != 0 {
		t.Fatalf("stats after stop: %+v", s)
	}
}

func TestHealth(t *testing.T) {
	hub, srv := startBus(t)
	dial(t, srv, "room")
	waitMembers(t, hub, "room", 1)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Version != "test" || body.Clients != 1 || body.Channels["room"] != 1 {
		t.Fatalf("health=%+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := startBus(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestFrameType(t *testing.T) {
	if got := frameType([]byte(`{"type":"offer"}`)); got != "offer" {
		t.Fatalf("got %q", got)
	}
	if got := frameType([]byte(`garbage`)); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}
