package bus

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultChannel is joined when the client names none.
const DefaultChannel = "drawing"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browser peers are served from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs upgrades the request and attaches the connection to the channel
// named by the "channel" query parameter.
func ServeWs(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel := r.URL.Query().Get("channel")
		if channel == "" {
			channel = DefaultChannel
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		id := uuid.NewString()
		client := &Client{
			ID:      id,
			Hub:     hub,
			Conn:    conn,
			Channel: channel,
			Send:    make(chan []byte, sendBuffer),
			logger:  logger.With("client", id, "remote", conn.RemoteAddr().String()),
		}

		if !hub.registerClient(client) {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bus shutting down"))
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Stats
}

func healthHandler(hub *Hub, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(healthResponse{
			Status:  "ok",
			Version: version,
			Stats:   hub.Stats(),
		})
	}
}

// NewRouter mounts the websocket endpoint, the health check and the
// Prometheus metrics.
func NewRouter(hub *Hub, version string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ServeWs(hub, logger))
	mux.HandleFunc("/health", healthHandler(hub, version))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
