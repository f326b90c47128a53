package bus

import (
	"context"
	"log/slog"

	"github.com/BioHazard786/Warpdraw/internal/observability"
)

// Stats is a point-in-time view of the bus.
type Stats struct {
	Clients  int            `json:"clients"`
	Channels map[string]int `json:"channels"`
}

// Hub owns every channel and client. All membership changes and broadcasts
// happen on the goroutine running Run.
type Hub struct {
	channels map[string]*Channel

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Frame
	stats      chan chan Stats
	done       chan struct{}

	logger *slog.Logger
}

// NewHub creates a Hub. Start it with Run before serving clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		channels:   make(map[string]*Channel),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Frame),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
		logger:     logger.With("component", "bus"),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. On exit
// every remaining client is disconnected.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, ch := range h.channels {
			for c := range ch.Clients {
				h.remove(c)
			}
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			ch, ok := h.channels[c.Channel]
			if !ok {
				ch = newChannel(c.Channel)
				h.channels[c.Channel] = ch
			}
			ch.Clients[c] = struct{}{}
			observability.RecordBusConnection(1)
			h.logger.Info("client joined", "client", c.ID, "channel", c.Channel, "members", len(ch.Clients))

		case c := <-h.unregister:
			h.remove(c)

		case f := <-h.broadcast:
			h.relay(f)

		case reply := <-h.stats:
			s := Stats{Channels: make(map[string]int, len(h.channels))}
			for name, ch := range h.channels {
				s.Channels[name] = len(ch.Clients)
				s.Clients += len(ch.Clients)
			}
			reply <- s
		}
	}
}

// relay fans a frame out to every other member of the sender's channel.
// Members whose send buffer is full are disconnected.
func (h *Hub) relay(f *Frame) {
	ch, ok := h.channels[f.sender.Channel]
	if !ok {
		return
	}
	if _, member := ch.Clients[f.sender]; !member {
		return
	}

	delivered, dropped := 0, 0
	for c := range ch.Clients {
		if c == f.sender {
			continue
		}
		select {
		case c.Send <- f.Data:
			delivered++
		default:
			dropped++
			h.logger.Warn("dropping slow client", "client", c.ID, "channel", ch.Name)
			h.remove(c)
		}
	}
	observability.RecordBusMessage(ch.Name, delivered, dropped)
	h.logger.Debug("relayed frame", "type", frameType(f.Data), "channel", ch.Name, "from", f.sender.ID, "delivered", delivered)
}

func (h *Hub) remove(c *Client) {
	ch, ok := h.channels[c.Channel]
	if !ok {
		return
	}
	if _, member := ch.Clients[c]; !member {
		return
	}
	delete(ch.Clients, c)
	close(c.Send)
	observability.RecordBusConnection(-1)
	h.logger.Info("client left", "client", c.ID, "channel", ch.Name, "members", len(ch.Clients))

	if len(ch.Clients) == 0 {
		delete(h.channels, ch.Name)
		h.logger.Debug("channel deleted", "channel", ch.Name)
	}
}

// registerClient adds c to its channel. It reports false when the hub has
// stopped.
func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) publish(f *Frame) bool {
	select {
	case h.broadcast <- f:
		return true
	case <-h.done:
		return false
	}
}

// Stats returns the current membership. It returns a zero Stats once the hub
// has stopped.
func (h *Hub) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
		return <-reply
	case <-h.done:
		return Stats{Channels: map[string]int{}}
	}
}

// Done is closed after Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
