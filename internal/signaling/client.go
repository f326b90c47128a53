package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/BioHazard786/Warpdraw/internal/dns"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	incomingBuffer = 32
	outgoingBuffer = 32
)

// ErrBusClosed is returned when publishing on a closed or failed connection.
var ErrBusClosed = errors.New("signaling bus closed")

// Client is a websocket connection to the signaling bus. Every message it
// publishes is broadcast to the other listeners on the same channel.
type Client struct {
	serverURL string
	logger    *slog.Logger

	conn     *websocket.Conn
	incoming chan *Message
	outgoing chan []byte
	done     chan struct{}

	// writerDone is closed when writePump has flushed and exited.
	writerDone chan struct{}

	closeOnce sync.Once
}

// NewClient creates a client for the bus at serverURL.
func NewClient(serverURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		serverURL: serverURL,
		logger:    logger.With("component", "signaling"),
		incoming:  make(chan *Message, incomingBuffer),
		outgoing:  make(chan []byte, outgoingBuffer),
		done:      make(chan struct{}),
	}
}

// Connect dials the bus and starts the read and write pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid bus URL: %w", err)
	}

	dialer := websocket.Dialer{
		NetDialContext:   dns.DialContext,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.writerDone = make(chan struct{})

	c.logger.Info("connected to bus", "url", u.String())
	go c.readPump()
	go c.writePump()
	return nil
}

// readPump decodes frames into messages. Malformed frames are skipped.
func (c *Client) readPump() {
	defer func() {
		c.shutdown()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("bus read failed", "error", err)
			}
			return
		}

		msg, err := Decode(data)
		if err != nil {
			c.logger.Warn("dropping malformed bus frame", "error", err, "size", len(data))
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

// writePump sends queued frames and keeps the connection alive with pings.
// On Close it flushes what is still queued before the close frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case data := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("bus write failed", "error", err)
				c.shutdown()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.flush() {
				return
			}
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes every frame still queued. It reports false on a write error.
func (c *Client) flush() bool {
	for {
		select {
		case data := <-c.outgoing:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("flush on close failed", "error", err)
				return false
			}
		default:
			return true
		}
	}
}

// Publish queues msg for broadcast.
func (c *Client) Publish(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}

	select {
	case <-c.done:
		return ErrBusClosed
	default:
	}

	select {
	case c.outgoing <- data:
		return nil
	case <-c.done:
		return ErrBusClosed
	}
}

// Incoming returns inbound messages. It is closed when the connection ends.
func (c *Client) Incoming() <-chan *Message {
	return c.incoming
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close ends the connection after the queued messages have been written. It
// is safe to call more than once.
func (c *Client) Close() error {
	c.shutdown()
	if c.writerDone != nil {
		<-c.writerDone
	}
	return nil
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
