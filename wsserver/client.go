package wsserver

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const sendQueueSize = 100

// Client wraps one websocket connection with a buffered send queue and a
// write pump goroutine, so slow readers never block the broadcast tick.
type Client struct {
	id     string
	conn   *websocket.Conn
	logger *slog.Logger

	mu        sync.Mutex
	sendQueue chan []byte
	closed    bool
}

func newClient(conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		id:        uuid.New().String(),
		conn:      conn,
		sendQueue: make(chan []byte, sendQueueSize),
		logger:    logger,
	}
}

// ID returns the connection's opaque identifier.
func (c *Client) ID() string { return c.id }

// Send enqueues a frame without blocking. A full or closed queue drops
// the frame and reports false. The read loop can still dispatch frames
// it pulled off the socket after the session was torn down, so Send must
// stay safe after Close.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.sendQueue <- data:
		return true
	default:
		return false
	}
}

// Close shuts the queue down; the write pump closes the socket. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.sendQueue)
}

// writePump drains the send queue onto the socket until the queue closes
// or a write fails.
func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.sendQueue {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.logger.Debug("write failed, dropping connection", "conn", c.id, "err", err)
			return
		}
	}
}
