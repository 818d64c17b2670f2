// Package websocket implements the WebSocket transport for the streaming
// API. Each connection gets a Client with dedicated read/write pumps; the
// Client implements ports.Transport for the session layer.
//
// Message flow:
//   - Incoming: WebSocket -> readPump -> Session.HandleMessage
//   - Outgoing: stream listener -> Client.Send() -> writePump -> WebSocket
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/frostlabs/pulse/internal/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 90 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Send buffer size per client.
	sendBufferSize = 256
)

// MessageHandler processes one raw incoming frame.
type MessageHandler func(clientID string, message []byte)

// Client represents one WebSocket connection.
//
// Send is safe to call from any goroutine and never blocks on a slow peer;
// Close is safe to call multiple times.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	done           chan struct{}
	messageHandler MessageHandler
	onClose        func(id string)

	mu     sync.Mutex
	closed bool
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn, messageHandler MessageHandler, onClose func(id string)) *Client {
	return &Client{
		id:             uuid.New().String(),
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		messageHandler: messageHandler,
		onClose:        onClose,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Start starts the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send implements ports.Transport: it wraps the payload in a protocol frame
// and queues it for delivery. Messages to a full buffer are dropped.
func (c *Client) Send(event string, payload any) {
	data, err := json.Marshal(protocol.Frame{Event: event, Payload: payload})
	if err != nil {
		log.Warn().Err(err).Str("client_id", c.id).Str("event", event).Msg("failed to encode frame")
		return
	}
	c.SendRaw(data)
}

// SendRaw queues a pre-encoded frame.
func (c *Client) SendRaw(message []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.send <- message:
	default:
		// Channel full, client is too slow. Best-effort delivery: drop.
		log.Warn().Str("client_id", c.id).Msg("client send channel full, dropping message")
	}
}

// IsConnected implements ports.Transport.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

// readPump pumps messages from the WebSocket connection to the handler.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}

		if c.messageHandler != nil {
			c.messageHandler(c.id, message)
		}
	}
}

// writePump pumps messages from the send channel to the WebSocket
// connection. Each message goes out as its own frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message, ok := <-c.send:
			if !ok {
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("ping error")
				return
			}
		}
	}
}
