package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/letscodeshivansh/taskchat/internal/config"
	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/logging"
)

// Client is one live connection. Conn may be nil in tests; only the pumps
// touch it.
type Client struct {
	ID      string
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	Session *domain.Session
	config  config.WebSocketConfig

	teardown     func()
	teardownOnce sync.Once

	sendMu sync.Mutex
	closed bool
}

func NewClient(id, identity string, h *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	return &Client{
		ID:      id,
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, cfg.SendBuffer),
		Session: domain.NewSession(id, identity),
		config:  cfg,
	}
}

// SetTeardown installs the disconnect cleanup. It runs at most once no
// matter how many paths trigger it.
func (c *Client) SetTeardown(fn func()) {
	c.teardown = fn
}

// Teardown runs the disconnect cleanup exactly once. Safe to call from any
// goroutine and safe to call repeatedly.
func (c *Client) Teardown() {
	c.teardownOnce.Do(func() {
		if c.teardown != nil {
			c.teardown()
		}
	})
}

// ReadPump reads inbound events and hands them to the handler sequentially,
// which is what gives a single sender its publish ordering. The pong
// deadline doubles as the idle timeout: a silent peer is dropped once it
// stops answering pings.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Teardown()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := logging.L()
				l.Debug().Err(err).Str(logging.FieldConnID, c.ID).Msg("websocket read error")
			}
			break
		}

		c.Session.UpdateActivity()
		handler(c, message)
	}
}

// WritePump flushes the send channel to the socket and keeps the connection
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent queues an event for delivery. A full buffer drops the event for
// this client only; broadcast callers rely on that isolation. Events queued
// after the client was unregistered are dropped.
func (c *Client) SendEvent(event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.Send <- data:
	default:
	}
	return nil
}

// closeSend closes the send channel once. Only the hub calls this, while it
// holds its write lock, so broadcast sends cannot interleave with the close.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}
