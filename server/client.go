// File: server/client.go
package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pongduel/server/utils"
)

// Client wraps one WebSocket connection. Outbound frames go through a
// buffered channel drained by writePump, so sends from game logic never
// block: if the buffer is full or the peer is closed, the frame is dropped
// and the periodic state broadcast self-heals.
type Client struct {
	id   string
	cfg  utils.Config
	conn *websocket.Conn

	mu   sync.RWMutex
	name string

	send      chan []byte
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func newClient(cfg utils.Config, conn *websocket.Conn) *Client {
	return &Client{
		id:   utils.NewID("peer"),
		cfg:  cfg,
		conn: conn,
		name: utils.DefaultPlayerName,
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

// ID returns the stable peer identity assigned at accept.
func (c *Client) ID() string { return c.id }

// Name returns the sanitized display name.
func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Client) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// Open reports whether the peer can still receive frames.
func (c *Client) Open() bool { return !c.closed.Load() }

// Send marshals msg and enqueues it, best-effort. Never blocks, never
// errors: a closed peer or a full buffer drops the frame.
func (c *Client) Send(msg interface{}) {
	if c.closed.Load() {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("Client %s: marshal error: %v\n", c.id, err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close marks the peer closed and tears the connection down. Idempotent;
// called when the write pump exits and by the session on disconnect and
// termination.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.conn.Close()
	})
}

// writePump drains the send channel and drives the keep-alive: a ping every
// PingPeriod, with the read deadline refreshed by the pong handler in
// readPump. A peer that stops answering times out the read side and follows
// the disconnect path.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
