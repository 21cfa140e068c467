/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Client is one websocket connection. Its id is the connectionId recorded
// on every Player the connection joins as.
type Client struct {
	id      string
	conn    *websocket.Conn
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan any
	closed bool
}

func newClient(cfg *Config, conn *websocket.Conn) *Client {
	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(cfg.eventRate), cfg.eventBurst),
		send:    make(chan any, sendBuffer),
	}
}

// push queues msg without blocking. A client that cannot keep up is closed
// and will be cleaned up by its read pump.
func (c *Client) push(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		log.Warn().Str("conn", c.id).Msg("dropping slow client")
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func upgrader(cfg *Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return cfg.corsOrigin == "*" || origin == "" || origin == cfg.corsOrigin
		},
	}
}

func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	up := upgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Str("remote", realIP(r)).Msg("websocket upgrade failed")
			return
		}

		c := newClient(cfg, conn)
		h.connect(c)

		log.Debug().Str("conn", c.id).Str("remote", realIP(r)).Msg("client connected")

		go c.writePump()
		c.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.disconnect(c)
		c.close()
		_ = c.conn.Close()
		log.Debug().Str("conn", c.id).Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", c.id).Msg("read failed")
			}
			return
		}

		if !c.limiter.Allow() {
			log.Debug().Str("conn", c.id).Msg("rate limited, event dropped")
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Debug().Err(err).Str("conn", c.id).Msg("malformed frame")
			continue
		}

		h.handle(c, env)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
