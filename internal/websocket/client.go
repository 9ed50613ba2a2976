// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package websocket

import (
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/metrics"
	"github.com/tomtom215/lookout/internal/stream"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send control messages
)

var clientIDCounter atomic.Uint64

// Client connects one websocket to one stream subscription.
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	sub     *stream.Subscription
	control chan ControlMessage
	limiter *rate.Limiter
}

// NewClient subscribes to the hub's stream source. The snapshot is queued
// immediately so nothing that happens before Start is missed.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		sub:     hub.source.Subscribe(),
		control: make(chan ControlMessage, 8),
		limiter: hub.resyncLimiter(),
	}
}

// ID returns the client's id.
func (c *Client) ID() uint64 {
	return c.id
}

// Start runs the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.handleControl(data)
	}
}

func (c *Client) handleControl(data []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply(ControlMessage{Type: MessageTypeError, Message: "invalid message"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.reply(ControlMessage{Type: MessageTypePong})
	case MessageTypeResync:
		if !c.limiter.Allow() {
			metrics.RecordWSResyncRejected()
			c.reply(ControlMessage{Type: MessageTypeError, Message: "resync rate limited"})
			return
		}
		if err := c.hub.source.Resync(c.sub); err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Msg("resync on closed subscription")
		}
	default:
		c.reply(ControlMessage{Type: MessageTypeError, Message: "unknown message type"})
	}
}

func (c *Client) reply(msg ControlMessage) {
	select {
	case c.control <- msg:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	frames := c.sub.C()
	for {
		select {
		case fr, ok := <-frames:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed, reconnect for a snapshot"))
				return
			}
			data, err := stream.EncodeFrame(fr)
			if err != nil {
				logging.Error().Err(err).Msg("failed to encode stream frame")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case msg := <-c.control:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
