package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/model"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be less than pongWait

	// SDP offers can be large
	maxMessageSize = 64 << 10
	sendBuffer     = 256

	// ICE candidates arrive in bursts right after an offer
	inboundRate  = rate.Limit(20)
	inboundBurst = 60
)

// Client is one WebSocket connection of an authenticated user
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	UserID uuid.UUID
	Name   string
	Role   model.Role
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, name string, role model.Role) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(inboundRate, inboundBurst),
		UserID:  userID,
		Name:    name,
		Role:    role.OrDefault(),
	}
}

// MessageHandler processes one decoded inbound event
type MessageHandler func(client *Client, event model.WSEvent)

// accept reports whether an inbound frame is within the client's rate
func (c *Client) accept() bool {
	return c.limiter == nil || c.limiter.Allow()
}

// ReadPump decodes inbound frames and hands them to handler until the
// connection fails. Run it in its own goroutine.
func (c *Client) ReadPump(handler MessageHandler) {
	log := c.hub.log.WithField("user_id", c.UserID)
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	dropped := 0
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("websocket read error")
			}
			if dropped > 0 {
				log.WithField("dropped", dropped).Info("inbound events dropped by rate limit")
			}
			return
		}

		if !c.accept() {
			dropped++
			continue
		}

		var event model.WSEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.WithError(err).Debug("ignoring malformed websocket message")
			continue
		}
		if handler != nil {
			handler(c, event)
		}
	}
}

// WritePump writes queued events and keepalive pings. Run it in its own
// goroutine; it exits when the hub closes the send channel.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one event per frame so clients can decode each message on its own
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.log.WithError(err).WithFields(logrus.Fields{"user_id": c.UserID}).Debug("websocket write failed")
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
