package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/model"
	"github.com/wellnest/wellnest-api/internal/ws"
	"github.com/wellnest/wellnest-api/pkg/auth"
)

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub        *ws.Hub
	jwtManager *auth.JWTManager
	revoked    func(c *gin.Context, token string) bool
	upgrader   websocket.Upgrader
	log        logrus.FieldLogger
}

// NewWSHandler builds the handler. An empty origins list accepts any origin.
func NewWSHandler(hub *ws.Hub, jwtManager *auth.JWTManager, revoked func(c *gin.Context, token string) bool, origins []string, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		hub:        hub,
		jwtManager: jwtManager,
		revoked:    revoked,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
		log: log,
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// native apps send no Origin header
		return origin == "" || allowed[origin]
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and manages the connection.
// Clients connect with ws://host/ws?token=<jwt>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		failure(c, http.StatusUnauthorized, "Token required")
		return
	}

	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil || (h.revoked != nil && h.revoked(c, tokenString)) {
		failure(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.Name, model.Role(claims.Role))
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleWSMessage)
}

func (h *WSHandler) handleWSMessage(client *ws.Client, event model.WSEvent) {
	switch event.Type {
	case model.WSEventCallOffer, model.WSEventCallAnswer, model.WSEventCallICE, model.WSEventCallHangup:
		target, relayed, err := relaySignal(client.UserID, event)
		if err != nil {
			h.log.WithError(err).WithField("user_id", client.UserID).Debug("dropping call signal")
			return
		}
		h.hub.SendToUser(target, relayed)
	default:
		h.log.WithFields(logrus.Fields{"user_id": client.UserID, "type": event.Type}).Debug("unknown websocket event")
	}
}

var errNoTarget = errors.New("call signal has no target")

// relaySignal stamps the sender on a call signaling event and returns the
// user it must be forwarded to.
func relaySignal(sender uuid.UUID, event model.WSEvent) (uuid.UUID, *model.WSEvent, error) {
	raw, err := json.Marshal(event.Payload)
	if err != nil {
		return uuid.Nil, nil, err
	}
	var signal model.CallSignal
	if err := json.Unmarshal(raw, &signal); err != nil {
		return uuid.Nil, nil, err
	}
	if signal.To == uuid.Nil || signal.To == sender {
		return uuid.Nil, nil, errNoTarget
	}
	signal.From = sender
	return signal.To, &model.WSEvent{Type: event.Type, Payload: signal}, nil
}
