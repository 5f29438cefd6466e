package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/wellnest/wellnest-api/internal/model"
)

const redisChannel = "wellnest:events"

// Hub manages all WebSocket connections and fans events out across server
// instances through Redis Pub/Sub.
type Hub struct {
	// userID -> live connections (one user can have several devices)
	clients map[uuid.UUID]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client

	rdb *redis.Client
	log logrus.FieldLogger

	// called when a user's first connection opens or last one closes
	onStatusChange func(userID uuid.UUID, online bool)
}

// NewHub creates a new WebSocket Hub
func NewHub(rdb *redis.Client, log logrus.FieldLogger, onStatusChange func(userID uuid.UUID, online bool)) *Hub {
	return &Hub{
		clients:        make(map[uuid.UUID]map[*Client]struct{}),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		rdb:            rdb,
		log:            log,
		onStatusChange: onStatusChange,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	first := false
	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]struct{})
		first = true
	}
	h.clients[client.UserID][client] = struct{}{}
	n := len(h.clients[client.UserID])
	h.mu.Unlock()

	if first {
		h.presenceChanged(client.UserID, true)
	}
	h.log.WithFields(logrus.Fields{"user_id": client.UserID, "connections": n}).Info("✅ Client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	last := h.dropLocked(client)
	h.mu.Unlock()

	if last {
		h.presenceChanged(client.UserID, false)
	}
	h.log.WithField("user_id", client.UserID).Info("❌ Client disconnected")
}

// dropLocked detaches a client and closes its send channel exactly once.
// Reports whether it was the user's last connection. Caller holds h.mu.
func (h *Hub) dropLocked(client *Client) bool {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return false
	}
	if _, ok := clients[client]; !ok {
		return false
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
		return true
	}
	return false
}

func (h *Hub) presenceChanged(userID uuid.UUID, online bool) {
	if h.onStatusChange != nil {
		go h.onStatusChange(userID, online)
	}
	eventType := model.WSEventOffline
	if online {
		eventType = model.WSEventOnline
	}
	h.publish(&TargetedEvent{Event: &model.WSEvent{
		Type:    eventType,
		Payload: model.OnlineEvent{UserID: userID, IsOnline: online},
	}})
}

// SendToUser delivers an event to every connection of a user on any instance
func (h *Hub) SendToUser(userID uuid.UUID, event *model.WSEvent) {
	h.publish(&TargetedEvent{TargetUserID: userID, Event: event})
}

// IsUserOnline checks if a user has any active connections on this instance
func (h *Hub) IsUserOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// deliver pushes an encoded event to local connections. A nil target means
// every local connection. Slow consumers whose buffer is full are dropped.
func (h *Hub) deliver(target uuid.UUID, event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")
		return
	}

	h.mu.Lock()
	var offline []uuid.UUID
	for userID, clients := range h.clients {
		if target != uuid.Nil && userID != target {
			continue
		}
		for client := range clients {
			select {
			case client.send <- data:
			default:
				if h.dropLocked(client) {
					offline = append(offline, userID)
				}
			}
		}
	}
	h.mu.Unlock()

	for _, userID := range offline {
		h.presenceChanged(userID, false)
	}
}

// ========== Redis Pub/Sub ==========

// TargetedEvent wraps an event with a target user ID for Redis Pub/Sub
type TargetedEvent struct {
	TargetUserID uuid.UUID      `json:"target_user_id,omitempty"`
	Event        *model.WSEvent `json:"event"`
}

// publish fans te out through Redis. Without Redis the hub runs single
// instance and delivers locally.
func (h *Hub) publish(te *TargetedEvent) {
	if h.rdb == nil {
		if te.Event != nil {
			h.deliver(te.TargetUserID, te.Event)
		}
		return
	}
	data, err := json.Marshal(te)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event for Redis")
		return
	}
	if err := h.rdb.Publish(context.Background(), redisChannel, data).Err(); err != nil {
		h.log.WithError(err).Error("failed to publish to Redis")
	}
}

// handlePayload routes one Pub/Sub message to local clients
func (h *Hub) handlePayload(payload string) {
	var te TargetedEvent
	if err := json.Unmarshal([]byte(payload), &te); err != nil {
		h.log.WithError(err).Warn("dropping malformed Redis message")
		return
	}
	if te.Event == nil {
		return
	}
	h.deliver(te.TargetUserID, te.Event)
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.log.Info("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handlePayload(msg.Payload)
		}
	}
}
