// Package ws is the convenience broadcast layer: connected clients get
// pushed new-message and presence events, but the long-poll endpoint remains
// the authoritative retrieval path. Dropping an event here loses nothing.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Dave-code-creater/chiropractor-sub000/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannel = "clinic:ws-events"

// Hub manages all WebSocket connections and event fan-out. Redis Pub/Sub
// carries events across instances for horizontal scaling.
type Hub struct {
	// userID -> set of client connections (one user can have multiple tabs/devices)
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *model.WSEvent

	rdb    *redis.Client
	logger *zap.Logger

	// Callback when a user comes online/offline
	onStatusChange func(userID int64, online bool)
}

// NewHub creates a new WebSocket Hub
func NewHub(rdb *redis.Client, logger *zap.Logger, onStatusChange func(userID int64, online bool)) *Hub {
	return &Hub{
		clients:        make(map[int64]map[*Client]bool),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *model.WSEvent, 256),
		rdb:            rdb,
		logger:         logger,
		onStatusChange: onStatusChange,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	go h.subscribeRedis(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case event := <-h.broadcast:
			h.broadcastToLocal(event)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = make(map[*Client]bool)
		// First connection: user just came online
		if h.onStatusChange != nil {
			go h.onStatusChange(client.UserID, true)
		}
		h.publishToRedis(&TargetedEvent{Event: &model.WSEvent{
			Type:    model.WSEventOnline,
			Payload: model.OnlineEvent{UserID: client.UserID, IsOnline: true},
		}})
	}
	h.clients[client.UserID][client] = true
	h.logger.Debug("ws client connected",
		zap.Int64("user_id", client.UserID),
		zap.Int("connections", len(h.clients[client.UserID])))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}

	// The fan-out paths drop slow consumers and close their send channel;
	// such a client still unregisters through its read pump later. Only
	// close if this client is still a member of the set.
	if _, active := clients[client]; active {
		delete(clients, client)
		close(client.send)
	}

	if len(clients) == 0 {
		delete(h.clients, client.UserID)
		if h.onStatusChange != nil {
			go h.onStatusChange(client.UserID, false)
		}
		h.publishToRedis(&TargetedEvent{Event: &model.WSEvent{
			Type:    model.WSEventOffline,
			Payload: model.OnlineEvent{UserID: client.UserID, IsOnline: false},
		}})
	}
	h.logger.Debug("ws client disconnected", zap.Int64("user_id", client.UserID))
}

// SendToUser sends an event to a specific user (all their connections,
// on every instance).
func (h *Hub) SendToUser(userID int64, event *model.WSEvent) {
	h.publishToRedis(&TargetedEvent{
		TargetUserID: userID,
		Event:        event,
	})
}

// SendToUsers sends an event to multiple users
func (h *Hub) SendToUsers(userIDs []int64, event *model.WSEvent) {
	for _, userID := range userIDs {
		h.SendToUser(userID, event)
	}
}

// sendToLocalUser delivers to one user's connections. Takes the write lock
// because dropping a slow consumer mutates the client set.
func (h *Hub) sendToLocalUser(userID int64, event *model.WSEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[userID]; ok {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("ws event marshal failed", zap.Error(err))
			return
		}
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Send buffer full; drop the connection
				close(client.send)
				delete(clients, client)
			}
		}
	}
}

func (h *Hub) broadcastToLocal(event *model.WSEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("ws broadcast marshal failed", zap.Error(err))
		return
	}

	for _, clients := range h.clients {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				close(client.send)
				delete(clients, client)
			}
		}
	}
}

// IsUserOnline checks if a user has any active connections on this instance
func (h *Hub) IsUserOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// ========== Redis Pub/Sub for horizontal scaling ==========

// TargetedEvent wraps an event with an optional target user id. A zero
// target means broadcast.
type TargetedEvent struct {
	TargetUserID int64          `json:"target_user_id,omitempty"`
	Event        *model.WSEvent `json:"event"`
}

func (h *Hub) publishToRedis(data *TargetedEvent) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("ws redis marshal failed", zap.Error(err))
		return
	}
	if err := h.rdb.Publish(context.Background(), redisChannel, jsonData).Err(); err != nil {
		h.logger.Error("ws redis publish failed", zap.Error(err))
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.logger.Info("ws redis subscriber started", zap.String("channel", redisChannel))

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			var targeted TargetedEvent
			if err := json.Unmarshal([]byte(msg.Payload), &targeted); err != nil {
				h.logger.Error("ws redis unmarshal failed", zap.Error(err))
				continue
			}
			if targeted.TargetUserID != 0 {
				h.sendToLocalUser(targeted.TargetUserID, targeted.Event)
			} else if targeted.Event != nil {
				h.broadcastToLocal(targeted.Event)
			}
		}
	}
}
