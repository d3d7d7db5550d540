package socket

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/slotter-org/chat-backend/internal/logger"
)

// UserChannel is the channel every connection of a user is subscribed to.
func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

type Hub struct {
	log      *logger.Logger
	nodeID   string
	mu       sync.RWMutex
	channels map[string]map[uuid.UUID]*Client

	redisPubSub *RedisPubSub
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:      log.With("component", "Hub"),
		nodeID:   uuid.NewString(),
		channels: make(map[string]map[uuid.UUID]*Client),
	}
}

// NodeID identifies this process on the shared Redis channel.
func (h *Hub) NodeID() string {
	return h.nodeID
}

func (h *Hub) SetRedisPubSub(rp *RedisPubSub) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redisPubSub = rp
}

func (h *Hub) Subscribe(client *Client, channels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range channels {
		if h.channels[ch] == nil {
			h.channels[ch] = make(map[uuid.UUID]*Client)
		}
		h.channels[ch][client.ID] = client
	}
	h.log.Debug("Client subscribed", "client", client.ID, "channels", channels)
}

func (h *Hub) Unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch, clientsMap := range h.channels {
		if _, ok := clientsMap[client.ID]; ok {
			delete(clientsMap, client.ID)
			if len(clientsMap) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	h.log.Debug("Client unsubscribed from all channels", "client", client.ID)
}

// Subscribers reports how many local clients listen on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) localBroadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.channels[msg.Channel] {
		select {
		case client.Outbound <- msg:
		default:
			h.log.Warn("Dropping message to client; outbound buffer full", "client", client.ID, "channel", msg.Channel)
		}
	}
}

// BroadcastGlobal delivers locally and, when Redis is wired, publishes for the other nodes.
func (h *Hub) BroadcastGlobal(ctx context.Context, msg Message) {
	h.localBroadcast(msg)

	h.mu.RLock()
	rp := h.redisPubSub
	h.mu.RUnlock()
	if rp != nil {
		if err := rp.Publish(ctx, msg); err != nil {
			h.log.Warn("Failed to publish to Redis", "channel", msg.Channel, "error", err)
		}
	}
}
