package socket

import (
	"context"
	"encoding/json"

	"github.com/slotter-org/chat-backend/internal/logger"
	"github.com/slotter-org/chat-backend/internal/types"
)

// ConversationNotifier pushes conversation events onto the owner's user channel.
type ConversationNotifier struct {
	hub *Hub
	log *logger.Logger
}

func NewConversationNotifier(hub *Hub, log *logger.Logger) *ConversationNotifier {
	return &ConversationNotifier{hub: hub, log: log.With("component", "ConversationNotifier")}
}

func (n *ConversationNotifier) ConversationChanged(ctx context.Context, userID uint, event types.ConversationEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		n.log.Warn("failed to encode conversation event", "error", err)
		return
	}
	n.hub.BroadcastGlobal(ctx, Message{Channel: UserChannel(userID), Data: raw})
	n.log.Debug("conversation event sent", "userID", userID, "type", event.Type, "conversationID", event.ConversationID)
}
