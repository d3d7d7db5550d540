package types

import (
  "time"
)

const (
  ConversationEventCreated    = "conversation.created"
  ConversationEventUpdated    = "conversation.updated"
  ConversationEventRenamed    = "conversation.renamed"
  ConversationEventDeleted    = "conversation.deleted"
)

// ConversationEvent is pushed to a user's live connections after a committed change.
type ConversationEvent struct {
  Type              string      `json:"type"`
  ConversationID    uint        `json:"conversationId"`
  Title             string      `json:"title,omitempty"`
  UpdatedAt         time.Time   `json:"updatedAt"`
}

func NewConversationEvent(eventType string, c *Conversation) ConversationEvent {
  return ConversationEvent{
    Type:           eventType,
    ConversationID: c.ID,
    Title:          c.Title,
    UpdatedAt:      c.UpdatedAt,
  }
}
