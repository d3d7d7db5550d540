package types

import (
  "time"
)

const DefaultConversationTitle = "New Conversation"

// Conversation is owned by exactly one user. Messages point back at it by id only
// and the conversation never embeds its messages.
type Conversation struct {
  ID          uint              `gorm:"primaryKey;autoIncrement" json:"id"`
  UserID      uint              `gorm:"index;not null;column:user_id" json:"-"`
  Title       string            `gorm:"column:title;not null;size:255" json:"title"`
  CreatedAt   time.Time         `gorm:"not null;index;autoCreateTime:false" json:"createdAt"`
  UpdatedAt   time.Time         `gorm:"not null;autoUpdateTime:false" json:"updatedAt"`
}

func (Conversation) TableName() string {
  return "conversation"
}

func (c *Conversation) HasPlaceholderTitle() bool {
  return c.Title == DefaultConversationTitle
}
