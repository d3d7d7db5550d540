package types

import (
  "time"

  "gorm.io/datatypes"
)

type Role string

const (
  RoleUser        Role = "user"
  RoleAssistant   Role = "assistant"
  RoleSystem      Role = "system"
)

func (r Role) Valid() bool {
  switch r {
  case RoleUser, RoleAssistant, RoleSystem:
    return true
  }
  return false
}

const MaxMessageContentLength = 5000

// ChatMessage is immutable once written. Seq gives the total order inside a
// conversation; CreatedAt is assigned by the store and strictly increases with Seq.
type ChatMessage struct {
  ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
  ConversationID  uint            `gorm:"not null;index:idx_chat_message_conversation_seq,unique,priority:1;column:conversation_id" json:"-"`
  Seq             int64           `gorm:"not null;index:idx_chat_message_conversation_seq,unique,priority:2;column:seq" json:"-"`
  Role            Role            `gorm:"column:role;not null;size:16" json:"role"`
  Content         string          `gorm:"column:content;type:text;not null" json:"content"`
  Metadata        datatypes.JSON  `gorm:"column:metadata" json:"-"`
  CreatedAt       time.Time       `gorm:"not null;autoCreateTime:false" json:"timestamp"`
}

func (ChatMessage) TableName() string {
  return "chat_message"
}

// MessageMetadata is stored alongside assistant messages so a fallback reply can be
// told apart from a real completion.
type MessageMetadata struct {
  Outcome         string          `json:"outcome"`
  FailureKind     string          `json:"failureKind,omitempty"`
  Model           string          `json:"model,omitempty"`
}
