package repos

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "gorm.io/datatypes"
    "gorm.io/gorm"

    "github.com/slotter-org/chat-backend/internal/logger"
    "github.com/slotter-org/chat-backend/internal/types"
)

type ChatMessageRepo interface {
    Append(ctx context.Context, tx *gorm.DB, conversationID uint, role types.Role, content string, meta *types.MessageMetadata) (*types.ChatMessage, error)
    GetByConversationID(ctx context.Context, tx *gorm.DB, conversationID uint) ([]*types.ChatMessage, error)
    CountByConversationID(ctx context.Context, tx *gorm.DB, conversationID uint) (int64, error)
    FirstByRole(ctx context.Context, tx *gorm.DB, conversationID uint, role types.Role) (*types.ChatMessage, error)
}

type chatMessageRepo struct {
    db      *gorm.DB
    log     *logger.Logger
    now     func() time.Time
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
    return &chatMessageRepo{
        db:     db,
        log:    baseLog.With("repo", "ChatMessageRepo"),
        now:    now,
    }
}

// Append writes the next message of a conversation. The store assigns Seq and
// CreatedAt; CreatedAt is pushed past the previous message's timestamp when the
// clock has not moved, so timestamps strictly increase with Seq.
func (cmr *chatMessageRepo) Append(ctx context.Context, tx *gorm.DB, conversationID uint, role types.Role, content string, meta *types.MessageMetadata) (*types.ChatMessage, error) {
    if tx == nil {
        tx = cmr.db
    }
    if !role.Valid() {
        return nil, fmt.Errorf("invalid message role %q", role)
    }

    var last []*types.ChatMessage
    if err := tx.WithContext(ctx).
        Where("conversation_id = ?", conversationID).
        Order("seq DESC").
        Limit(1).
        Find(&last).Error; err != nil {
        cmr.log.Error("failed to read last chat message", "conversationID", conversationID, "error", err)
        return nil, err
    }

    msg := &types.ChatMessage{
        ConversationID: conversationID,
        Seq:            1,
        Role:           role,
        Content:        content,
        CreatedAt:      cmr.now(),
    }
    if len(last) > 0 {
        msg.Seq = last[0].Seq + 1
        if !msg.CreatedAt.After(last[0].CreatedAt) {
            msg.CreatedAt = last[0].CreatedAt.Add(time.Millisecond)
        }
    }
    if meta != nil {
        raw, err := json.Marshal(meta)
        if err != nil {
            return nil, fmt.Errorf("failed to encode message metadata: %w", err)
        }
        msg.Metadata = datatypes.JSON(raw)
    }

    if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
        cmr.log.Error("failed to create chat message", "conversationID", conversationID, "role", role, "error", err)
        return nil, err
    }
    cmr.log.Debug("appended chat message", "conversationID", conversationID, "seq", msg.Seq, "role", role)
    return msg, nil
}

func (cmr *chatMessageRepo) GetByConversationID(ctx context.Context, tx *gorm.DB, conversationID uint) ([]*types.ChatMessage, error) {
    if tx == nil {
        tx = cmr.db
    }
    var msgs []*types.ChatMessage
    if err := tx.WithContext(ctx).
        Where("conversation_id = ?", conversationID).
        Order("seq ASC").
        Find(&msgs).Error; err != nil {
        cmr.log.Error("failed to get chat messages by conversationID", "error", err)
        return nil, err
    }
    return msgs, nil
}

func (cmr *chatMessageRepo) CountByConversationID(ctx context.Context, tx *gorm.DB, conversationID uint) (int64, error) {
    if tx == nil {
        tx = cmr.db
    }
    var count int64
    if err := tx.WithContext(ctx).
        Model(&types.ChatMessage{}).
        Where("conversation_id = ?", conversationID).
        Count(&count).Error; err != nil {
        cmr.log.Error("failed to count chat messages", "conversationID", conversationID, "error", err)
        return 0, err
    }
    return count, nil
}

// FirstByRole returns the earliest message with the given role, or nil when there is none.
func (cmr *chatMessageRepo) FirstByRole(ctx context.Context, tx *gorm.DB, conversationID uint, role types.Role) (*types.ChatMessage, error) {
    if tx == nil {
        tx = cmr.db
    }
    var msgs []*types.ChatMessage
    if err := tx.WithContext(ctx).
        Where("conversation_id = ? AND role = ?", conversationID, role).
        Order("seq ASC").
        Limit(1).
        Find(&msgs).Error; err != nil {
        cmr.log.Error("failed to get first chat message by role", "conversationID", conversationID, "role", role, "error", err)
        return nil, err
    }
    if len(msgs) == 0 {
        return nil, nil
    }
    return msgs[0], nil
}
