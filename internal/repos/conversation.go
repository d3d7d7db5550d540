package repos

import (
    "context"
    "time"

    "gorm.io/gorm"
    "gorm.io/gorm/clause"

    "github.com/slotter-org/chat-backend/internal/logger"
    "github.com/slotter-org/chat-backend/internal/types"
)

// ConversationRepo scopes every lookup by owner: a conversation that exists but
// belongs to someone else is reported exactly like a missing one (nil, nil).
type ConversationRepo interface {
    // CREATE
    Create(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) (*types.Conversation, error)

    // READ
    GetOwned(ctx context.Context, tx *gorm.DB, conversationID, userID uint) (*types.Conversation, error)
    LockOwned(ctx context.Context, tx *gorm.DB, conversationID, userID uint) (*types.Conversation, error)
    GetByUserID(ctx context.Context, tx *gorm.DB, userID uint) ([]*types.Conversation, error)

    // UPDATE
    UpdateTitle(ctx context.Context, tx *gorm.DB, conversation *types.Conversation, title string) error
    Touch(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) error

    // FULL (HARD) DELETE
    DeleteCascade(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) error
}

type conversationRepo struct {
    db      *gorm.DB
    log     *logger.Logger
    now     func() time.Time
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
    return &conversationRepo{
        db:     db,
        log:    baseLog.With("repo", "ConversationRepo"),
        now:    now,
    }
}

func (cr *conversationRepo) Create(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) (*types.Conversation, error) {
    if tx == nil {
        tx = cr.db
    }
    if conversation.Title == "" {
        conversation.Title = types.DefaultConversationTitle
    }
    ts := cr.now()
    conversation.CreatedAt = ts
    conversation.UpdatedAt = ts
    if err := tx.WithContext(ctx).Create(conversation).Error; err != nil {
        cr.log.Error("failed to create conversation", "userID", conversation.UserID, "error", err)
        return nil, err
    }
    cr.log.Debug("created conversation", "conversationID", conversation.ID, "userID", conversation.UserID)
    return conversation, nil
}

func (cr *conversationRepo) GetOwned(ctx context.Context, tx *gorm.DB, conversationID, userID uint) (*types.Conversation, error) {
    return cr.getOwned(ctx, tx, conversationID, userID, false)
}

// LockOwned is GetOwned plus SELECT ... FOR UPDATE. It only makes sense inside a transaction.
func (cr *conversationRepo) LockOwned(ctx context.Context, tx *gorm.DB, conversationID, userID uint) (*types.Conversation, error) {
    return cr.getOwned(ctx, tx, conversationID, userID, true)
}

func (cr *conversationRepo) getOwned(ctx context.Context, tx *gorm.DB, conversationID, userID uint, lock bool) (*types.Conversation, error) {
    if tx == nil {
        tx = cr.db
    }
    q := tx.WithContext(ctx)
    if lock {
        q = q.Clauses(clause.Locking{Strength: "UPDATE"})
    }
    var results []*types.Conversation
    if err := q.
        Where("id = ? AND user_id = ?", conversationID, userID).
        Limit(1).
        Find(&results).Error; err != nil {
        cr.log.Error("failed to get conversation", "conversationID", conversationID, "error", err)
        return nil, err
    }
    if len(results) == 0 {
        return nil, nil
    }
    return results[0], nil
}

func (cr *conversationRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uint) ([]*types.Conversation, error) {
    if tx == nil {
        tx = cr.db
    }
    var conversations []*types.Conversation
    if err := tx.WithContext(ctx).
        Where("user_id = ?", userID).
        Order("created_at DESC").
        Order("id DESC").
        Find(&conversations).Error; err != nil {
        cr.log.Error("failed to list conversations", "userID", userID, "error", err)
        return nil, err
    }
    return conversations, nil
}

func (cr *conversationRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, conversation *types.Conversation, title string) error {
    if tx == nil {
        tx = cr.db
    }
    ts := cr.now()
    if err := tx.WithContext(ctx).
        Model(&types.Conversation{}).
        Where("id = ?", conversation.ID).
        Updates(map[string]interface{}{"title": title, "updated_at": ts}).Error; err != nil {
        cr.log.Error("failed to update conversation title", "conversationID", conversation.ID, "error", err)
        return err
    }
    conversation.Title = title
    conversation.UpdatedAt = ts
    return nil
}

func (cr *conversationRepo) Touch(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) error {
    if tx == nil {
        tx = cr.db
    }
    ts := cr.now()
    if err := tx.WithContext(ctx).
        Model(&types.Conversation{}).
        Where("id = ?", conversation.ID).
        Update("updated_at", ts).Error; err != nil {
        cr.log.Error("failed to touch conversation", "conversationID", conversation.ID, "error", err)
        return err
    }
    conversation.UpdatedAt = ts
    return nil
}

// DeleteCascade removes the conversation and every message referencing it as one unit.
// When tx is already a transaction the inner one becomes a savepoint.
func (cr *conversationRepo) DeleteCascade(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) error {
    if tx == nil {
        tx = cr.db
    }
    return tx.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
        msgs := inner.Where("conversation_id = ?", conversation.ID).Delete(&types.ChatMessage{})
        if msgs.Error != nil {
            cr.log.Error("failed to delete conversation messages", "conversationID", conversation.ID, "error", msgs.Error)
            return msgs.Error
        }
        if err := inner.
            Where("id = ? AND user_id = ?", conversation.ID, conversation.UserID).
            Delete(&types.Conversation{}).Error; err != nil {
            cr.log.Error("failed to delete conversation", "conversationID", conversation.ID, "error", err)
            return err
        }
        cr.log.Info("deleted conversation", "conversationID", conversation.ID, "messages", msgs.RowsAffected)
        return nil
    })
}
