package services

import (
  "context"
  "errors"
  "strconv"
  "strings"

  "gorm.io/gorm"

  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/repos"
  "github.com/slotter-org/chat-backend/internal/requestdata"
  "github.com/slotter-org/chat-backend/internal/types"
  "github.com/slotter-org/chat-backend/internal/utils"
)

const (
  TitleMaxLength          = 50
  MaxConversationTitle    = 255
  titleDerivationMinCount = 4

  OutcomeSuccess          = "success"
  OutcomeFallback         = "fallback"
)

// ConversationNotifier receives conversation changes after they are committed.
type ConversationNotifier interface {
  ConversationChanged(ctx context.Context, userID uint, event types.ConversationEvent)
}

type ChatService interface {
  // ProcessMessage always returns a populated result. The error is non-nil for
  // validation, not-found and persistence failures; provider failures are folded into
  // a successful result carrying the fallback reply.
  ProcessMessage(ctx context.Context, text, conversationID string, user *types.User) (types.ChatResult, error)

  GetHistory(ctx context.Context, conversationID string, user *types.User) ([]*types.ChatMessage, error)
  ListConversations(ctx context.Context, user *types.User) ([]*types.Conversation, error)
  CreateConversation(ctx context.Context, user *types.User, title string) (*types.Conversation, error)
  RenameConversation(ctx context.Context, conversationID string, user *types.User, title string) (*types.Conversation, error)
  DeleteConversation(ctx context.Context, conversationID string, user *types.User) error
}

type chatService struct {
  db                *gorm.DB
  log               *logger.Logger
  conversationRepo  repos.ConversationRepo
  chatMessageRepo   repos.ChatMessageRepo
  gateway           AIGateway
  notifier          ConversationNotifier
}

func NewChatService(
  db                *gorm.DB,
  log               *logger.Logger,
  conversationRepo  repos.ConversationRepo,
  chatMessageRepo   repos.ChatMessageRepo,
  gateway           AIGateway,
  notifier          ConversationNotifier,
) ChatService {
  serviceLog := log.With("service", "ChatService")
  return &chatService{
    db:               db,
    log:              serviceLog,
    conversationRepo: conversationRepo,
    chatMessageRepo:  chatMessageRepo,
    gateway:          gateway,
    notifier:         notifier,
  }
}

func (cs *chatService) logFor(ctx context.Context) *logger.Logger {
  if rd := requestdata.GetRequestData(ctx); rd != nil && rd.RequestID != "" {
    return cs.log.With("requestID", rd.RequestID)
  }
  return cs.log
}

func (cs *chatService) notify(ctx context.Context, userID uint, eventType string, conv *types.Conversation) {
  if cs.notifier == nil || conv == nil {
    return
  }
  cs.notifier.ConversationChanged(ctx, userID, types.NewConversationEvent(eventType, conv))
}

// parseConversationID maps an id that is not a positive integer to not-found, the same
// answer a well-formed id owned by someone else gets.
func parseConversationID(raw string) (uint, error) {
  id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
  if err != nil || id == 0 {
    return 0, errordata.NotFound("Conversation not found")
  }
  return uint(id), nil
}

//----------------------------------------------------------------------------------------------------------------------
// ProcessMessage
//----------------------------------------------------------------------------------------------------------------------

func (cs *chatService) ProcessMessage(ctx context.Context, text, conversationID string, user *types.User) (types.ChatResult, error) {
  log := cs.logFor(ctx)
  requestedID := strings.TrimSpace(conversationID)
  failed := func(err error) (types.ChatResult, error) {
    return types.ChatResult{
      ConversationID: requestedID,
      Status:         types.ChatStatusError,
      Error:          errordata.PublicMessage(err),
    }, err
  }

  //1) Validate before anything is written
  text = utils.NormalizeInput(text)
  if text == "" {
    return failed(errordata.Validation("Message cannot be empty"))
  }
  if utils.RuneLen(text) > types.MaxMessageContentLength {
    return failed(errordata.Validation("Message cannot exceed 5000 characters"))
  }
  if user == nil {
    return failed(errordata.Persistence("no acting user", errors.New("nil user")))
  }

  var wantID uint
  if requestedID != "" {
    id, err := parseConversationID(requestedID)
    if err != nil {
      return failed(err)
    }
    wantID = id
  }

  var (
    conv      *types.Conversation
    reply     string
    created   bool
    gwErr     error
  )

  //2) Transaction Body
  txErr := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    var err error
    if wantID != 0 {
      conv, err = cs.conversationRepo.LockOwned(ctx, tx, wantID, user.ID)
      if err != nil {
        return err
      }
      if conv == nil {
        return errordata.NotFound("Conversation not found")
      }
    } else {
      conv, err = cs.conversationRepo.Create(ctx, tx, &types.Conversation{
        UserID: user.ID,
        Title:  types.DefaultConversationTitle,
      })
      if err != nil {
        return err
      }
      created = true
    }

    history, err := cs.chatMessageRepo.GetByConversationID(ctx, tx, conv.ID)
    if err != nil {
      return err
    }

    if _, err := cs.chatMessageRepo.Append(ctx, tx, conv.ID, types.RoleUser, text, nil); err != nil {
      return err
    }

    meta := &types.MessageMetadata{Outcome: OutcomeSuccess, Model: cs.gateway.Model()}
    reply, gwErr = cs.gateway.GenerateReply(ctx, text, types.PromptFromMessages(history))
    if gwErr != nil {
      reply = fallbackFor(gwErr)
      meta.Outcome = OutcomeFallback
      meta.FailureKind = string(errordata.KindOf(gwErr))
      if errordata.IsGatewayFailure(gwErr) {
        log.Warn("AI gateway failed, recording fallback reply", "conversationID", conv.ID, "kind", meta.FailureKind, "error", gwErr)
      } else {
        log.Error("AI gateway returned an unclassified error, recording fallback reply", "conversationID", conv.ID, "error", gwErr)
      }
    }
    reply = utils.TruncateRunes(reply, types.MaxMessageContentLength)

    if _, err := cs.chatMessageRepo.Append(ctx, tx, conv.ID, types.RoleAssistant, reply, meta); err != nil {
      return err
    }

    //3) Title derivation
    if conv.HasPlaceholderTitle() {
      count, err := cs.chatMessageRepo.CountByConversationID(ctx, tx, conv.ID)
      if err != nil {
        return err
      }
      if count >= titleDerivationMinCount {
        first, err := cs.chatMessageRepo.FirstByRole(ctx, tx, conv.ID, types.RoleUser)
        if err != nil {
          return err
        }
        if first != nil {
          title := utils.TruncateWithEllipsis(first.Content, TitleMaxLength)
          if err := cs.conversationRepo.UpdateTitle(ctx, tx, conv, title); err != nil {
            return err
          }
          log.Debug("Derived conversation title", "conversationID", conv.ID, "title", title)
          return nil
        }
      }
    }
    return cs.conversationRepo.Touch(ctx, tx, conv)
  })
  if txErr != nil {
    if e, ok := errordata.As(txErr); ok && e.Kind == errordata.KindNotFound {
      log.Info("Conversation not found for user", "conversationID", requestedID, "userID", user.ID)
      return failed(txErr)
    }
    log.Error("Failed to process chat message", "conversationID", requestedID, "userID", user.ID, "error", txErr)
    return failed(errordata.Persistence("failed to process chat message", txErr))
  }

  eventType := types.ConversationEventUpdated
  if created {
    eventType = types.ConversationEventCreated
  }
  cs.notify(ctx, user.ID, eventType, conv)

  log.Info("Processed chat message", "conversationID", conv.ID, "created", created, "fallback", gwErr != nil)
  return types.ChatResult{
    Response:       reply,
    ConversationID: strconv.FormatUint(uint64(conv.ID), 10),
    Status:         types.ChatStatusSuccess,
  }, nil
}

func fallbackFor(err error) string {
  if e, ok := errordata.As(err); ok && e.Fallback != "" {
    return e.Fallback
  }
  return withDetails(FallbackUnavailable, err.Error())
}

//----------------------------------------------------------------------------------------------------------------------
// Conversations
//----------------------------------------------------------------------------------------------------------------------

func (cs *chatService) GetHistory(ctx context.Context, conversationID string, user *types.User) ([]*types.ChatMessage, error) {
  id, err := parseConversationID(conversationID)
  if err != nil {
    return nil, err
  }
  conv, err := cs.conversationRepo.GetOwned(ctx, nil, id, user.ID)
  if err != nil {
    return nil, errordata.Persistence("failed to load conversation", err)
  }
  if conv == nil {
    return nil, errordata.NotFound("Conversation not found")
  }
  msgs, err := cs.chatMessageRepo.GetByConversationID(ctx, nil, conv.ID)
  if err != nil {
    return nil, errordata.Persistence("failed to load conversation history", err)
  }
  return msgs, nil
}

func (cs *chatService) ListConversations(ctx context.Context, user *types.User) ([]*types.Conversation, error) {
  convs, err := cs.conversationRepo.GetByUserID(ctx, nil, user.ID)
  if err != nil {
    return nil, errordata.Persistence("failed to list conversations", err)
  }
  return convs, nil
}

func normalizeTitle(title string) (string, error) {
  title = utils.NormalizeInput(title)
  if utils.RuneLen(title) > MaxConversationTitle {
    return "", errordata.Validation("Title cannot exceed 255 characters")
  }
  return title, nil
}

// CreateConversation falls back to the placeholder title when none is given.
func (cs *chatService) CreateConversation(ctx context.Context, user *types.User, title string) (*types.Conversation, error) {
  title, err := normalizeTitle(title)
  if err != nil {
    return nil, err
  }
  if title == "" {
    title = types.DefaultConversationTitle
  }
  conv, err := cs.conversationRepo.Create(ctx, nil, &types.Conversation{UserID: user.ID, Title: title})
  if err != nil {
    return nil, errordata.Persistence("failed to create conversation", err)
  }
  cs.notify(ctx, user.ID, types.ConversationEventCreated, conv)
  return conv, nil
}

func (cs *chatService) RenameConversation(ctx context.Context, conversationID string, user *types.User, title string) (*types.Conversation, error) {
  id, err := parseConversationID(conversationID)
  if err != nil {
    return nil, err
  }
  title, err = normalizeTitle(title)
  if err != nil {
    return nil, err
  }
  if title == "" {
    return nil, errordata.Validation("Title cannot be empty")
  }

  var conv *types.Conversation
  txErr := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    conv, err = cs.conversationRepo.LockOwned(ctx, tx, id, user.ID)
    if err != nil {
      return err
    }
    if conv == nil {
      return errordata.NotFound("Conversation not found")
    }
    return cs.conversationRepo.UpdateTitle(ctx, tx, conv, title)
  })
  if txErr != nil {
    if _, ok := errordata.As(txErr); ok {
      return nil, txErr
    }
    cs.logFor(ctx).Error("Failed to rename conversation", "conversationID", id, "error", txErr)
    return nil, errordata.Persistence("failed to rename conversation", txErr)
  }
  cs.notify(ctx, user.ID, types.ConversationEventRenamed, conv)
  return conv, nil
}

func (cs *chatService) DeleteConversation(ctx context.Context, conversationID string, user *types.User) error {
  id, err := parseConversationID(conversationID)
  if err != nil {
    return err
  }
  var conv *types.Conversation
  txErr := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    conv, err = cs.conversationRepo.LockOwned(ctx, tx, id, user.ID)
    if err != nil {
      return err
    }
    if conv == nil {
      return errordata.NotFound("Conversation not found")
    }
    return cs.conversationRepo.DeleteCascade(ctx, tx, conv)
  })
  if txErr != nil {
    if _, ok := errordata.As(txErr); ok {
      return txErr
    }
    cs.logFor(ctx).Error("Failed to delete conversation", "conversationID", id, "error", txErr)
    return errordata.Persistence("failed to delete conversation", txErr)
  }
  cs.notify(ctx, user.ID, types.ConversationEventDeleted, conv)
  return nil
}
