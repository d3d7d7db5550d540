package handlers

import (
  "bytes"
  "encoding/json"
  "fmt"
  "net/http"
  "time"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/services"
  "github.com/slotter-org/chat-backend/internal/types"
)

type ChatHandler struct {
  log           *logger.Logger
  chatService   services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
  return &ChatHandler{log: log.With("handler", "ChatHandler"), chatService: chatService}
}

// conversationRef accepts a conversation id sent as a JSON string, number or null.
type conversationRef string

func (r *conversationRef) UnmarshalJSON(data []byte) error {
  data = bytes.TrimSpace(data)
  if bytes.Equal(data, []byte("null")) {
    *r = ""
    return nil
  }
  if len(data) > 0 && data[0] == '"' {
    var s string
    if err := json.Unmarshal(data, &s); err != nil {
      return err
    }
    *r = conversationRef(s)
    return nil
  }
  var n json.Number
  if err := json.Unmarshal(data, &n); err != nil {
    return fmt.Errorf("conversationId must be a string or number")
  }
  *r = conversationRef(n.String())
  return nil
}

type chatRequest struct {
  Message           string            `json:"message"`
  ConversationID    conversationRef   `json:"conversationId"`
}

func (ch *ChatHandler) Chat(c *gin.Context) {
  var req chatRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, types.ChatResult{Status: types.ChatStatusError, Error: "invalid request body"})
    return
  }
  user, ok := actingUser(c)
  if !ok {
    return
  }
  result, err := ch.chatService.ProcessMessage(c.Request.Context(), req.Message, string(req.ConversationID), user)
  if err != nil || !result.Succeeded() {
    c.JSON(errordata.HTTPStatus(err), result)
    return
  }
  c.JSON(http.StatusOK, result)
}

type historyEntry struct {
  Role        types.Role    `json:"role"`
  Content     string        `json:"content"`
  Timestamp   time.Time     `json:"timestamp"`
}

func (ch *ChatHandler) History(c *gin.Context) {
  user, ok := actingUser(c)
  if !ok {
    return
  }
  msgs, err := ch.chatService.GetHistory(c.Request.Context(), c.Param("conversationId"), user)
  if err != nil {
    respondError(c, err)
    return
  }
  out := make([]historyEntry, 0, len(msgs))
  for _, m := range msgs {
    out = append(out, historyEntry{Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt})
  }
  c.JSON(http.StatusOK, out)
}
