package handlers

import (
  "errors"
  "io"
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/types"
)

func (ch *ChatHandler) ListConversations(c *gin.Context) {
  user, ok := actingUser(c)
  if !ok {
    return
  }
  convs, err := ch.chatService.ListConversations(c.Request.Context(), user)
  if err != nil {
    respondError(c, err)
    return
  }
  if convs == nil {
    convs = []*types.Conversation{}
  }
  c.JSON(http.StatusOK, convs)
}

func (ch *ChatHandler) CreateConversation(c *gin.Context) {
  var req struct {
    Title   string    `json:"title"`
  }
  // An empty body is allowed and means "no title".
  if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
    c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
    return
  }
  user, ok := actingUser(c)
  if !ok {
    return
  }
  conv, err := ch.chatService.CreateConversation(c.Request.Context(), user, req.Title)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusCreated, conv)
}

func (ch *ChatHandler) RenameConversation(c *gin.Context) {
  var req struct {
    Title   string    `json:"title" binding:"required"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
    return
  }
  user, ok := actingUser(c)
  if !ok {
    return
  }
  conv, err := ch.chatService.RenameConversation(c.Request.Context(), c.Param("id"), user, req.Title)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusOK, conv)
}

func (ch *ChatHandler) DeleteConversation(c *gin.Context) {
  user, ok := actingUser(c)
  if !ok {
    return
  }
  if err := ch.chatService.DeleteConversation(c.Request.Context(), c.Param("id"), user); err != nil {
    c.JSON(errordata.HTTPStatus(err), gin.H{"status": "error", "message": errordata.PublicMessage(err)})
    return
  }
  c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Conversation deleted"})
}
