package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/services"
)

type AuthHandler struct {
  log           *logger.Logger
  userService   services.UserService
}

func NewAuthHandler(log *logger.Logger, userService services.UserService) *AuthHandler {
  return &AuthHandler{log: log.With("handler", "AuthHandler"), userService: userService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
  var req struct {
    Username    string      `json:"username" binding:"required"`
    Email       string      `json:"email" binding:"required"`
    Password    string      `json:"password" binding:"required"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    c.JSON(http.StatusBadRequest, gin.H{"error": "username, email and password are required"})
    return
  }
  user, err := ah.userService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
  if err != nil {
    respondError(c, err)
    return
  }
  c.JSON(http.StatusCreated, gin.H{
    "status":   "success",
    "message":  "User registered successfully",
    "userId":   user.ID,
    "username": user.Username,
  })
}
