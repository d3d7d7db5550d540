package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/chat-backend/internal/services"
)

func Healthz(c *gin.Context) {
  c.String(http.StatusOK, "ok")
}

// Pinger is satisfied by *db.DatabaseService.
type Pinger interface {
  Ping() error
}

type HealthHandler struct {
  gateway   services.AIGateway
  database  Pinger
}

// NewHealthHandler accepts a nil database, in which case the store is not probed.
func NewHealthHandler(gateway services.AIGateway, database Pinger) *HealthHandler {
  return &HealthHandler{gateway: gateway, database: database}
}

// Health reports the AI credential state. It answers 503 only when the store is unreachable.
func (hh *HealthHandler) Health(c *gin.Context) {
  body := gin.H{
    "status":       "UP",
    "message":      "Backend is running!",
    "aiConfigured": hh.gateway.IsConfigured(),
  }
  if hh.database != nil {
    if err := hh.database.Ping(); err != nil {
      body["status"] = "DOWN"
      body["message"] = "Database is unreachable"
      c.JSON(http.StatusServiceUnavailable, body)
      return
    }
  }
  c.JSON(http.StatusOK, body)
}
