package handlers

import (
  "context"
  "net/http"

  "github.com/gin-gonic/gin"
  "github.com/gorilla/websocket"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/requestdata"
  "github.com/slotter-org/chat-backend/internal/socket"
)

// NewWsHandler upgrades the request and subscribes the connection to its user's channel.
// checkOrigin may be nil to accept any origin.
func NewWsHandler(hub *socket.Hub, log *logger.Logger, checkOrigin func(r *http.Request) bool) gin.HandlerFunc {
  if checkOrigin == nil {
    checkOrigin = func(r *http.Request) bool { return true }
  }
  upgrader := websocket.Upgrader{
    ReadBufferSize:   1024,
    WriteBufferSize:  1024,
    CheckOrigin:      checkOrigin,
  }
  handlerLog := log.With("handler", "WsHandler")
  return func(c *gin.Context) {
    rd := requestdata.GetRequestData(c.Request.Context())
    if rd == nil || rd.UserID == 0 {
      c.JSON(http.StatusUnauthorized, gin.H{"error": "no acting user"})
      return
    }
    conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
    if err != nil {
      handlerLog.Warn("Failed to upgrade to websocket", "error", err)
      return
    }
    // The request context ends when this handler returns; the pumps get their own.
    ctx, cancel := context.WithCancel(context.Background())
    client := socket.NewClient(conn, hub, rd.UserID, cancel, handlerLog)
    channel := socket.UserChannel(rd.UserID)
    hub.Subscribe(client, []string{channel})
    handlerLog.Debug("Websocket client subscribed", "clientID", client.ID, "channel", channel, "subscribers", hub.Subscribers(channel))

    go client.WriteLoop(ctx)
    go client.ReadLoop(ctx)
  }
}
