package middleware

import (
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/requestdata"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every request with an id, echoes it back and seeds the request data
// that later middleware fills in. It also writes one access log line per request.
func RequestID(log *logger.Logger) gin.HandlerFunc {
  middlewareLogger := log.With("Middleware", "RequestID")
  return func(c *gin.Context) {
    id := c.GetHeader(RequestIDHeader)
    if _, err := uuid.Parse(id); err != nil {
      id = uuid.NewString()
    }
    c.Header(RequestIDHeader, id)
    ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{RequestID: id})
    c.Request = c.Request.WithContext(ctx)

    started := time.Now()
    c.Next()
    middlewareLogger.Info("request handled",
      "requestID", id,
      "method", c.Request.Method,
      "path", c.FullPath(),
      "status", c.Writer.Status(),
      "elapsed", time.Since(started),
    )
  }
}
