package middleware

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/requestdata"
  "github.com/slotter-org/chat-backend/internal/services"
)

type IdentityMiddleware struct {
  log               *logger.Logger
  identityResolver  services.IdentityResolver
}

func NewIdentityMiddleware(log *logger.Logger, identityResolver services.IdentityResolver) *IdentityMiddleware {
  middlewareLogger := log.With("Middleware", "IdentityMiddleware")
  return &IdentityMiddleware{log: middlewareLogger, identityResolver: identityResolver}
}

// RequireIdentity resolves the acting user into the request data. With no authentication
// in front of the API every caller acts as the guest account.
func (im *IdentityMiddleware) RequireIdentity() gin.HandlerFunc {
  return func(c *gin.Context) {
    ctx := c.Request.Context()
    user, err := im.identityResolver.ResolveOrCreateGuest(ctx)
    if err != nil || user == nil {
      im.log.Error("Failed to resolve acting user", "error", err)
      c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
      return
    }
    rd := requestdata.GetRequestData(ctx)
    if rd == nil {
      rd = &requestdata.RequestData{}
      ctx = requestdata.WithRequestData(ctx, rd)
      c.Request = c.Request.WithContext(ctx)
    }
    rd.UserID = user.ID
    rd.Username = user.Username
    rd.Guest = true
    c.Next()
  }
}
