package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/requestdata"
  "github.com/slotter-org/chat-backend/internal/types"
)

// actingUser builds the user the identity middleware resolved for this request.
func actingUser(c *gin.Context) (*types.User, bool) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == 0 {
    c.JSON(http.StatusUnauthorized, gin.H{"error": "no acting user"})
    return nil, false
  }
  return &types.User{ID: rd.UserID, Username: rd.Username}, true
}

func respondError(c *gin.Context, err error) {
  c.JSON(errordata.HTTPStatus(err), gin.H{"error": errordata.PublicMessage(err)})
}
