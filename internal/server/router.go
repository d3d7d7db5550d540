package server

import (
  "net/http"
  "net/url"
  "strings"

  "github.com/gin-gonic/gin"
  "github.com/gin-contrib/cors"

  "github.com/slotter-org/chat-backend/internal/handlers"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/middleware"
)

type RouterConfig struct {
  Log                   *logger.Logger
  AllowedOrigins        []string
  AuthHandler           *handlers.AuthHandler
  ChatHandler           *handlers.ChatHandler
  HealthHandler         *handlers.HealthHandler
  IdentityMiddleware    *middleware.IdentityMiddleware
  WsHandler             gin.HandlerFunc
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.New()
  router.Use(gin.Recovery())
  router.Use(middleware.RequestID(cfg.Log))

  //-----------------------------------------
  // Cors Setup
  //-----------------------------------------
  corsConfig := cors.Config{
    AllowMethods:     []string{"GET","POST","PUT","DELETE","PATCH","OPTIONS"},
    AllowHeaders:     []string{"Authorization","Content-Type","X-Requested-With",middleware.RequestIDHeader},
    ExposeHeaders:    []string{middleware.RequestIDHeader},
  }
  if len(cfg.AllowedOrigins) == 0 || containsWildcard(cfg.AllowedOrigins) {
    corsConfig.AllowAllOrigins = true
  } else {
    corsConfig.AllowOrigins = cfg.AllowedOrigins
    corsConfig.AllowCredentials = true
  }
  router.Use(cors.New(corsConfig))

  //-----------------------------------------
  // Health Routes
  //-----------------------------------------
  router.GET("/healthz", handlers.Healthz)

  //-----------------------------------------
  // Public Routes
  //-----------------------------------------
  api := router.Group("/api")
  {
    api.GET("/health", cfg.HealthHandler.Health)
    api.POST("/auth/register", cfg.AuthHandler.Register)
  }

  //------------------------------------------
  // Identified Routes
  //------------------------------------------
  identified := api.Group("")
  identified.Use(cfg.IdentityMiddleware.RequireIdentity())
  identified.GET("/ws", cfg.WsHandler)

  //Chat
  identified.POST("/chat", cfg.ChatHandler.Chat)
  identified.GET("/history/:conversationId", cfg.ChatHandler.History)

  //Conversations
  identified.GET("/conversations", cfg.ChatHandler.ListConversations)
  identified.POST("/conversations", cfg.ChatHandler.CreateConversation)
  identified.PATCH("/conversations/:id", cfg.ChatHandler.RenameConversation)
  identified.DELETE("/conversations/:id", cfg.ChatHandler.DeleteConversation)

  return router
}

// OriginChecker accepts websocket upgrades from the CORS origins, plus requests that
// carry no Origin header at all (non-browser clients).
func OriginChecker(allowed []string) func(r *http.Request) bool {
  set := make(map[string]struct{}, len(allowed))
  for _, o := range allowed {
    set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
  }
  return func(r *http.Request) bool {
    origin := r.Header.Get("Origin")
    if origin == "" {
      return true
    }
    if _, ok := set["*"]; ok {
      return true
    }
    u, err := url.Parse(origin)
    if err != nil || u.Host == "" {
      return false
    }
    _, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
    return ok
  }
}

func containsWildcard(origins []string) bool {
  for _, o := range origins {
    if o == "*" {
      return true
    }
  }
  return false
}
