package main

import (
  "context"
  "errors"
  "fmt"
  "net/http"
  "os"
  "os/signal"
  "syscall"
  "time"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/utils"
  "github.com/slotter-org/chat-backend/internal/db"
  "github.com/slotter-org/chat-backend/internal/seed"
  "github.com/slotter-org/chat-backend/internal/repos"
  "github.com/slotter-org/chat-backend/internal/services"
  "github.com/slotter-org/chat-backend/internal/socket"
  "github.com/slotter-org/chat-backend/internal/handlers"
  "github.com/slotter-org/chat-backend/internal/middleware"
  "github.com/slotter-org/chat-backend/internal/server"
)

func main() {
  // Env File
  if err := utils.LoadDotEnv(os.Getenv("ENV_FILE"), nil); err != nil {
    fmt.Printf("failed to load env file: %v\n", err)
    os.Exit(1)
  }

  // Logger Setup
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
  defer stop()

  // Environment Variables
  log.Info("Attempting to load environment variables for Main now...")
  port := utils.GetEnv("PORT", "8080", log)
  redisAddress := utils.GetEnv("REDIS_ADDRESS", "", log)
  redisPassword := utils.GetSecretEnv("REDIS_PASSWORD", "", log)
  redisChanName := utils.GetEnv("REDIS_CHANNEL", "chat_hub_broadcast", log)
  allowedOrigins := utils.GetEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}, log)
  log.Debug("Environment variables loaded for Main :)",
    "port", port,
    "redisAddress", redisAddress,
    "redisChannel", redisChanName,
    "allowedOrigins", allowedOrigins,
  )

  // Database Setup
  log.Info("Setting Up Database from Main now...")
  databaseService, err := db.NewDatabaseService(log)
  if err != nil {
    log.Error("DB init failed", "error", err)
    os.Exit(1)
  }
  if err = databaseService.AutoMigrateAll(); err != nil {
    log.Error("Database auto migration failed", "error", err)
    os.Exit(1)
  }
  theDB := databaseService.DB()
  log.Info("Database Setup From Main Successful :)", "driver", databaseService.Driver())

  // Repositories Setup
  log.Info("Setting Up Repositories from Main now...")
  userRepo := repos.NewUserRepo(theDB, log)
  conversationRepo := repos.NewConversationRepo(theDB, log)
  chatMessageRepo := repos.NewChatMessageRepo(theDB, log)
  log.Info("Repositories Set Up From Main Successful :)")

  // Websocket Setup
  log.Info("Setting Up Websocket Hub From Main Now :)")
  wsHub := socket.NewHub(log)
  log.Info("Websocket Hub Set Up From Main Successful :)", "nodeID", wsHub.NodeID())

  // Redis PubSub
  var redisPubSub *socket.RedisPubSub
  if redisAddress != "" {
    log.Info("Setting Up Redis PubSub From Main Now :)")
    redisPubSub, err = socket.NewRedisPubSub(log, redisAddress, redisPassword, redisChanName, wsHub.NodeID())
    if err != nil {
      log.Warn("Failed to init redis pubsub, events stay on this node", "error", err)
      redisPubSub = nil
    } else if err := redisPubSub.StartSubscriber(wsHub); err != nil {
      log.Warn("Failed to subscribe to Redis pub/sub", "error", err)
      redisPubSub.Stop()
      redisPubSub = nil
    } else {
      wsHub.SetRedisPubSub(redisPubSub)
      log.Info("Redis pubsub is active!")
    }
  }

  // Services Setup
  log.Info("Setting up Services from Main now...")
  userService := services.NewUserService(theDB, log, userRepo)
  identityResolver := services.NewIdentityResolver(log, userService, services.LoadGuestConfig(log))
  aiGateway := services.NewAIGateway(services.LoadAIGatewayConfig(log), log)
  notifier := socket.NewConversationNotifier(wsHub, log)
  chatService := services.NewChatService(theDB, log, conversationRepo, chatMessageRepo, aiGateway, notifier)
  log.Info("Services Set Up From Main Successful :)", "aiConfigured", aiGateway.IsConfigured(), "model", aiGateway.Model())

  // Seed Setup
  log.Info("Attempting to Seed The Database From Main now...")
  if err := seed.SeedAll(ctx, log, identityResolver); err != nil {
    log.Warn("Failed to seed data :(", "error", err)
  }

  // Handler Setup
  log.Info("Setting Up Handlers from Main now...")
  authHandler := handlers.NewAuthHandler(log, userService)
  chatHandler := handlers.NewChatHandler(log, chatService)
  healthHandler := handlers.NewHealthHandler(aiGateway, databaseService)
  wsHandler := handlers.NewWsHandler(wsHub, log, server.OriginChecker(allowedOrigins))
  log.Info("Handlers Set Up From Main Successful :)")

  // MiddleWare Setup
  log.Info("Setting Up Middleware from Main now...")
  identityMiddleware := middleware.NewIdentityMiddleware(log, identityResolver)
  log.Info("Middleware Set Up From Main Successful :)")

  // Router Setup
  log.Info("Setting Up Router from Main now...")
  router := server.NewRouter(server.RouterConfig{
    Log:                  log,
    AllowedOrigins:       allowedOrigins,
    AuthHandler:          authHandler,
    ChatHandler:          chatHandler,
    HealthHandler:        healthHandler,
    IdentityMiddleware:   identityMiddleware,
    WsHandler:            wsHandler,
  })
  log.Info("Router Set Up From Main Successful :)")

  srv := &http.Server{
    Addr:               ":" + port,
    Handler:            router,
    ReadHeaderTimeout:  10 * time.Second,
  }
  go func() {
    log.Info("Server listening", "port", port)
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
      log.Error("Server failed", "error", err)
      stop()
    }
  }()

  <-ctx.Done()
  log.Info("Shutting down...")
  shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
  defer cancel()
  if err := srv.Shutdown(shutdownCtx); err != nil {
    log.Warn("Server shutdown failed", "error", err)
  }

  // On Shutdown
  if redisPubSub != nil {
    redisPubSub.Stop()
  }
}
