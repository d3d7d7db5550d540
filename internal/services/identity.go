package services

import (
  "context"
  "fmt"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/types"
  "github.com/slotter-org/chat-backend/internal/utils"
)

const (
  DefaultGuestUsername  = "guest"
  DefaultGuestEmail     = "guest@example.com"
  DefaultGuestPassword  = "guest123"
)

type GuestConfig struct {
  Username    string
  Email       string
  Password    string
}

func LoadGuestConfig(log *logger.Logger) GuestConfig {
  return GuestConfig{
    Username: utils.GetEnv("GUEST_USERNAME", DefaultGuestUsername, log),
    Email:    utils.GetEnv("GUEST_EMAIL", DefaultGuestEmail, log),
    Password: utils.GetSecretEnv("GUEST_PASSWORD", DefaultGuestPassword, log),
  }
}

// IdentityResolver supplies the acting user when the caller presents no identity.
type IdentityResolver interface {
  ResolveOrCreateGuest(ctx context.Context) (*types.User, error)
}

type identityResolver struct {
  log           *logger.Logger
  userService   UserService
  cfg           GuestConfig
}

func NewIdentityResolver(log *logger.Logger, userService UserService, cfg GuestConfig) IdentityResolver {
  if cfg.Username == "" {
    cfg.Username = DefaultGuestUsername
  }
  if cfg.Email == "" {
    cfg.Email = DefaultGuestEmail
  }
  if cfg.Password == "" {
    cfg.Password = DefaultGuestPassword
  }
  return &identityResolver{
    log:          log.With("service", "IdentityResolver"),
    userService:  userService,
    cfg:          cfg,
  }
}

// ResolveOrCreateGuest is safe under concurrent first use: when registration loses the
// race to another request, the winner's row is re-read and returned.
func (ir *identityResolver) ResolveOrCreateGuest(ctx context.Context) (*types.User, error) {
  guest, err := ir.userService.GetByUsername(ctx, ir.cfg.Username)
  if err != nil {
    return nil, err
  }
  if guest != nil {
    return guest, nil
  }

  created, regErr := ir.userService.Register(ctx, ir.cfg.Username, ir.cfg.Email, ir.cfg.Password)
  if regErr == nil {
    ir.log.Info("Created guest account", "userID", created.ID)
    return created, nil
  }

  guest, err = ir.userService.GetByUsername(ctx, ir.cfg.Username)
  if err != nil {
    return nil, err
  }
  if guest != nil {
    ir.log.Debug("Guest account created concurrently, using existing row", "userID", guest.ID)
    return guest, nil
  }
  ir.log.Error("Failed to resolve guest account", "error", regErr)
  return nil, fmt.Errorf("failed to resolve guest account: %w", regErr)
}
