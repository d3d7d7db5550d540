package services

import (
  "context"
  "errors"
  "fmt"

  "github.com/go-playground/validator/v10"
  "gorm.io/gorm"

  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/repos"
  "github.com/slotter-org/chat-backend/internal/types"
  "github.com/slotter-org/chat-backend/internal/utils"
)

const (
  MinUsernameLength   = 3
  MaxUsernameLength   = 50
  MinPasswordLength   = 6
)

type UserService interface {
  Register(ctx context.Context, username, email, password string) (*types.User, error)
  GetByUsername(ctx context.Context, username string) (*types.User, error)
}

type userService struct {
  db          *gorm.DB
  log         *logger.Logger
  userRepo    repos.UserRepo
  validate    *validator.Validate
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
  return &userService{
    db:       db,
    log:      log.With("service", "UserService"),
    userRepo: userRepo,
    validate: validator.New(),
  }
}

// Register creates an account with a bcrypt-hashed password. A taken username or email
// is reported as a conflict, whether it is caught by the pre-check or by the unique index.
func (us *userService) Register(ctx context.Context, username, email, password string) (*types.User, error) {
  username = utils.NormalizeInput(username)
  email = utils.NormalizeEmail(email)

  if n := utils.RuneLen(username); n < MinUsernameLength || n > MaxUsernameLength {
    return nil, errordata.Validation(fmt.Sprintf("Username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength))
  }
  if err := us.validate.Var(email, "required,email,max=255"); err != nil {
    return nil, errordata.Validation("Email must be a valid email address")
  }
  if utils.RuneLen(password) < MinPasswordLength {
    return nil, errordata.Validation(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
  }

  hashed, err := utils.HashPassword(password)
  if err != nil {
    us.log.Error("Failed to hash password", "error", err)
    return nil, errordata.Persistence("failed to register user", err)
  }

  var created *types.User
  txErr := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    taken, err := us.userRepo.UsernameExists(ctx, tx, username)
    if err != nil {
      return err
    }
    if taken {
      return errordata.Conflict("Username already exists")
    }
    taken, err = us.userRepo.EmailExists(ctx, tx, email)
    if err != nil {
      return err
    }
    if taken {
      return errordata.Conflict("Email already exists")
    }
    users, err := us.userRepo.Create(ctx, tx, []*types.User{{
      Username: username,
      Email:    email,
      Password: hashed,
    }})
    if err != nil {
      if errors.Is(err, gorm.ErrDuplicatedKey) {
        return errordata.Conflict("Username or email already exists")
      }
      return err
    }
    created = users[0]
    return nil
  })
  if txErr != nil {
    if _, ok := errordata.As(txErr); ok {
      us.log.Info("Registration rejected", "username", username, "error", txErr)
      return nil, txErr
    }
    us.log.Error("Failed to register user", "username", username, "error", txErr)
    return nil, errordata.Persistence("failed to register user", txErr)
  }
  us.log.Info("Registered user", "userID", created.ID, "username", created.Username)
  return created, nil
}

// GetByUsername returns nil, nil when no such user exists.
func (us *userService) GetByUsername(ctx context.Context, username string) (*types.User, error) {
  users, err := us.userRepo.GetByUsernames(ctx, nil, []string{utils.NormalizeInput(username)})
  if err != nil {
    return nil, errordata.Persistence("failed to look up user", err)
  }
  if len(users) == 0 {
    return nil, nil
  }
  return users[0], nil
}
