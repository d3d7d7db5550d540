package repos

import (
    "context"
    "time"

    "gorm.io/gorm"

    "github.com/slotter-org/chat-backend/internal/logger"
    "github.com/slotter-org/chat-backend/internal/types"
)

type UserRepo interface {
    // CREATE
    Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error)

    // READ
    GetByUsernames(ctx context.Context, tx *gorm.DB, usernames []string) ([]*types.User, error)
    UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error)
    EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
}

type userRepo struct {
    db      *gorm.DB
    log     *logger.Logger
    now     func() time.Time
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
    repoLog := baseLog.With("repo", "UserRepo")
    return &userRepo{db: db, log: repoLog, now: now}
}

// ----------------------------------------------------------------
// CREATE
// ----------------------------------------------------------------

func (ur *userRepo) Create(ctx context.Context, tx *gorm.DB, users []*types.User) ([]*types.User, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    if len(users) == 0 {
        ur.log.Debug("Users array is empty, returning empty slice")
        return []*types.User{}, nil
    }
    ts := ur.now()
    for _, u := range users {
        u.CreatedAt = ts
        u.UpdatedAt = ts
    }
    if err := transaction.WithContext(ctx).Create(&users).Error; err != nil {
        ur.log.Warn("Failed to create users", "error", err)
        return nil, err
    }
    ur.log.Info("Successfully created users", "count", len(users))
    return users, nil
}

// ----------------------------------------------------------------
// READ
// ----------------------------------------------------------------

func (ur *userRepo) GetByUsernames(ctx context.Context, tx *gorm.DB, usernames []string) ([]*types.User, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var results []*types.User
    if len(usernames) == 0 {
        return results, nil
    }
    if err := transaction.WithContext(ctx).
        Where("username IN ?", usernames).
        Find(&results).Error; err != nil {
        ur.log.Error("Failed to fetch users by usernames", "error", err)
        return nil, err
    }
    ur.log.Debug("Fetched users by usernames", "count", len(results))
    return results, nil
}

func (ur *userRepo) UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
    return ur.exists(ctx, tx, "username", username)
}

func (ur *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
    return ur.exists(ctx, tx, "email", email)
}

func (ur *userRepo) exists(ctx context.Context, tx *gorm.DB, column, value string) (bool, error) {
    transaction := tx
    if transaction == nil {
        transaction = ur.db
    }
    var count int64
    if err := transaction.WithContext(ctx).
        Model(&types.User{}).
        Where(column+" = ?", value).
        Count(&count).Error; err != nil {
        ur.log.Error("Failed to count users", "column", column, "error", err)
        return false, err
    }
    return count > 0, nil
}
