package services

import (
  "context"
  "strings"
  "testing"

  "golang.org/x/crypto/bcrypt"

  "github.com/slotter-org/chat-backend/internal/db/dbtest"
  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/repos"
)

func newTestUserService(t *testing.T) UserService {
  t.Helper()
  gdb := dbtest.New(t)
  log := logger.NewNop()
  return NewUserService(gdb, log, repos.NewUserRepo(gdb, log))
}

func TestRegister(t *testing.T) {
  us := newTestUserService(t)
  ctx := context.Background()

  u, err := us.Register(ctx, "  carol ", " Carol@Example.com ", "secret1")
  if err != nil {
    t.Fatalf("Register failed: %v", err)
  }
  if u.ID == 0 || u.Username != "carol" || u.Email != "carol@example.com" {
    t.Fatalf("unexpected user %+v", u)
  }
  if u.Password == "secret1" || bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("secret1")) != nil {
    t.Fatal("password must be stored hashed")
  }
  if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
    t.Fatalf("timestamps should be set on create, got %s / %s", u.CreatedAt, u.UpdatedAt)
  }

  found, err := us.GetByUsername(ctx, "carol")
  if err != nil || found == nil || found.ID != u.ID {
    t.Fatalf("GetByUsername: %+v %v", found, err)
  }
  missing, err := us.GetByUsername(ctx, "nobody")
  if err != nil || missing != nil {
    t.Fatalf("expected nil for unknown user, got %+v %v", missing, err)
  }
}

func TestRegisterConflicts(t *testing.T) {
  us := newTestUserService(t)
  ctx := context.Background()
  if _, err := us.Register(ctx, "dave", "dave@example.com", "secret1"); err != nil {
    t.Fatal(err)
  }
  if _, err := us.Register(ctx, "dave", "other@example.com", "secret1"); !errordata.Is(err, errordata.KindConflict) {
    t.Fatalf("duplicate username: expected conflict, got %v", err)
  }
  if _, err := us.Register(ctx, "david", "DAVE@example.com", "secret1"); !errordata.Is(err, errordata.KindConflict) {
    t.Fatalf("duplicate email: expected conflict, got %v", err)
  }
}

func TestRegisterValidation(t *testing.T) {
  us := newTestUserService(t)
  cases := []struct {
    name, username, email, password string
  }{
    {"short_username", "ab", "ab@example.com", "secret1"},
    {"long_username", strings.Repeat("u", MaxUsernameLength+1), "long@example.com", "secret1"},
    {"bad_email", "erin", "not-an-email", "secret1"},
    {"short_password", "frank", "frank@example.com", "12345"},
  }
  for _, tc := range cases {
    t.Run(tc.name, func(t *testing.T) {
      if _, err := us.Register(context.Background(), tc.username, tc.email, tc.password); !errordata.Is(err, errordata.KindValidation) {
        t.Fatalf("expected validation error, got %v", err)
      }
    })
  }
}
