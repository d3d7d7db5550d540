package services

import (
  "context"
  "sync"
  "testing"

  "gorm.io/gorm"

  "github.com/slotter-org/chat-backend/internal/db/dbtest"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/repos"
  "github.com/slotter-org/chat-backend/internal/types"
)

type gatewayCall struct {
  message   string
  history   []types.PromptMessage
}

type fakeGateway struct {
  mu      sync.Mutex
  reply   string
  err     error
  calls   []gatewayCall
}

func (f *fakeGateway) GenerateReply(ctx context.Context, newMessage string, history []types.PromptMessage) (string, error) {
  f.mu.Lock()
  defer f.mu.Unlock()
  f.calls = append(f.calls, gatewayCall{message: newMessage, history: append([]types.PromptMessage(nil), history...)})
  if f.err != nil {
    return "", f.err
  }
  return f.reply, nil
}

func (f *fakeGateway) IsConfigured() bool { return true }
func (f *fakeGateway) Model() string      { return "test/model" }

type recordingNotifier struct {
  mu      sync.Mutex
  events  []types.ConversationEvent
}

func (n *recordingNotifier) ConversationChanged(ctx context.Context, userID uint, event types.ConversationEvent) {
  n.mu.Lock()
  defer n.mu.Unlock()
  n.events = append(n.events, event)
}

type chatFixture struct {
  db        *gorm.DB
  svc       ChatService
  gateway   *fakeGateway
  notifier  *recordingNotifier
  alice     *types.User
  bob       *types.User
}

func newChatFixture(t *testing.T) *chatFixture {
  t.Helper()
  gdb := dbtest.New(t)
  log := logger.NewNop()
  users, err := repos.NewUserRepo(gdb, log).Create(context.Background(), nil, []*types.User{
    {Username: "alice", Email: "alice@example.com", Password: "x"},
    {Username: "bob", Email: "bob@example.com", Password: "x"},
  })
  if err != nil {
    t.Fatalf("create users: %v", err)
  }
  gw := &fakeGateway{reply: "Hi! How can I help?"}
  n := &recordingNotifier{}
  svc := NewChatService(gdb, log, repos.NewConversationRepo(gdb, log), repos.NewChatMessageRepo(gdb, log), gw, n)
  return &chatFixture{db: gdb, svc: svc, gateway: gw, notifier: n, alice: users[0], bob: users[1]}
}

func (f *chatFixture) countMessages(t *testing.T) int64 {
  t.Helper()
  var n int64
  if err := f.db.Model(&types.ChatMessage{}).Count(&n).Error; err != nil {
    t.Fatalf("count messages: %v", err)
  }
  return n
}

func (f *chatFixture) countConversations(t *testing.T) int64 {
  t.Helper()
  var n int64
  if err := f.db.Model(&types.Conversation{}).Count(&n).Error; err != nil {
    t.Fatalf("count conversations: %v", err)
  }
  return n
}
