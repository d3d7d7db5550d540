package services

import (
  "context"
  "encoding/json"
  "net/http"
  "net/http/httptest"
  "strings"
  "testing"
  "time"

  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/types"
)

func newTestGateway(t *testing.T, url string) AIGateway {
  t.Helper()
  return NewAIGateway(AIGatewayConfig{
    APIURL:     url,
    APIKey:     "test-key",
    Model:      "test/model",
    Timeout:    2 * time.Second,
    AppURL:     "http://localhost:3000",
    AppTitle:   DefaultAppTitle,
    Window:     HistoryWindow{MaxMessages: 20, Counter: NewEstimateCounter()},
  }, logger.NewNop())
}

func replyWith(status int, body string) http.HandlerFunc {
  return func(w http.ResponseWriter, r *http.Request) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _, _ = w.Write([]byte(body))
  }
}

func gatewayError(t *testing.T, err error) *errordata.Error {
  t.Helper()
  if err == nil {
    t.Fatal("expected an error")
  }
  e, ok := errordata.As(err)
  if !ok {
    t.Fatalf("expected *errordata.Error, got %T: %v", err, err)
  }
  if e.Fallback == "" {
    t.Fatalf("expected a fallback text for %s", e.Kind)
  }
  return e
}

func TestGenerateReplySuccess(t *testing.T) {
  var got completionRequest
  var headers http.Header
  srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
      t.Errorf("expected POST, got %s", r.Method)
    }
    headers = r.Header.Clone()
    if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
      t.Errorf("decode request: %v", err)
    }
    replyWith(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  Hi there!  "}}]}`)(w, r)
  }))
  defer srv.Close()

  history := []types.PromptMessage{
    {Role: types.RoleUser, Content: "Hello"},
    {Role: types.RoleAssistant, Content: "Hi, how can I help?"},
  }
  reply, err := newTestGateway(t, srv.URL).GenerateReply(context.Background(), "What is Go?", history)
  if err != nil {
    t.Fatalf("GenerateReply failed: %v", err)
  }
  if reply != "Hi there!" {
    t.Fatalf("expected trimmed reply, got %q", reply)
  }

  if headers.Get("Authorization") != "Bearer test-key" {
    t.Errorf("unexpected Authorization header %q", headers.Get("Authorization"))
  }
  if !strings.HasPrefix(headers.Get("Content-Type"), "application/json") {
    t.Errorf("unexpected Content-Type %q", headers.Get("Content-Type"))
  }
  if headers.Get("HTTP-Referer") != "http://localhost:3000" || headers.Get("X-Title") != DefaultAppTitle {
    t.Errorf("missing attribution headers: %v", headers)
  }

  if got.Model != "test/model" || got.Temperature != DefaultAITemperature || got.MaxTokens != 500 {
    t.Errorf("unexpected generation parameters: %+v", got)
  }
  if len(got.Messages) != 4 {
    t.Fatalf("expected system + 2 history + user, got %d messages", len(got.Messages))
  }
  if got.Messages[0].Role != types.RoleSystem || got.Messages[0].Content != SystemPrompt {
    t.Errorf("first message should be the system prompt, got %+v", got.Messages[0])
  }
  if got.Messages[1] != history[0] || got.Messages[2] != history[1] {
    t.Errorf("history not forwarded in order: %+v", got.Messages[1:3])
  }
  if got.Messages[3].Role != types.RoleUser || got.Messages[3].Content != "What is Go?" {
    t.Errorf("last message should be the new user turn, got %+v", got.Messages[3])
  }
}

func TestGenerateReplyAuthenticationFailure(t *testing.T) {
  srv := httptest.NewServer(replyWith(http.StatusUnauthorized, `{"error":{"message":"No auth credentials found"}}`))
  defer srv.Close()

  _, err := newTestGateway(t, srv.URL).GenerateReply(context.Background(), "hi", nil)
  e := gatewayError(t, err)
  if e.Kind != errordata.KindAuthentication || e.StatusCode != http.StatusUnauthorized {
    t.Fatalf("expected authentication failure with 401, got %s %d", e.Kind, e.StatusCode)
  }
  if e.Fallback != FallbackAuthentication {
    t.Fatalf("unexpected fallback %q", e.Fallback)
  }
}

func TestGenerateReplyProviderError(t *testing.T) {
  srv := httptest.NewServer(replyWith(http.StatusInternalServerError, `upstream exploded`))
  defer srv.Close()

  _, err := newTestGateway(t, srv.URL).GenerateReply(context.Background(), "hi", nil)
  e := gatewayError(t, err)
  if e.Kind != errordata.KindProvider || e.StatusCode != http.StatusInternalServerError || e.Body != "upstream exploded" {
    t.Fatalf("unexpected provider error: %+v", e)
  }
  if !strings.HasPrefix(e.Fallback, FallbackUnavailable) || !strings.Contains(e.Fallback, "Error details: ") {
    t.Fatalf("unexpected fallback %q", e.Fallback)
  }
  if !errordata.IsGatewayFailure(err) {
    t.Fatal("provider error should count as a gateway failure")
  }
}

func TestGenerateReplyFallbackDetailIsBounded(t *testing.T) {
  srv := httptest.NewServer(replyWith(http.StatusBadGateway, strings.Repeat("x", 1000)))
  defer srv.Close()

  _, err := newTestGateway(t, srv.URL).GenerateReply(context.Background(), "hi", nil)
  e := gatewayError(t, err)
  detail := e.Fallback[strings.Index(e.Fallback, "Error details: ")+len("Error details: "):]
  if len([]rune(detail)) != fallbackDetailLimit {
    t.Fatalf("expected %d characters of detail, got %d", fallbackDetailLimit, len([]rune(detail)))
  }
}

func TestGenerateReplyMalformed(t *testing.T) {
  bodies := map[string]string{
    "not_json":       `<html>oops</html>`,
    "no_choices":     `{"choices":[]}`,
    "no_content":     `{"choices":[{"message":{}}]}`,
    "blank_content":  `{"choices":[{"message":{"content":"   "}}]}`,
  }
  for name, body := range bodies {
    t.Run(name, func(t *testing.T) {
      srv := httptest.NewServer(replyWith(http.StatusOK, body))
      defer srv.Close()

      _, err := newTestGateway(t, srv.URL).GenerateReply(context.Background(), "hi", nil)
      e := gatewayError(t, err)
      if e.Kind != errordata.KindMalformed || e.Fallback != FallbackMalformed {
        t.Fatalf("expected malformed response, got %s %q", e.Kind, e.Fallback)
      }
    })
  }
}

func TestGenerateReplyTimeout(t *testing.T) {
  srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    select {
    case <-r.Context().Done():
    case <-time.After(2 * time.Second):
    }
  }))
  defer srv.Close()

  gw := NewAIGateway(AIGatewayConfig{
    APIURL:   srv.URL,
    APIKey:   "test-key",
    Timeout:  50 * time.Millisecond,
  }, logger.NewNop())
  started := time.Now()
  _, err := gw.GenerateReply(context.Background(), "hi", nil)
  e := gatewayError(t, err)
  if e.Kind != errordata.KindTransport {
    t.Fatalf("expected transport failure, got %s", e.Kind)
  }
  if !strings.HasPrefix(e.Fallback, FallbackTimeout) {
    t.Fatalf("expected timeout fallback, got %q", e.Fallback)
  }
  if elapsed := time.Since(started); elapsed > time.Second {
    t.Fatalf("timeout not honoured, took %s", elapsed)
  }
}

func TestGenerateReplyUnreachable(t *testing.T) {
  srv := httptest.NewServer(replyWith(http.StatusOK, `{}`))
  url := srv.URL
  srv.Close()

  _, err := newTestGateway(t, url).GenerateReply(context.Background(), "hi", nil)
  e := gatewayError(t, err)
  if e.Kind != errordata.KindTransport || !strings.HasPrefix(e.Fallback, FallbackUnavailable) {
    t.Fatalf("expected transport failure, got %s %q", e.Kind, e.Fallback)
  }
}

func TestGenerateReplyAppliesHistoryWindow(t *testing.T) {
  var got completionRequest
  srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    _ = json.NewDecoder(r.Body).Decode(&got)
    replyWith(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)(w, r)
  }))
  defer srv.Close()

  gw := NewAIGateway(AIGatewayConfig{
    APIURL: srv.URL,
    APIKey: "test-key",
    Window: HistoryWindow{MaxMessages: 4},
  }, logger.NewNop())
  if _, err := gw.GenerateReply(context.Background(), "next", turns(30)); err != nil {
    t.Fatalf("GenerateReply failed: %v", err)
  }
  if len(got.Messages) != 6 {
    t.Fatalf("expected system + 4 history + user, got %d", len(got.Messages))
  }
}

func TestIsConfigured(t *testing.T) {
  cases := map[string]bool{
    "":                 false,
    "   ":              false,
    PlaceholderAPIKey:  false,
    "sk-or-v1-real":    true,
  }
  for key, want := range cases {
    gw := NewAIGateway(AIGatewayConfig{APIKey: key}, logger.NewNop())
    if got := gw.IsConfigured(); got != want {
      t.Errorf("IsConfigured(%q) = %v, want %v", key, got, want)
    }
  }
}

func TestTemperatureFromPercent(t *testing.T) {
  if TemperatureFromPercent(-1) != nil {
    t.Error("negative percent should leave the temperature unset")
  }
  if got := TemperatureFromPercent(0); got == nil || *got != 0 {
    t.Errorf("0%% should be temperature 0, got %v", got)
  }
  if got := TemperatureFromPercent(70); got == nil || *got != 0.7 {
    t.Errorf("70%% should be temperature 0.7, got %v", got)
  }
}

func TestGenerateReplySendsZeroTemperature(t *testing.T) {
  var got map[string]any
  srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
    _ = json.NewDecoder(r.Body).Decode(&got)
    replyWith(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)(w, r)
  }))
  defer srv.Close()

  gw := NewAIGateway(AIGatewayConfig{
    APIURL:       srv.URL,
    APIKey:       "test-key",
    Temperature:  TemperatureFromPercent(0),
    Window:       HistoryWindow{MaxMessages: 20, Counter: NewEstimateCounter()},
  }, logger.NewNop())
  if _, err := gw.GenerateReply(context.Background(), "hi", nil); err != nil {
    t.Fatalf("GenerateReply failed: %v", err)
  }
  temp, ok := got["temperature"].(float64)
  if !ok || temp != 0 {
    t.Fatalf("expected temperature 0 in request, got %v", got["temperature"])
  }
}

func TestGenerateReplyDoesNotWaitForTokenEncoding(t *testing.T) {
  srv := httptest.NewServer(replyWith(http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`))
  defer srv.Close()

  release := make(chan struct{})
  defer close(release)
  counter := newTiktokenCounter("test/model", logger.NewNop(), blockingLoader(release))

  gw := NewAIGateway(AIGatewayConfig{
    APIURL:   srv.URL,
    APIKey:   "test-key",
    Timeout:  300 * time.Millisecond,
    Window:   HistoryWindow{MaxMessages: 20, MaxTokens: 3000, Counter: counter},
  }, logger.NewNop())

  done := make(chan error, 1)
  go func() {
    _, err := gw.GenerateReply(context.Background(), "hi", turns(6))
    done <- err
  }()
  select {
  case err := <-done:
    if err != nil {
      t.Fatalf("GenerateReply failed: %v", err)
    }
  case <-time.After(2 * time.Second):
    t.Fatal("GenerateReply blocked on the token encoding download")
  }
}
