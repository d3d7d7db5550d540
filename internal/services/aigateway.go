package services

import (
  "bytes"
  "context"
  "encoding/json"
  "errors"
  "fmt"
  "io"
  "net"
  "net/http"
  "strings"
  "time"

  "github.com/slotter-org/chat-backend/internal/errordata"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/types"
  "github.com/slotter-org/chat-backend/internal/utils"
)

const (
  DefaultAIAPIURL         = "https://openrouter.ai/api/v1/chat/completions"
  DefaultAIModel          = "openai/gpt-3.5-turbo"
  PlaceholderAPIKey       = "your-api-key-here"
  DefaultAITimeout        = 30 * time.Second
  DefaultAITemperature    = 0.7
  DefaultAIMaxTokens      = 500
  DefaultAppTitle         = "AI Chat Assistant"

  SystemPrompt = "You are a helpful, friendly, and knowledgeable AI assistant. Answer questions clearly and concisely."

  fallbackDetailLimit = 200
)

// Fallback texts recorded as the assistant turn when the provider call fails.
const (
  FallbackAuthentication  = "API Key Error: the AI provider rejected the configured API key as invalid or expired. " +
    "Get a new key from your provider, set it as AI_API_KEY and restart the backend."
  FallbackUnavailable     = "I apologize, but I'm having trouble connecting to the AI service. " +
    "Please check your API key and try again later."
  FallbackTimeout         = "I apologize, but the AI service did not respond in time. Please try again in a moment."
  FallbackMalformed       = "Sorry, I received an unexpected response format."
)

// AIGateway turns a conversation turn into one request against an OpenAI-compatible
// chat completions endpoint. Every failure comes back as *errordata.Error with a
// gateway Kind and a Fallback text; transport errors are never returned raw.
type AIGateway interface {
  GenerateReply(ctx context.Context, newMessage string, history []types.PromptMessage) (string, error)
  IsConfigured() bool
  Model() string
}

type AIGatewayConfig struct {
  APIURL        string
  APIKey        string
  Model         string
  Timeout       time.Duration
  // Temperature is nil when unset; zero is a valid setting.
  Temperature   *float64
  MaxTokens     int
  AppURL        string
  AppTitle      string
  Window        HistoryWindow
}

// LoadAIGatewayConfig reads the AI_* variables.
func LoadAIGatewayConfig(log *logger.Logger) AIGatewayConfig {
  model := utils.GetEnv("AI_MODEL_NAME", DefaultAIModel, log)
  return AIGatewayConfig{
    APIURL:       utils.GetEnv("AI_API_URL", DefaultAIAPIURL, log),
    APIKey:       utils.GetSecretEnv("AI_API_KEY", PlaceholderAPIKey, log),
    Model:        model,
    Timeout:      utils.GetEnvAsMillis("AI_API_TIMEOUT_MS", DefaultAITimeout, log),
    Temperature:  TemperatureFromPercent(utils.GetEnvAsInt("AI_TEMPERATURE_PERCENT", 70, log)),
    MaxTokens:    utils.GetEnvAsInt("AI_MAX_TOKENS", DefaultAIMaxTokens, log),
    AppURL:       utils.GetEnv("APP_URL", "", log),
    AppTitle:     utils.GetEnv("APP_TITLE", DefaultAppTitle, log),
    Window: HistoryWindow{
      MaxMessages:  utils.GetEnvAsInt("AI_HISTORY_MAX_MESSAGES", 20, log),
      MaxTokens:    utils.GetEnvAsInt("AI_HISTORY_MAX_TOKENS", 3000, log),
      Counter:      NewTiktokenCounter(model, log),
    },
  }
}

// TemperatureFromPercent converts AI_TEMPERATURE_PERCENT; a negative value leaves the
// temperature unset.
func TemperatureFromPercent(percent int) *float64 {
  if percent < 0 {
    return nil
  }
  t := float64(percent) / 100
  return &t
}

type aiGateway struct {
  log       *logger.Logger
  client    *http.Client
  cfg       AIGatewayConfig
}

func NewAIGateway(cfg AIGatewayConfig, log *logger.Logger) AIGateway {
  serviceLog := log.With("service", "AIGateway")
  if cfg.APIURL == "" {
    cfg.APIURL = DefaultAIAPIURL
  }
  if cfg.Model == "" {
    cfg.Model = DefaultAIModel
  }
  if cfg.Timeout <= 0 {
    cfg.Timeout = DefaultAITimeout
  }
  if cfg.Temperature == nil {
    t := DefaultAITemperature
    cfg.Temperature = &t
  }
  if cfg.MaxTokens <= 0 {
    cfg.MaxTokens = DefaultAIMaxTokens
  }
  gw := &aiGateway{
    log:  serviceLog,
    client: &http.Client{
      Timeout: cfg.Timeout,
    },
    cfg:  cfg,
  }
  if !gw.IsConfigured() {
    serviceLog.Warn("AI_API_KEY not set; replies will carry the authentication fallback")
  }
  return gw
}

type completionRequest struct {
  Model         string                  `json:"model"`
  Messages      []types.PromptMessage   `json:"messages"`
  Temperature   float64                 `json:"temperature"`
  MaxTokens     int                     `json:"max_tokens"`
}

type completionResponse struct {
  Choices []struct {
    Message struct {
      Content *string `json:"content"`
    } `json:"message"`
  } `json:"choices"`
}

func (g *aiGateway) IsConfigured() bool {
  key := strings.TrimSpace(g.cfg.APIKey)
  return key != "" && key != PlaceholderAPIKey
}

func (g *aiGateway) Model() string {
  return g.cfg.Model
}

func (g *aiGateway) buildMessages(newMessage string, history []types.PromptMessage) []types.PromptMessage {
  windowed := g.cfg.Window.Apply(history)
  messages := make([]types.PromptMessage, 0, len(windowed)+2)
  messages = append(messages, types.PromptMessage{Role: types.RoleSystem, Content: SystemPrompt})
  messages = append(messages, windowed...)
  messages = append(messages, types.PromptMessage{Role: types.RoleUser, Content: newMessage})
  return messages
}

func (g *aiGateway) GenerateReply(ctx context.Context, newMessage string, history []types.PromptMessage) (string, error) {
  messages := g.buildMessages(newMessage, history)
  payload, err := json.Marshal(completionRequest{
    Model:        g.cfg.Model,
    Messages:     messages,
    Temperature:  *g.cfg.Temperature,
    MaxTokens:    g.cfg.MaxTokens,
  })
  if err != nil {
    return "", transportFailure(fmt.Errorf("failed to encode completion request: %w", err))
  }

  ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
  defer cancel()

  req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, bytes.NewReader(payload))
  if err != nil {
    g.log.Warn("failed to build new request", "error", err)
    return "", transportFailure(err)
  }
  req.Header.Set("Content-Type", "application/json")
  req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
  if g.cfg.AppURL != "" {
    req.Header.Set("HTTP-Referer", g.cfg.AppURL)
  }
  if g.cfg.AppTitle != "" {
    req.Header.Set("X-Title", g.cfg.AppTitle)
  }

  g.log.Debug("Calling AI provider", "model", g.cfg.Model, "messages", len(messages), "historyForwarded", len(messages)-2, "historyTotal", len(history))
  started := time.Now()
  resp, err := g.client.Do(req)
  if err != nil {
    g.log.Warn("failed to call AI provider", "error", err, "elapsed", time.Since(started))
    return "", transportFailure(err)
  }
  defer resp.Body.Close()

  body, err := io.ReadAll(resp.Body)
  if err != nil {
    g.log.Warn("failed to read AI provider response body", "error", err)
    return "", transportFailure(err)
  }

  if resp.StatusCode < 200 || resp.StatusCode > 299 {
    g.log.Warn("AI provider responded with non-2xx", "statusCode", resp.StatusCode, "body", string(body))
    if resp.StatusCode == http.StatusUnauthorized {
      return "", &errordata.Error{
        Kind:       errordata.KindAuthentication,
        Message:    "AI provider rejected the API key",
        StatusCode: resp.StatusCode,
        Body:       string(body),
        Fallback:   FallbackAuthentication,
      }
    }
    detail := fmt.Sprintf("AI provider HTTP %d: %s", resp.StatusCode, string(body))
    return "", &errordata.Error{
      Kind:       errordata.KindProvider,
      Message:    fmt.Sprintf("AI provider returned HTTP %d", resp.StatusCode),
      StatusCode: resp.StatusCode,
      Body:       string(body),
      Fallback:   withDetails(FallbackUnavailable, detail),
    }
  }

  content, err := parseCompletion(body)
  if err != nil {
    g.log.Warn("Unexpected AI provider response format", "error", err, "body", string(body))
    return "", &errordata.Error{
      Kind:       errordata.KindMalformed,
      Message:    "AI provider reply did not match the expected shape",
      StatusCode: resp.StatusCode,
      Body:       string(body),
      Fallback:   FallbackMalformed,
      Err:        err,
    }
  }
  g.log.Info("AI provider call success", "elapsed", time.Since(started), "replyLength", utils.RuneLen(content))
  return content, nil
}

func parseCompletion(body []byte) (string, error) {
  var out completionResponse
  if err := json.Unmarshal(body, &out); err != nil {
    return "", err
  }
  if len(out.Choices) == 0 {
    return "", errors.New("no choices in completion")
  }
  c := out.Choices[0].Message.Content
  if c == nil {
    return "", errors.New("choices[0].message.content missing")
  }
  content := strings.TrimSpace(*c)
  if content == "" {
    return "", errors.New("choices[0].message.content empty")
  }
  return content, nil
}

func transportFailure(err error) *errordata.Error {
  e := &errordata.Error{
    Kind:     errordata.KindTransport,
    Message:  "AI provider could not be reached",
    Err:      err,
  }
  if isTimeout(err) {
    e.Message = "AI provider request timed out"
    e.Fallback = withDetails(FallbackTimeout, err.Error())
    return e
  }
  e.Fallback = withDetails(FallbackUnavailable, err.Error())
  return e
}

func isTimeout(err error) bool {
  if errors.Is(err, context.DeadlineExceeded) {
    return true
  }
  var ne net.Error
  return errors.As(err, &ne) && ne.Timeout()
}

func withDetails(text, detail string) string {
  return text + "\n\nError details: " + utils.TruncateRunes(detail, fallbackDetailLimit)
}
