package services

import (
  "github.com/slotter-org/chat-backend/internal/types"
)

// HistoryWindow bounds how much of a conversation is forwarded to the model.
// Zero limits disable the corresponding check.
type HistoryWindow struct {
  MaxMessages   int
  MaxTokens     int
  Counter       TokenCounter
}

// Apply keeps the newest messages that fit both limits and then drops leading assistant
// turns so the forwarded history opens on a user message. The input is not modified.
func (w HistoryWindow) Apply(history []types.PromptMessage) []types.PromptMessage {
  start := 0
  if w.MaxMessages > 0 && len(history) > w.MaxMessages {
    start = len(history) - w.MaxMessages
  }

  if w.MaxTokens > 0 {
    counter := w.Counter
    if counter == nil {
      counter = NewEstimateCounter()
    }
    used := 0
    i := len(history) - 1
    for ; i >= start; i-- {
      cost := counter.Count(history[i].Content)
      if used+cost > w.MaxTokens {
        break
      }
      used += cost
    }
    start = i + 1
  }

  for start < len(history) && history[start].Role == types.RoleAssistant {
    start++
  }

  out := make([]types.PromptMessage, len(history)-start)
  copy(out, history[start:])
  return out
}
