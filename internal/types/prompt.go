package types

// PromptMessage is one entry of the ordered message list sent to the model provider.
type PromptMessage struct {
  Role        Role        `json:"role"`
  Content     string      `json:"content"`
}

func PromptFromMessages(msgs []*ChatMessage) []PromptMessage {
  out := make([]PromptMessage, 0, len(msgs))
  for _, m := range msgs {
    out = append(out, PromptMessage{Role: m.Role, Content: m.Content})
  }
  return out
}
