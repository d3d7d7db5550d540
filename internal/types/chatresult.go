package types

const (
  ChatStatusSuccess   = "success"
  ChatStatusError     = "error"
)

// ChatResult is the envelope returned by ChatService.ProcessMessage and serialized
// as the POST /api/chat response body.
type ChatResult struct {
  Response          string      `json:"response"`
  ConversationID    string      `json:"conversationId"`
  Status            string      `json:"status"`
  Error             string      `json:"error,omitempty"`
}

func (r ChatResult) Succeeded() bool {
  return r.Status == ChatStatusSuccess
}
