package services

import (
  "sync/atomic"

  "github.com/pkoukk/tiktoken-go"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/utils"
)

// TokenCounter measures how much of the model's context a piece of text occupies.
type TokenCounter interface {
  Count(text string) int
}

// EstimateTokens is the rough rule of thumb of four characters per token.
func EstimateTokens(text string) int {
  n := utils.RuneLen(text)
  if n == 0 {
    return 0
  }
  return (n + 3) / 4
}

type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
  return EstimateTokens(text)
}

// NewEstimateCounter returns a TokenCounter that never touches the network.
func NewEstimateCounter() TokenCounter {
  return estimateCounter{}
}

type encodingLoader func(model string) (*tiktoken.Tiktoken, error)

type tiktokenCounter struct {
  log         *logger.Logger
  enc         atomic.Pointer[tiktoken.Tiktoken]
  ready       chan struct{}
}

// NewTiktokenCounter counts with the BPE encoding of the configured model, falling back to
// cl100k_base for unknown models. The encoding is fetched in the background and Count
// estimates until it is in place, so a slow or unreachable download never holds up a turn.
func NewTiktokenCounter(model string, log *logger.Logger) TokenCounter {
  return newTiktokenCounter(model, log, loadEncoding)
}

func newTiktokenCounter(model string, log *logger.Logger, load encodingLoader) *tiktokenCounter {
  tc := &tiktokenCounter{
    log:    log.With("service", "TokenCounter"),
    ready:  make(chan struct{}),
  }
  go tc.load(model, load)
  return tc
}

func loadEncoding(model string) (*tiktoken.Tiktoken, error) {
  enc, err := tiktoken.EncodingForModel(model)
  if err == nil {
    return enc, nil
  }
  return tiktoken.GetEncoding("cl100k_base")
}

func (tc *tiktokenCounter) load(model string, load encodingLoader) {
  defer close(tc.ready)
  enc, err := load(model)
  if err != nil || enc == nil {
    tc.log.Warn("Failed to load tiktoken encoding, estimating tokens instead", "model", model, "error", err)
    return
  }
  tc.enc.Store(enc)
  tc.log.Debug("Loaded tiktoken encoding", "model", model)
}

func (tc *tiktokenCounter) Count(text string) int {
  enc := tc.enc.Load()
  if enc == nil {
    return EstimateTokens(text)
  }
  return len(enc.Encode(text, nil, nil))
}
