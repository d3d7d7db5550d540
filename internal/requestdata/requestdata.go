package requestdata

import (
  "context"
)

type key struct{}

var requestDataKey key

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
  return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
  val := ctx.Value(requestDataKey)
  if rd, ok := val.(*RequestData); ok {
    return rd
  }
  return nil
}

// RequestData is filled in by middleware: RequestID first, then the acting user.
type RequestData struct {
  RequestID       string
  UserID          uint
  Username        string
  Guest           bool
}
