package logger

import (
  "fmt"
  "strings"

  "go.uber.org/zap"
  "go.uber.org/zap/zapcore"
)

// Logger wraps a zap SugaredLogger so call sites can log with loose key/value pairs.
type Logger struct {
  sugar       *zap.SugaredLogger
}

// New builds a logger for the given mode. "production" emits JSON at info level,
// anything else is treated as "development" (console, debug level, colored levels).
func New(mode string) (*Logger, error) {
  var cfg zap.Config
  switch strings.ToLower(strings.TrimSpace(mode)) {
  case "production", "prod":
    cfg = zap.NewProductionConfig()
    cfg.EncoderConfig.TimeKey = "ts"
    cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
  default:
    cfg = zap.NewDevelopmentConfig()
    cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
  }
  base, err := cfg.Build(zap.AddCallerSkip(1))
  if err != nil {
    return nil, fmt.Errorf("failed to build zap logger: %w", err)
  }
  return &Logger{sugar: base.Sugar()}, nil
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
  return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) With(kv ...interface{}) *Logger {
  return &Logger{sugar: l.sugar.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...interface{}) {
  l.sugar.Debugw(msg, kv...)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
  l.sugar.Infow(msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
  l.sugar.Warnw(msg, kv...)
}

func (l *Logger) Error(msg string, kv ...interface{}) {
  l.sugar.Errorw(msg, kv...)
}

func (l *Logger) Sync() error {
  return l.sugar.Sync()
}
