package utils

import (
  "errors"
  "io/fs"
  "os"
  "strconv"
  "strings"
  "time"

  "github.com/joho/godotenv"

  "github.com/slotter-org/chat-backend/internal/logger"
)

// LoadDotEnv loads key=value pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadDotEnv(path string, log *logger.Logger) error {
  if path == "" {
    path = ".env"
  }
  if err := godotenv.Load(path); err != nil {
    if errors.Is(err, fs.ErrNotExist) {
      if log != nil {
        log.Debug("No env file found, relying on process environment", "path", path)
      }
      return nil
    }
    return err
  }
  if log != nil {
    log.Info("Loaded env file", "path", path)
  }
  return nil
}

func GetEnv(key, defaultVal string, log *logger.Logger) string {
  if log != nil {
    log = log.With("env_var", key)
    log.Debug("Attempting to load environment variable (string)...")
  }
  val, ok := os.LookupEnv(key)
  if !ok {
    if log != nil {
      log.Debug("Environment variable not found, using default value", "defaultValue", defaultVal)
    }
    return defaultVal
  }
  if log != nil {
    log.Debug("Environment variable found (string), using environment variable value", "value", val)
  }
  return val
}

// GetSecretEnv behaves like GetEnv but never logs the value.
func GetSecretEnv(key, defaultVal string, log *logger.Logger) string {
  val, ok := os.LookupEnv(key)
  if !ok {
    if log != nil {
      log.Debug("Secret environment variable not found, using default", "env_var", key)
    }
    return defaultVal
  }
  if log != nil {
    log.Debug("Secret environment variable found", "env_var", key, "length", len(val))
  }
  return val
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
  if log != nil {
    log = log.With("env_var", key)
    log.Debug("Attempting to load environment variable (int)...")
  }
  valStr, ok := os.LookupEnv(key)
  if !ok {
    if log != nil {
      log.Debug("Environment variable not found, using default int", "defaultVal", defaultVal)
    }
    return defaultVal
  }
  i, err := strconv.Atoi(strings.TrimSpace(valStr))
  if err != nil {
    if log != nil {
      log.Debug("Environment variable could not be parsed as int, using default", "providedVal", valStr, "defaultVal", defaultVal, "error", err)
    }
    return defaultVal
  }
  if log != nil {
    log.Debug("Environment variable found (int), using environment variable value", "value", i)
  }
  return i
}

// GetEnvAsMillis reads an integer number of milliseconds and returns it as a Duration.
// Non-positive values fall back to the default.
func GetEnvAsMillis(key string, defaultVal time.Duration, log *logger.Logger) time.Duration {
  ms := GetEnvAsInt(key, int(defaultVal/time.Millisecond), log)
  if ms <= 0 {
    return defaultVal
  }
  return time.Duration(ms) * time.Millisecond
}

// GetEnvAsList splits a comma separated variable, dropping empty entries.
func GetEnvAsList(key string, defaultVal []string, log *logger.Logger) []string {
  raw := GetEnv(key, "", log)
  if raw == "" {
    return defaultVal
  }
  var out []string
  for _, part := range strings.Split(raw, ",") {
    if p := strings.TrimSpace(part); p != "" {
      out = append(out, p)
    }
  }
  if len(out) == 0 {
    return defaultVal
  }
  return out
}
