package utils

import (
  "strings"
  "unicode/utf8"
)

// NormalizeInput trims surrounding whitespace.
func NormalizeInput(s string) string {
  return strings.TrimSpace(s)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
  return strings.ToLower(strings.TrimSpace(s))
}

// RuneLen counts characters rather than bytes.
func RuneLen(s string) int {
  return utf8.RuneCountInString(s)
}

// TruncateRunes cuts s to at most max characters without splitting a multi-byte rune.
func TruncateRunes(s string, max int) string {
  if max <= 0 {
    return ""
  }
  if utf8.RuneCountInString(s) <= max {
    return s
  }
  runes := []rune(s)
  return string(runes[:max])
}

// TruncateWithEllipsis keeps the first max characters and appends "..." when s was longer.
func TruncateWithEllipsis(s string, max int) string {
  if utf8.RuneCountInString(s) <= max {
    return s
  }
  return TruncateRunes(s, max) + "..."
}
