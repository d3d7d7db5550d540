package utils

import (
  "fmt"

  "golang.org/x/crypto/bcrypt"
)

func HashPassword(plain string) (string, error) {
  hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
  if err != nil {
    return "", fmt.Errorf("failed to hash password: %w", err)
  }
  return string(hashed), nil
}
