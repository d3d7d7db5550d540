// Package dbtest opens throwaway in-memory SQLite databases with the full schema migrated.
package dbtest

import (
  "fmt"
  "strings"
  "sync/atomic"
  "testing"

  "gorm.io/driver/sqlite"
  "gorm.io/gorm"

  "github.com/slotter-org/chat-backend/internal/db"
  "github.com/slotter-org/chat-backend/internal/logger"
)

var seq atomic.Int64

func New(t testing.TB) *gorm.DB {
  t.Helper()
  name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
  dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
  svc, err := db.Open(sqlite.Open(dsn), db.DriverSQLite, logger.NewNop())
  if err != nil {
    t.Fatalf("open sqlite: %v", err)
  }
  if err := svc.AutoMigrateAll(); err != nil {
    t.Fatalf("migrate: %v", err)
  }
  t.Cleanup(func() {
    if sqlDB, err := svc.DB().DB(); err == nil {
      _ = sqlDB.Close()
    }
  })
  return svc.DB()
}
