package db_test

import (
  "testing"

  "github.com/slotter-org/chat-backend/internal/db"
  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/types"

  "gorm.io/driver/sqlite"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
  svc, err := db.Open(sqlite.Open("file:db_migrate_test?mode=memory&cache=shared"), db.DriverSQLite, logger.NewNop())
  if err != nil {
    t.Fatalf("Open: %v", err)
  }
  t.Cleanup(func() {
    if sqlDB, err := svc.DB().DB(); err == nil {
      _ = sqlDB.Close()
    }
  })

  for i := 0; i < 2; i++ {
    if err := svc.AutoMigrateAll(); err != nil {
      t.Fatalf("AutoMigrateAll run %d: %v", i+1, err)
    }
  }
  m := svc.DB().Migrator()
  for _, model := range []interface{}{&types.User{}, &types.Conversation{}, &types.ChatMessage{}} {
    if !m.HasTable(model) {
      t.Errorf("missing table for %T", model)
    }
  }
  if !m.HasIndex(&types.ChatMessage{}, "idx_chat_message_conversation_seq") {
    t.Error("missing (conversation_id, seq) index")
  }
  if svc.Driver() != db.DriverSQLite {
    t.Errorf("unexpected driver %q", svc.Driver())
  }
  if err := svc.Ping(); err != nil {
    t.Fatalf("Ping: %v", err)
  }
}

func TestOpenSQLiteUsesSingleConnection(t *testing.T) {
  svc, err := db.Open(sqlite.Open("file:db_single_conn_test?mode=memory&cache=shared"), db.DriverSQLite, logger.NewNop())
  if err != nil {
    t.Fatalf("Open: %v", err)
  }
  sqlDB, err := svc.DB().DB()
  if err != nil {
    t.Fatal(err)
  }
  defer sqlDB.Close()
  if n := sqlDB.Stats().MaxOpenConnections; n != 1 {
    t.Fatalf("expected sqlite pool capped at 1 connection, got %d", n)
  }
}

func TestNewDatabaseServiceRejectsUnknownDriver(t *testing.T) {
  t.Setenv("DB_DRIVER", "oracle")
  if _, err := db.NewDatabaseService(logger.NewNop()); err == nil {
    t.Fatal("expected an error for an unsupported driver")
  }
}

func TestNewDatabaseServiceMySQLNeedsDSN(t *testing.T) {
  t.Setenv("DB_DRIVER", "mysql")
  t.Setenv("MYSQL_DSN", "")
  if _, err := db.NewDatabaseService(logger.NewNop()); err == nil {
    t.Fatal("expected an error without MYSQL_DSN")
  }
}
