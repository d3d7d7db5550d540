package db

import (
  "fmt"
  "strings"

  "gorm.io/driver/mysql"
  "gorm.io/driver/postgres"
  "gorm.io/driver/sqlite"
  "gorm.io/gorm"
  "gorm.io/gorm/clause"
  gormlogger "gorm.io/gorm/logger"

  "github.com/slotter-org/chat-backend/internal/logger"
  "github.com/slotter-org/chat-backend/internal/types"
  "github.com/slotter-org/chat-backend/internal/utils"
)

const (
  DriverPostgres  = "postgres"
  DriverMySQL     = "mysql"
  DriverSQLite    = "sqlite"
)

type DatabaseService struct {
  db      *gorm.DB
  driver  string
  log     *logger.Logger
}

// NewDatabaseService picks a dialector from DB_DRIVER and connects.
func NewDatabaseService(log *logger.Logger) (*DatabaseService, error) {
  driver := strings.ToLower(utils.GetEnv("DB_DRIVER", DriverPostgres, log))

  var dialector gorm.Dialector
  switch driver {
  case DriverPostgres:
    //1) Get and Set Environment Variables
    log.Info("Attempting to load environment variables for Postgres now...")
    postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
    postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
    postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
    postgresPassword := utils.GetSecretEnv("POSTGRES_PASSWORD", "", log)
    postgresName := utils.GetEnv("POSTGRES_NAME", "chat", log)
    postgresSSLMode := utils.GetEnv("POSTGRES_SSLMODE", "disable", log)

    //2) Construct DSN From Environment Variables
    dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName, postgresSSLMode)
    dialector = postgres.Open(dsn)
  case DriverMySQL:
    dsn := utils.GetSecretEnv("MYSQL_DSN", "", log)
    if dsn == "" {
      return nil, fmt.Errorf("DB_DRIVER=mysql requires MYSQL_DSN")
    }
    if !strings.Contains(dsn, "parseTime=") {
      sep := "?"
      if strings.Contains(dsn, "?") {
        sep = "&"
      }
      dsn += sep + "parseTime=true"
    }
    dialector = mysql.Open(dsn)
  case DriverSQLite:
    dialector = sqlite.Open(utils.GetEnv("SQLITE_PATH", "chat.db", log))
  default:
    return nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres, mysql or sqlite)", driver)
  }
  return Open(dialector, driver, log)
}

// Open connects through an explicit dialector. Tests use it with an in-memory SQLite DSN.
func Open(dialector gorm.Dialector, driver string, log *logger.Logger) (*DatabaseService, error) {
  serviceLog := log.With("service", "DatabaseService", "driver", driver)

  serviceLog.Info("Attempting to connect to DB now...")
  db, err := gorm.Open(dialector, &gorm.Config{
    DisableForeignKeyConstraintWhenMigrating: true,
    TranslateError: true,
    Logger: gormlogger.Default.LogMode(gormlogger.Silent),
  })
  if err != nil {
    serviceLog.Error("Failed to connect to DB", "error", err)
    return nil, fmt.Errorf("failed to connect to %s DB: %w", driver, err)
  }
  if driver == DriverSQLite {
    // SQLite allows one writer; a single connection keeps transactions from tripping over each other.
    sqlDB, err := db.DB()
    if err != nil {
      return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
    }
    sqlDB.SetMaxOpenConns(1)
    serviceLog.Warn("sqlite runs on one connection; a chat turn holds it for the whole AI call, so requests queue behind it. Use postgres or mysql for concurrent users")
  }
  serviceLog.Info("Successfully Connected to DB :)")
  return &DatabaseService{db: db, driver: driver, log: serviceLog}, nil
}

type foreignKey struct {
  name        string
  table       string
  column      string
  refTable    string
  refColumn   string
}

var foreignKeys = []foreignKey{
  {name: "fk_conversation_user_id", table: "conversation", column: "user_id", refTable: "user", refColumn: "id"},
  {name: "fk_chat_message_conversation_id", table: "chat_message", column: "conversation_id", refTable: "conversation", refColumn: "id"},
}

func (s *DatabaseService) AutoMigrateAll() error {
  s.log.Info("Starting AutoMigrateAll for all GORM models now...")
  err := s.db.AutoMigrate(
    &types.User{},
    &types.Conversation{},
    &types.ChatMessage{},
  )
  if err != nil {
    s.log.Error("AutoMigrateAll failed for Base Tables :(", "error", err)
    return err
  }
  s.log.Info("AutoMigrateAll completed successfully for Base Tables :)")

  if s.driver == DriverSQLite {
    s.log.Debug("Skipping ALTER TABLE foreign keys on sqlite; cascades run in the repos")
    return nil
  }
  s.log.Info("Configuring Foreign Key Relationships for Base Tables now...")
  for _, fk := range foreignKeys {
    if err := s.ensureForeignKey(fk); err != nil {
      return err
    }
  }
  s.log.Info("Successfully Added Foreign Key Relationships to Base Tables :)")
  return nil
}

func (s *DatabaseService) ensureForeignKey(fk foreignKey) error {
  var count int64
  if err := s.db.Raw(
    `SELECT COUNT(*) FROM information_schema.table_constraints WHERE constraint_name = ? AND constraint_type = 'FOREIGN KEY'`,
    fk.name,
  ).Scan(&count).Error; err != nil {
    return fmt.Errorf("failed to look up %s: %w", fk.name, err)
  }
  if count > 0 {
    s.log.Debug("Foreign key already present", "constraint", fk.name)
    return nil
  }
  if err := s.db.Exec(
    `ALTER TABLE ? ADD CONSTRAINT ? FOREIGN KEY (?) REFERENCES ? (?) ON DELETE CASCADE`,
    clause.Table{Name: fk.table},
    clause.Column{Name: fk.name},
    clause.Column{Name: fk.column},
    clause.Table{Name: fk.refTable},
    clause.Column{Name: fk.refColumn},
  ).Error; err != nil {
    return fmt.Errorf("failed to add %s: %w", fk.name, err)
  }
  s.log.Info("Added foreign key", "constraint", fk.name)
  return nil
}

func (s *DatabaseService) DB() *gorm.DB {
  return s.db
}

func (s *DatabaseService) Driver() string {
  return s.driver
}

// Ping backs the /api/health probe.
func (s *DatabaseService) Ping() error {
  sqlDB, err := s.db.DB()
  if err != nil {
    return err
  }
  return sqlDB.Ping()
}
