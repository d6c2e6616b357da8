package database

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/internal/model"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// Manager handles database connections and operations.
type Manager struct {
	DB      *gorm.DB
	SqlDB   *sql.DB
	IsValid bool
	Logger  zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid: false,
		Logger:  log,
	}
}

// ConnectPostgres opens and pings the configured Postgres database.
func (m *Manager) ConnectPostgres(cfg config.DBConfig) error {
	db, err := GetPostgresDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	m.Logger.Debug().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connecting to Postgres DB")
	return m.use(db, 10)
}

// ConnectSqlite opens a SQLite database at path, or an in-memory one for
// MemoryPath or an empty path.
func (m *Manager) ConnectSqlite(path string) error {
	db, err := GetSqliteDB(path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == "" || path == MemoryPath {
		m.Logger.Info().Msg("Using in-memory SQLite DB")
	} else {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite DB")
	}
	// one connection keeps an in-memory database alive and serializes writers
	return m.use(db, 1)
}

func (m *Manager) use(db *gorm.DB, maxOpen int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)

	m.DB = db
	m.SqlDB = sqlDB
	m.IsValid = true
	m.Logger.Info().Str("dialect", db.Dialector.Name()).Msg("Connected to database")
	return nil
}

// Setup migrates tables and writes the schema version if missing.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return fmt.Errorf("db not connected")
	}

	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var count int64
	if err := m.DB.Model(&model.SchemaInfo{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to read schema info: %w", err)
	}
	if count == 0 {
		err := m.DB.Create(&model.SchemaInfo{
			Version:     model.SchemaVersion,
			Application: "weaponcharts",
		}).Error
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to create schema_infos entry: %w", err)
		}
	}

	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	m.IsValid = false
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

// DumpMemoryToDisk vacuums the SQLite database to a file.
func (m *Manager) DumpMemoryToDisk(path string) error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, path); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Str("path", path).Msg("Dumped memory DB to disk")
	return nil
}

// GetPostgresDB returns a connection to the Postgres database.
func GetPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite database.
// If path is empty, uses an in-memory database.
func GetSqliteDB(path string) (*gorm.DB, error) {
	if path == "" {
		path = MemoryPath
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		CreateBatchSize: 500,
		Logger:          logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// DumpMemoryDBToDisk vacuums the database to a disk file, replacing any
// existing file.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	err := db.Exec("VACUUM INTO '" + strings.ReplaceAll(sqliteFilePath, "'", "''") + "';").Error
	if err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	return nil
}
