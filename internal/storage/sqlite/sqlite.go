// Package sqlitestorage implements the storage.Backend interface using SQLite.
// An in-memory database can be dumped to disk on Close via VACUUM INTO.
package sqlitestorage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/internal/database"
	gormstorage "github.com/weaponcharts/weaponcharts/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	cfg     config.SQLiteConfig
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, log zerolog.Logger) *Backend {
	manager := database.NewManager(log.With().Str("component", "sqlite").Logger())
	return &Backend{
		Backend: gormstorage.New(manager, func(m *database.Manager) error {
			return m.ConnectSqlite(cfg.Path)
		}),
		manager: manager,
		cfg:     cfg,
	}
}

// Close dumps an in-memory database to DumpPath, if set, and closes it.
func (b *Backend) Close() error {
	if b.cfg.DumpPath != "" && b.manager.IsValid {
		if err := b.manager.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
			b.Backend.Close()
			return fmt.Errorf("failed to dump database: %w", err)
		}
	}
	return b.Backend.Close()
}
