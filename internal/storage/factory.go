// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/internal/storage/memory"
	"github.com/weaponcharts/weaponcharts/internal/storage/postgres"
	sqlitestorage "github.com/weaponcharts/weaponcharts/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, db config.DBConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(db, log), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, log), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
