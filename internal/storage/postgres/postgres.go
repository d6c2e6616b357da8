// Package postgres implements the storage.Backend interface on PostgreSQL.
package postgres

import (
	"github.com/rs/zerolog"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/internal/database"
	gormstorage "github.com/weaponcharts/weaponcharts/internal/storage/gorm"
)

// Backend records runs to Postgres through the GORM backend.
type Backend struct {
	*gormstorage.Backend
}

// New creates a backend that connects to cfg on Init.
func New(cfg config.DBConfig, log zerolog.Logger) *Backend {
	manager := database.NewManager(log.With().Str("component", "postgres").Logger())
	return &Backend{
		Backend: gormstorage.New(manager, func(m *database.Manager) error {
			return m.ConnectPostgres(cfg)
		}),
	}
}
