// Package gormstorage implements the storage.Backend interface on top of a
// GORM connection managed by database.Manager. The sqlite and postgres
// backends only differ in how they connect.
package gormstorage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/weaponcharts/weaponcharts/internal/database"
	"github.com/weaponcharts/weaponcharts/internal/model"
	"github.com/weaponcharts/weaponcharts/internal/model/convert"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// ConnectFunc opens the database on the manager.
type ConnectFunc func(m *database.Manager) error

// Backend implements storage.Backend with GORM.
type Backend struct {
	manager *database.Manager
	connect ConnectFunc
}

// New creates a new GORM storage backend. connect runs on Init.
func New(manager *database.Manager, connect ConnectFunc) *Backend {
	return &Backend{
		manager: manager,
		connect: connect,
	}
}

// Init connects and migrates the schema.
func (b *Backend) Init() error {
	if b.connect != nil {
		if err := b.connect(b.manager); err != nil {
			return err
		}
	}
	if err := b.manager.Setup(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}

// Close releases the connection.
func (b *Backend) Close() error {
	return b.manager.Close()
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.manager.DB
}

// RecordRun inserts the run with its weapons and breakpoints in one
// transaction. A run with the same id is replaced.
func (b *Backend) RecordRun(run *core.StatRun) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}
	if !b.manager.IsValid {
		return fmt.Errorf("db not valid, run %s not saved", run.ID)
	}

	row := convert.StatRunToGorm(*run)
	return b.manager.DB.Transaction(func(tx *gorm.DB) error {
		if err := deleteRun(tx, run.ID); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
		}
		return nil
	})
}

// LoadRun reads a run with all its children.
func (b *Backend) LoadRun(id string) (*core.StatRun, error) {
	if !b.manager.IsValid {
		return nil, fmt.Errorf("db not valid")
	}

	var row model.StatRun
	err := b.manager.DB.
		Preload("WeaponStats.Breakpoints").
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("run %s: %w", id, core.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	run := convert.StatRunToCore(row)
	return &run, nil
}

// RecentRuns returns up to limit runs, newest first, without their weapons.
func (b *Backend) RecentRuns(limit int) ([]core.StatRun, error) {
	if !b.manager.IsValid {
		return nil, fmt.Errorf("db not valid")
	}

	var rows []model.StatRun
	if err := b.manager.DB.Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]core.StatRun, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.StatRunToCore(r))
	}
	return out, nil
}

func deleteRun(tx *gorm.DB, id string) error {
	weaponIDs := tx.Model(&model.WeaponStat{}).Select("id").Where("stat_run_id = ?", id)
	if err := tx.Where("weapon_stat_id IN (?)", weaponIDs).Delete(&model.Breakpoint{}).Error; err != nil {
		return fmt.Errorf("failed to delete breakpoints of run %s: %w", id, err)
	}
	if err := tx.Where("stat_run_id = ?", id).Delete(&model.WeaponStat{}).Error; err != nil {
		return fmt.Errorf("failed to delete weapons of run %s: %w", id, err)
	}
	if err := tx.Where("id = ?", id).Delete(&model.StatRun{}).Error; err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return nil
}
