package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&SchemaInfo{},
	&StatRun{},
	&WeaponStat{},
	&Breakpoint{},
}

// SchemaVersion is written to SchemaInfo on first setup.
const SchemaVersion = 1

////////////////////////
// SYSTEM MODELS
////////////////////////

// SchemaInfo records which schema version created the database.
type SchemaInfo struct {
	gorm.Model
	Version     int    `json:"version"`
	Application string `json:"application" gorm:"size:64"`
}

func (*SchemaInfo) TableName() string {
	return "schema_infos"
}

////////////////////////
// RUN MODELS
////////////////////////

// StatRun is one compute pass over a weapon selection.
type StatRun struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"index:idx_statrun_created_at"`
	Game        string         `json:"game" gorm:"size:64;index:idx_statrun_game"`
	Category    string         `json:"category" gorm:"size:127"`
	Attachments datatypes.JSON `json:"attachments"`
	WeaponStats []WeaponStat   `json:"weaponStats" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:StatRunID"`
}

func (*StatRun) TableName() string {
	return "stat_runs"
}

// WeaponStat is the breakpoint sequence of one weapon within a run.
type WeaponStat struct {
	ID          uint         `json:"id" gorm:"primarykey;autoIncrement"`
	StatRunID   string       `json:"statRunId" gorm:"size:36;index:idx_weaponstat_run_id"`
	Position    int          `json:"position"`
	WeaponID    string       `json:"weaponId" gorm:"size:127;index:idx_weaponstat_weapon_id"`
	Name        string       `json:"name" gorm:"size:127"`
	Class       string       `json:"class" gorm:"size:32"`
	Breakpoints []Breakpoint `json:"breakpoints" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignKey:WeaponStatID"`
}

func (*WeaponStat) TableName() string {
	return "weapon_stats"
}

// Breakpoint is one lethality tier of a weapon.
type Breakpoint struct {
	ID           uint    `json:"id" gorm:"primarykey;autoIncrement"`
	WeaponStatID uint    `json:"weaponStatId" gorm:"index:idx_breakpoint_weaponstat_id"`
	Tier         int     `json:"tier"`
	Slot         int     `json:"slot"`
	Damage       float64 `json:"damage"`
	HitsToKill   int     `json:"hitsToKill"`
	RangeUnits   float64 `json:"rangeUnits"`
	Inches       float64 `json:"inches"`
	Feet         float64 `json:"feet"`
	Yards        float64 `json:"yards"`
	Centimeters  float64 `json:"centimeters"`
	Meters       float64 `json:"meters"`
}

func (*Breakpoint) TableName() string {
	return "breakpoints"
}
