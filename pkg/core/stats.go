// pkg/core/stats.go
package core

import (
	"errors"
	"math"
	"time"
)

// ErrRunNotFound is returned when a recorded run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Conversion factors from native game units. One unit is one inch.
const (
	InchesPerUnit      = 1.0
	FeetPerUnit        = 1.0 / 12
	YardsPerUnit       = 1.0 / 36
	CentimetersPerUnit = 2.54
	MetersPerUnit      = 0.0254
)

// RangeUnits is one distance expressed in every supported unit.
type RangeUnits struct {
	Units       float64 `json:"units"`
	Inches      float64 `json:"inches"`
	Feet        float64 `json:"feet"`
	Yards       float64 `json:"yards"`
	Centimeters float64 `json:"centimeters"`
	Meters      float64 `json:"meters"`
}

// NewRangeUnits expands a native-unit distance. Meters are floored.
func NewRangeUnits(units float64) RangeUnits {
	return RangeUnits{
		Units:       units,
		Inches:      units * InchesPerUnit,
		Feet:        units * FeetPerUnit,
		Yards:       units * YardsPerUnit,
		Centimeters: units * CentimetersPerUnit,
		Meters:      math.Floor(units * MetersPerUnit),
	}
}

// In returns the distance in the named unit. Unknown names fall back to native units.
func (r RangeUnits) In(unit string) float64 {
	switch unit {
	case "inches":
		return r.Inches
	case "feet":
		return r.Feet
	case "yards":
		return r.Yards
	case "centimeters":
		return r.Centimeters
	case "meters":
		return r.Meters
	default:
		return r.Units
	}
}

// Breakpoint is one lethality tier: the farthest range at which HitsToKill hits still kill.
type Breakpoint struct {
	Index      int        `json:"index"`
	Damage     float64    `json:"damage"`
	HitsToKill int        `json:"hitsToKill"`
	Range      RangeUnits `json:"range"`
}

// WeaponStats is the computed breakpoint sequence for one weapon.
type WeaponStats struct {
	WeaponID    string       `json:"weaponId"`
	Name        string       `json:"name"`
	Class       string       `json:"class"`
	Breakpoints []Breakpoint `json:"breakpoints"`
}

// StatRun is the output of one compute pass over a selection.
type StatRun struct {
	ID          string        `json:"id"`
	Game        string        `json:"game"`
	Category    string        `json:"category"`
	Attachments []string      `json:"attachments"`
	CreatedAt   time.Time     `json:"createdAt"`
	Weapons     []WeaponStats `json:"weapons"`
}
