// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/weaponcharts/weaponcharts/internal/model"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// attachmentsToJSON converts a []string to datatypes.JSON for DB storage.
func attachmentsToJSON(ids []string) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(ids)
	return datatypes.JSON(data)
}

// StatRunToGorm converts a core.StatRun with all its weapons and breakpoints
// to GORM rows ready for a single Create.
func StatRunToGorm(run core.StatRun) model.StatRun {
	out := model.StatRun{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt,
		Game:        run.Game,
		Category:    run.Category,
		Attachments: attachmentsToJSON(run.Attachments),
		WeaponStats: make([]model.WeaponStat, 0, len(run.Weapons)),
	}
	for i, ws := range run.Weapons {
		out.WeaponStats = append(out.WeaponStats, WeaponStatsToGorm(ws, i))
	}
	return out
}

// WeaponStatsToGorm converts one weapon's breakpoints. position keeps the
// render order within the run.
func WeaponStatsToGorm(ws core.WeaponStats, position int) model.WeaponStat {
	out := model.WeaponStat{
		Position:    position,
		WeaponID:    ws.WeaponID,
		Name:        ws.Name,
		Class:       ws.Class,
		Breakpoints: make([]model.Breakpoint, 0, len(ws.Breakpoints)),
	}
	for tier, bp := range ws.Breakpoints {
		out.Breakpoints = append(out.Breakpoints, BreakpointToGorm(bp, tier))
	}
	return out
}

// BreakpointToGorm converts a core.Breakpoint to a GORM Breakpoint.
func BreakpointToGorm(bp core.Breakpoint, tier int) model.Breakpoint {
	return model.Breakpoint{
		Tier:        tier,
		Slot:        bp.Index,
		Damage:      bp.Damage,
		HitsToKill:  bp.HitsToKill,
		RangeUnits:  bp.Range.Units,
		Inches:      bp.Range.Inches,
		Feet:        bp.Range.Feet,
		Yards:       bp.Range.Yards,
		Centimeters: bp.Range.Centimeters,
		Meters:      bp.Range.Meters,
	}
}
