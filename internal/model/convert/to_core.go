package convert

import (
	"encoding/json"
	"sort"

	"github.com/weaponcharts/weaponcharts/internal/model"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// StatRunToCore converts a GORM StatRun (with preloaded children) back to a
// core.StatRun. Weapons and breakpoints are ordered by Position and Tier.
func StatRunToCore(run model.StatRun) core.StatRun {
	var attachments []string
	if len(run.Attachments) > 0 {
		_ = json.Unmarshal(run.Attachments, &attachments)
	}

	weapons := append([]model.WeaponStat(nil), run.WeaponStats...)
	sort.SliceStable(weapons, func(i, j int) bool { return weapons[i].Position < weapons[j].Position })

	out := core.StatRun{
		ID:          run.ID,
		Game:        run.Game,
		Category:    run.Category,
		Attachments: attachments,
		CreatedAt:   run.CreatedAt,
		Weapons:     make([]core.WeaponStats, 0, len(weapons)),
	}
	for _, ws := range weapons {
		out.Weapons = append(out.Weapons, WeaponStatToCore(ws))
	}
	return out
}

// WeaponStatToCore converts a GORM WeaponStat to a core.WeaponStats.
func WeaponStatToCore(ws model.WeaponStat) core.WeaponStats {
	bps := append([]model.Breakpoint(nil), ws.Breakpoints...)
	sort.SliceStable(bps, func(i, j int) bool { return bps[i].Tier < bps[j].Tier })

	out := core.WeaponStats{
		WeaponID:    ws.WeaponID,
		Name:        ws.Name,
		Class:       ws.Class,
		Breakpoints: make([]core.Breakpoint, 0, len(bps)),
	}
	for _, bp := range bps {
		out.Breakpoints = append(out.Breakpoints, BreakpointToCore(bp))
	}
	return out
}

// BreakpointToCore converts a GORM Breakpoint to a core.Breakpoint.
func BreakpointToCore(bp model.Breakpoint) core.Breakpoint {
	return core.Breakpoint{
		Index:      bp.Slot,
		Damage:     bp.Damage,
		HitsToKill: bp.HitsToKill,
		Range: core.RangeUnits{
			Units:       bp.RangeUnits,
			Inches:      bp.Inches,
			Feet:        bp.Feet,
			Yards:       bp.Yards,
			Centimeters: bp.Centimeters,
			Meters:      bp.Meters,
		},
	}
}
