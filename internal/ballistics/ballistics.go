// Package ballistics derives shots-to-kill breakpoints from raw weapon tables.
//
// Every function here is pure: the weapon record, the attachment table and the
// equipped attachment set are passed in explicitly and never mutated.
package ballistics

import (
	"errors"
	"fmt"
	"math"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// ErrMissingData is returned when a requested breakpoint slot has no value.
var ErrMissingData = errors.New("missing data")

// Infinite marks a breakpoint whose damage can never kill.
const Infinite = math.MaxInt

// MinRangeStep is the smallest range gap, in native units, between two kept breakpoints.
const MinRangeStep = 2.0

// DefaultOrder visits the six-slot table nearest to farthest. Slot 2 is a
// redundant midpoint and is skipped.
var DefaultOrder = []int{0, 1, 3, 4, 5}

// Suppressor modifier rows in the attachment table, one per weapon class.
const (
	SuppressedARStandard       = "suppressed_ar_standard"
	SuppressedAR               = "suppressed_ar"
	SuppressedSMG              = "suppressed_smg"
	SuppressedShotgunPrecision = "suppressed_shotgun_precision"
	SuppressedShotgun          = "suppressed_shotgun"
)

// SuppressorModifierID returns the attachment row that scales a weapon class
// when a suppressor is equipped. ClassOther has no row.
func SuppressorModifierID(class core.WeaponClass) (string, bool) {
	switch class {
	case core.ClassAssaultRifleStandard:
		return SuppressedARStandard, true
	case core.ClassAssaultRifle:
		return SuppressedAR, true
	case core.ClassSMG:
		return SuppressedSMG, true
	case core.ClassShotgunPrecision:
		return SuppressedShotgunPrecision, true
	case core.ClassShotgun:
		return SuppressedShotgun, true
	default:
		return "", false
	}
}

func checkIndex(w *core.WeaponRecord, i int) error {
	if w == nil {
		return fmt.Errorf("%w: nil weapon", ErrMissingData)
	}
	if i < 0 || i >= core.NumBreakpoints {
		return fmt.Errorf("%w: %s breakpoint %d out of range", ErrMissingData, w.ID, i)
	}
	return nil
}

// ComputeDamage returns the per-hit damage at breakpoint i: base damage plus
// any multishot bonus for that slot.
func ComputeDamage(w *core.WeaponRecord, i int) (float64, error) {
	if err := checkIndex(w, i); err != nil {
		return 0, err
	}
	base := w.Damage[i]
	if base == nil {
		return 0, fmt.Errorf("%w: %s has no damage at breakpoint %d", ErrMissingData, w.ID, i)
	}
	damage := *base
	if bonus := w.BonusDamage[i]; bonus != nil {
		damage += *bonus
	}
	return damage, nil
}

// ComputeRangeScale returns the range multiplier for breakpoint i given the
// equipped attachments. It is 1 unless a suppressor is equipped and the
// weapon class has a modifier row.
func ComputeRangeScale(w *core.WeaponRecord, mods core.AttachmentTable, active core.AttachmentSet, i int) float64 {
	if w == nil || !active.HasSuppressor() {
		return 1
	}
	id, ok := SuppressorModifierID(w.Class)
	if !ok {
		return 1
	}
	mod, ok := mods[id]
	if !ok {
		return 1
	}
	if w.Class == core.ClassShotgunPrecision {
		return mod.DamageRangeScale.At(i)
	}
	return mod.DamageRangeScale.Scalar()
}

// HitsToKill returns the hits needed to deplete core.HealthPool, or Infinite
// when damage is not a positive finite number or is too small for the hit
// count to fit in an int.
func HitsToKill(damage float64) int {
	if !(damage > 0) || math.IsInf(damage, 1) {
		return Infinite
	}
	hits := math.Ceil(core.HealthPool / damage)
	if hits >= math.MaxInt {
		return Infinite
	}
	return int(hits)
}

// ComputeStatsAtBreakpoint evaluates a single breakpoint. A breakpoint with
// Infinite hits is returned without error; callers drop it.
func ComputeStatsAtBreakpoint(w *core.WeaponRecord, mods core.AttachmentTable, active core.AttachmentSet, i int) (core.Breakpoint, error) {
	damage, err := ComputeDamage(w, i)
	if err != nil {
		return core.Breakpoint{}, err
	}

	hits := HitsToKill(damage)
	bp := core.Breakpoint{Index: i, Damage: damage, HitsToKill: hits}
	if hits == Infinite {
		return bp, nil
	}

	base := w.Range[i]
	if base == nil {
		return core.Breakpoint{}, fmt.Errorf("%w: %s has no range at breakpoint %d", ErrMissingData, w.ID, i)
	}
	bp.Range = core.NewRangeUnits(*base * ComputeRangeScale(w, mods, active, i))
	return bp, nil
}

// ComputeWeaponStats walks the breakpoints in order and folds them into a
// sequence of distinct lethality tiers. A nil order means DefaultOrder.
func ComputeWeaponStats(w *core.WeaponRecord, mods core.AttachmentTable, active core.AttachmentSet, order []int) ([]core.Breakpoint, error) {
	if order == nil {
		order = DefaultOrder
	}
	out := make([]core.Breakpoint, 0, len(order))
	for _, i := range order {
		bp, err := ComputeStatsAtBreakpoint(w, mods, active, i)
		if err != nil {
			return nil, err
		}
		out = Merge(out, bp)
	}
	return out, nil
}

// Stats wraps ComputeWeaponStats into a core.WeaponStats value.
func Stats(w *core.WeaponRecord, mods core.AttachmentTable, active core.AttachmentSet, order []int) (core.WeaponStats, error) {
	bps, err := ComputeWeaponStats(w, mods, active, order)
	if err != nil {
		return core.WeaponStats{}, err
	}
	return core.WeaponStats{
		WeaponID:    w.ID,
		Name:        w.Name,
		Class:       w.Class.String(),
		Breakpoints: bps,
	}, nil
}

// ComputeAll runs the calculator for every weapon. Weapons with missing data
// are passed to onSkip (if set) and left out of the result.
func ComputeAll(weapons []*core.WeaponRecord, mods core.AttachmentTable, active core.AttachmentSet, order []int, onSkip func(*core.WeaponRecord, error)) []core.WeaponStats {
	out := make([]core.WeaponStats, 0, len(weapons))
	for _, w := range weapons {
		stats, err := Stats(w, mods, active, order)
		if err != nil {
			if onSkip != nil {
				onSkip(w, err)
			}
			continue
		}
		out = append(out, stats)
	}
	return out
}
