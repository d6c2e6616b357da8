package ballistics

import "github.com/weaponcharts/weaponcharts/pkg/core"

// Merge folds bp into the kept sequence and returns the new sequence.
//
//   - unreachable breakpoints are dropped
//   - equal hits-to-kill collapses into the entry with the larger range
//   - a range less than MinRangeStep past the previous entry is dropped
func Merge(kept []core.Breakpoint, bp core.Breakpoint) []core.Breakpoint {
	if bp.HitsToKill == Infinite {
		return kept
	}
	if len(kept) == 0 {
		return append(kept, bp)
	}

	last := len(kept) - 1
	prev := kept[last]
	if bp.HitsToKill == prev.HitsToKill {
		if bp.Range.Units < prev.Range.Units {
			return kept
		}
		kept[last] = bp
		return kept
	}
	if bp.Range.Units-prev.Range.Units < MinRangeStep {
		return kept
	}
	return append(kept, bp)
}
