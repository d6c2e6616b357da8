package ballistics

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

func newWeapon(id string, damage, ranges []float64) *core.WeaponRecord {
	return &core.WeaponRecord{
		ID:     id,
		Name:   id,
		Class:  core.ClassifyWeapon(id),
		Damage: core.Floats(damage...),
		Range:  core.Floats(ranges...),
	}
}

func testMods() core.AttachmentTable {
	return core.AttachmentTable{
		SuppressedARStandard: {ID: SuppressedARStandard, DamageRangeScale: core.RangeScale{Value: core.Float(0.9)}},
		SuppressedAR:         {ID: SuppressedAR, DamageRangeScale: core.RangeScale{Value: core.Float(0.85)}},
		SuppressedSMG:        {ID: SuppressedSMG, DamageRangeScale: core.RangeScale{Value: core.Float(0.8)}},
		SuppressedShotgunPrecision: {
			ID:               SuppressedShotgunPrecision,
			DamageRangeScale: core.RangeScale{PerBreakpoint: []float64{0.5, 0.6, 0.7, 0.8, 0.9, 1}},
		},
		SuppressedShotgun: {ID: SuppressedShotgun, DamageRangeScale: core.RangeScale{Value: core.Float(0.75)}},
	}
}

func hitsAndRanges(bps []core.Breakpoint) ([]int, []float64) {
	hits := make([]int, len(bps))
	ranges := make([]float64, len(bps))
	for i, bp := range bps {
		hits[i] = bp.HitsToKill
		ranges[i] = bp.Range.Units
	}
	return hits, ranges
}

func TestComputeDamage_AddsBonus(t *testing.T) {
	w := newWeapon("iw8_sh_dpapa12", []float64{20, 15}, []float64{10, 20})
	w.BonusDamage[1] = core.Float(5)

	d, err := ComputeDamage(w, 0)
	require.NoError(t, err)
	assert.Equal(t, 20.0, d)

	d, err = ComputeDamage(w, 1)
	require.NoError(t, err)
	assert.Equal(t, 20.0, d)
}

func TestComputeDamage_MissingData(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433", []float64{30}, []float64{10})

	_, err := ComputeDamage(w, 3)
	assert.True(t, errors.Is(err, ErrMissingData))

	_, err = ComputeDamage(w, 6)
	assert.ErrorIs(t, err, ErrMissingData)

	_, err = ComputeDamage(w, -1)
	assert.ErrorIs(t, err, ErrMissingData)

	_, err = ComputeDamage(nil, 0)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestHitsToKill(t *testing.T) {
	assert.Equal(t, 3, HitsToKill(34))
	assert.Equal(t, 4, HitsToKill(29))
	assert.Equal(t, 5, HitsToKill(20))
	assert.Equal(t, 1, HitsToKill(100))
	assert.Equal(t, 1, HitsToKill(250))
	assert.Equal(t, Infinite, HitsToKill(0))
	assert.Equal(t, Infinite, HitsToKill(-4))
	assert.Equal(t, Infinite, HitsToKill(math.NaN()))
	assert.Equal(t, Infinite, HitsToKill(math.Inf(1)))
	assert.Equal(t, Infinite, HitsToKill(1e-300))
	assert.Equal(t, Infinite, HitsToKill(math.SmallestNonzeroFloat64))
	assert.Equal(t, 100_000_000, HitsToKill(1e-6))
}

func TestComputeWeaponStats_TinyDamageIsDropped(t *testing.T) {
	w := newWeapon("iw8_sm_mpapa5", []float64{30, 30, 30, 25, 25, 1e-300}, []float64{400, 800, 900, 1000, 1200, 1600})

	bps, err := ComputeWeaponStats(w, nil, nil, DefaultOrder)
	require.NoError(t, err)
	hits, ranges := hitsAndRanges(bps)
	assert.Equal(t, []int{4}, hits)
	assert.Equal(t, []float64{1200}, ranges)
}

func TestComputeRangeScale_NoSuppressor(t *testing.T) {
	w := newWeapon("iw8_sm_mpapa5", []float64{30}, []float64{100})

	assert.Equal(t, 1.0, ComputeRangeScale(w, testMods(), core.NewAttachmentSet(), 0))
	assert.Equal(t, 1.0, ComputeRangeScale(w, testMods(), core.NewAttachmentSet("stock"), 0))
}

func TestComputeRangeScale_ClassPrecedence(t *testing.T) {
	active := core.NewAttachmentSet("suppressor")
	mods := testMods()

	tests := []struct {
		id    string
		index int
		want  float64
	}{
		{"iw8_ar_standard_mike4", 0, 0.9},
		{"iw8_ar_kilo433", 0, 0.85},
		{"iw8_sm_mpapa5", 0, 0.8},
		{"iw8_sh_precision_romeo870", 0, 0.5},
		{"iw8_sh_precision_romeo870", 3, 0.8},
		{"iw8_sh_dpapa12", 4, 0.75},
		{"iw8_sn_alpha50", 0, 1},
		{"iw8_lm_kilo121", 2, 1},
	}
	for _, tt := range tests {
		w := newWeapon(tt.id, []float64{30}, []float64{100})
		assert.InDelta(t, tt.want, ComputeRangeScale(w, mods, active, tt.index), 1e-9, tt.id)
	}
}

func TestComputeRangeScale_MissingModifierRow(t *testing.T) {
	w := newWeapon("iw8_sm_mpapa5", []float64{30}, []float64{100})
	assert.Equal(t, 1.0, ComputeRangeScale(w, core.AttachmentTable{}, core.NewAttachmentSet("suppressor"), 0))
	assert.Equal(t, 1.0, ComputeRangeScale(w, nil, core.NewAttachmentSet("suppressor"), 0))
}

func TestComputeStatsAtBreakpoint(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433", []float64{34, 29}, []float64{1000, 2000})

	bp, err := ComputeStatsAtBreakpoint(w, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, bp.Index)
	assert.Equal(t, 34.0, bp.Damage)
	assert.Equal(t, 3, bp.HitsToKill)
	assert.Equal(t, 1000.0, bp.Range.Units)
	assert.Equal(t, 25.0, bp.Range.Meters)
	assert.InDelta(t, 2540.0, bp.Range.Centimeters, 1e-9)
}

func TestComputeStatsAtBreakpoint_ZeroDamageIsNotAnError(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433", []float64{0}, nil)

	bp, err := ComputeStatsAtBreakpoint(w, nil, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, Infinite, bp.HitsToKill)
}

func TestComputeStatsAtBreakpoint_MissingRange(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433", []float64{30}, nil)

	_, err := ComputeStatsAtBreakpoint(w, nil, nil, 0)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestComputeWeaponStats_SkipsUnreachableBands(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433",
		[]float64{34, 29, 23, 0, 0, 20},
		[]float64{10, 20, 0, 0, 0, 60},
	)

	bps, err := ComputeWeaponStats(w, nil, nil, []int{0, 1, 3, 4, 5})
	require.NoError(t, err)

	hits, ranges := hitsAndRanges(bps)
	assert.Equal(t, []int{3, 4, 5}, hits)
	assert.Equal(t, []float64{10, 20, 60}, ranges)
	assert.Equal(t, []int{0, 1, 5}, []int{bps[0].Index, bps[1].Index, bps[2].Index})
}

func TestComputeWeaponStats_DefaultOrderSkipsMidpoint(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433",
		[]float64{34, 29, 23, 0, 0, 20},
		[]float64{10, 20, 0, 0, 0, 60},
	)

	withNil, err := ComputeWeaponStats(w, nil, nil, nil)
	require.NoError(t, err)
	withDefault, err := ComputeWeaponStats(w, nil, nil, DefaultOrder)
	require.NoError(t, err)
	assert.Equal(t, withDefault, withNil)

	for _, bp := range withNil {
		assert.NotEqual(t, 2, bp.Index)
	}
}

func TestComputeWeaponStats_EqualHitsCollapseToFartherRange(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433",
		[]float64{40, 35, 0, 25, 25, 20},
		[]float64{500, 900, 0, 1500, 2000, 3000},
	)

	bps, err := ComputeWeaponStats(w, nil, nil, nil)
	require.NoError(t, err)

	hits, ranges := hitsAndRanges(bps)
	assert.Equal(t, []int{3, 4, 5}, hits)
	assert.Equal(t, []float64{900, 2000, 3000}, ranges)
}

func TestComputeWeaponStats_RangeStep(t *testing.T) {
	t.Run("one unit apart is dropped", func(t *testing.T) {
		w := newWeapon("iw8_ar_kilo433", []float64{34, 29}, []float64{10, 11})
		bps, err := ComputeWeaponStats(w, nil, nil, []int{0, 1})
		require.NoError(t, err)
		hits, ranges := hitsAndRanges(bps)
		assert.Equal(t, []int{3}, hits)
		assert.Equal(t, []float64{10}, ranges)
	})

	t.Run("two units apart is kept", func(t *testing.T) {
		w := newWeapon("iw8_ar_kilo433", []float64{34, 29}, []float64{10, 12})
		bps, err := ComputeWeaponStats(w, nil, nil, []int{0, 1})
		require.NoError(t, err)
		hits, ranges := hitsAndRanges(bps)
		assert.Equal(t, []int{3, 4}, hits)
		assert.Equal(t, []float64{10, 12}, ranges)
	})
}

func TestComputeWeaponStats_NoValidBreakpoints(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433", []float64{0, 0, 0, 0, 0, 0}, []float64{0, 0, 0, 0, 0, 0})

	bps, err := ComputeWeaponStats(w, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, bps)
}

func TestComputeWeaponStats_MissingDataPropagates(t *testing.T) {
	w := newWeapon("iw8_ar_kilo433", []float64{34, 29}, []float64{10, 20})

	_, err := ComputeWeaponStats(w, nil, nil, nil)
	assert.ErrorIs(t, err, ErrMissingData)
}

func TestComputeWeaponStats_SuppressorScalesRangeOnly(t *testing.T) {
	w := newWeapon("iw8_sm_mpapa5",
		[]float64{34, 29, 0, 25, 0, 20},
		[]float64{100, 200, 0, 300, 0, 400},
	)
	mods := testMods()

	plain, err := ComputeWeaponStats(w, mods, core.NewAttachmentSet(), nil)
	require.NoError(t, err)
	suppressed, err := ComputeWeaponStats(w, mods, core.NewAttachmentSet("suppressor"), nil)
	require.NoError(t, err)

	require.Len(t, suppressed, len(plain))
	for i := range plain {
		assert.Equal(t, plain[i].Damage, suppressed[i].Damage)
		assert.Equal(t, plain[i].HitsToKill, suppressed[i].HitsToKill)
		assert.InDelta(t, plain[i].Range.Units*0.8, suppressed[i].Range.Units, 1e-9)
	}
}

func TestComputeWeaponStats_PrecisionShotgunUsesPerBreakpointScale(t *testing.T) {
	w := newWeapon("iw8_sh_precision_romeo870",
		[]float64{60, 45, 0, 30, 0, 20},
		[]float64{100, 200, 0, 300, 0, 400},
	)

	bps, err := ComputeWeaponStats(w, testMods(), core.NewAttachmentSet("suppressor"), nil)
	require.NoError(t, err)

	_, ranges := hitsAndRanges(bps)
	require.Len(t, ranges, 4)
	assert.InDelta(t, 50.0, ranges[0], 1e-9)
	assert.InDelta(t, 120.0, ranges[1], 1e-9)
	assert.InDelta(t, 240.0, ranges[2], 1e-9)
	assert.InDelta(t, 400.0, ranges[3], 1e-9)
}

func TestComputeWeaponStats_Idempotent(t *testing.T) {
	w := newWeapon("iw8_sm_mpapa5",
		[]float64{34, 29, 0, 25, 0, 20},
		[]float64{100, 200, 0, 300, 0, 400},
	)
	mods := testMods()
	active := core.NewAttachmentSet("suppressor")

	first, err := ComputeWeaponStats(w, mods, active, nil)
	require.NoError(t, err)
	second, err := ComputeWeaponStats(w, mods, active, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeWeaponStats_MonotoneProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for n := 0; n < 500; n++ {
		damage := make([]float64, core.NumBreakpoints)
		ranges := make([]float64, core.NumBreakpoints)
		d := 10 + rng.Float64()*90
		r := rng.Float64() * 50
		for i := 0; i < core.NumBreakpoints; i++ {
			damage[i] = d
			ranges[i] = r
			d -= rng.Float64() * 10
			if d < 0 {
				d = 0
			}
			r += rng.Float64() * 600
		}
		w := newWeapon("iw8_ar_kilo433", damage, ranges)

		bps, err := ComputeWeaponStats(w, testMods(), core.NewAttachmentSet("suppressor"), nil)
		require.NoError(t, err)

		for i := 1; i < len(bps); i++ {
			prev, cur := bps[i-1], bps[i]
			assert.Greater(t, cur.Range.Units, prev.Range.Units)
			assert.NotEqual(t, prev.HitsToKill, cur.HitsToKill)
			assert.GreaterOrEqual(t, cur.HitsToKill, prev.HitsToKill)
		}
		for _, bp := range bps {
			assert.NotEqual(t, Infinite, bp.HitsToKill)
		}
	}
}

func TestComputeAll_SkipsMissingData(t *testing.T) {
	good := newWeapon("iw8_ar_kilo433", []float64{34, 29, 0, 0, 0, 20}, []float64{10, 20, 0, 0, 0, 60})
	bad := newWeapon("iw8_ar_mike4", []float64{34}, []float64{10})

	var skipped []string
	stats := ComputeAll([]*core.WeaponRecord{bad, good}, nil, nil, nil, func(w *core.WeaponRecord, err error) {
		assert.ErrorIs(t, err, ErrMissingData)
		skipped = append(skipped, w.ID)
	})

	require.Len(t, stats, 1)
	assert.Equal(t, "iw8_ar_kilo433", stats[0].WeaponID)
	assert.Equal(t, "ar", stats[0].Class)
	assert.Equal(t, []string{"iw8_ar_mike4"}, skipped)
}

func TestSuppressorModifierID(t *testing.T) {
	id, ok := SuppressorModifierID(core.ClassSMG)
	assert.True(t, ok)
	assert.Equal(t, SuppressedSMG, id)

	_, ok = SuppressorModifierID(core.ClassOther)
	assert.False(t, ok)
}
