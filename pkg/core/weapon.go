// pkg/core/weapon.go
package core

import "strings"

// NumBreakpoints is the number of damage/range slots in a weapon table.
const NumBreakpoints = 6

// HealthPool is the reference health a target starts with.
const HealthPool = 100.0

// WeaponClass is a coarse weapon category used to pick attachment modifiers.
type WeaponClass int

const (
	ClassOther WeaponClass = iota
	ClassAssaultRifleStandard
	ClassAssaultRifle
	ClassSMG
	ClassShotgunPrecision
	ClassShotgun
)

var classNames = map[WeaponClass]string{
	ClassOther:                "other",
	ClassAssaultRifleStandard: "ar_standard",
	ClassAssaultRifle:         "ar",
	ClassSMG:                  "smg",
	ClassShotgunPrecision:     "shotgun_precision",
	ClassShotgun:              "shotgun",
}

func (c WeaponClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return classNames[ClassOther]
}

// classMarkers is checked in order; the first marker found in an identifier wins.
var classMarkers = []struct {
	marker string
	class  WeaponClass
}{
	{"_ar_standard", ClassAssaultRifleStandard},
	{"_ar_", ClassAssaultRifle},
	{"_sm_", ClassSMG},
	{"_sh_precision", ClassShotgunPrecision},
	{"_sh_", ClassShotgun},
}

// ClassifyWeapon derives the weapon class from a file-style identifier such as
// "iw8_sm_mpapa5". Unknown identifiers are ClassOther.
func ClassifyWeapon(id string) WeaponClass {
	id = strings.ToLower(id)
	for _, m := range classMarkers {
		if strings.Contains(id, m.marker) {
			return m.class
		}
	}
	return ClassOther
}

// WeaponRecord is one weapon variant as read from the weapon table.
// Slot 0 is the nearest range band (damage / maxDamageRange), slot 5 the
// farthest (minDamage / minDamageRange). A nil slot means the cell was empty.
type WeaponRecord struct {
	ID          string
	Name        string
	Class       WeaponClass
	Damage      [NumBreakpoints]*float64
	Range       [NumBreakpoints]*float64
	BonusDamage [NumBreakpoints]*float64
}

// Float returns a pointer to v. Handy for building weapon tables in code.
func Float(v float64) *float64 {
	return &v
}

// Floats converts a list of values into slot pointers. Missing trailing slots stay nil.
func Floats(values ...float64) [NumBreakpoints]*float64 {
	var out [NumBreakpoints]*float64
	for i, v := range values {
		if i >= NumBreakpoints {
			break
		}
		out[i] = Float(v)
	}
	return out
}

// WeaponGroups maps a category key (e.g. "ar", "smg") to an ordered list of
// weapon display names.
type WeaponGroups map[string][]string
