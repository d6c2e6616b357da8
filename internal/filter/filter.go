// Package filter picks the weapons of one category out of a dataset.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// AllCategories selects every canonical weapon regardless of group membership.
const AllCategories = "all"

// DefaultExclude lists identifier fragments of non-canonical variants:
// dual-optic, left-handed and dual-wield reskins.
var DefaultExclude = []string{"dualoptic", "lefthand", "akimbo"}

// Filter selects canonical weapons for a category.
type Filter struct {
	Exclude []string
}

// New creates a Filter. With no fragments given, DefaultExclude is used.
func New(exclude ...string) Filter {
	if len(exclude) == 0 {
		exclude = DefaultExclude
	}
	lowered := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			lowered = append(lowered, e)
		}
	}
	return Filter{Exclude: lowered}
}

// IsVariant reports whether the weapon identifier names a non-canonical variant.
func (f Filter) IsVariant(id string) bool {
	id = strings.ToLower(id)
	for _, e := range f.Exclude {
		if strings.Contains(id, e) {
			return true
		}
	}
	return false
}

// Select returns the canonical weapons of category in the group's order.
// Display names with no canonical record are returned in missing.
func (f Filter) Select(weapons []*core.WeaponRecord, groups core.WeaponGroups, category string) (selected []*core.WeaponRecord, missing []string, err error) {
	if category == "" || category == AllCategories {
		for _, w := range weapons {
			if !f.IsVariant(w.ID) {
				selected = append(selected, w)
			}
		}
		return selected, nil, nil
	}

	names, ok := groups[category]
	if !ok {
		return nil, nil, fmt.Errorf("unknown category %q", category)
	}

	byName := make(map[string]*core.WeaponRecord, len(weapons))
	for _, w := range weapons {
		if f.IsVariant(w.ID) {
			continue
		}
		if _, seen := byName[w.Name]; !seen {
			byName[w.Name] = w
		}
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		w, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		selected = append(selected, w)
	}
	return selected, missing, nil
}

// Categories returns the category keys of groups in a stable order.
func Categories(groups core.WeaponGroups) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
