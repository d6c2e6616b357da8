package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// Weapon table columns, slot order nearest to farthest.
var (
	damageColumns = [core.NumBreakpoints]string{
		"damage", "damage2", "damage3", "damage4", "damage5", "minDamage",
	}
	rangeColumns = [core.NumBreakpoints]string{
		"maxDamageRange", "damageRange2", "damageRange3", "damageRange4", "damageRange5", "minDamageRange",
	}
	bonusColumns = [core.NumBreakpoints]string{
		"multishotBonusDamage", "multishotBonusDamage2", "multishotBonusDamage3",
		"multishotBonusDamage4", "multishotBonusDamage5", "multishotBonusMinDamage",
	}
)

const (
	idColumn   = "file"
	nameColumn = "name"
)

// ParseWeapons reads the weapon CSV table. Rows without a display name are
// skipped; empty numeric cells leave the slot unset.
func ParseWeapons(r io.Reader) ([]*core.WeaponRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("weapon table is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := cols[nameColumn]; !ok {
		return nil, fmt.Errorf("weapon table has no %q column", nameColumn)
	}

	var weapons []*core.WeaponRecord
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		name := cell(nameColumn)
		if name == "" {
			continue
		}
		id := cell(idColumn)
		if id == "" {
			id = name
		}

		w := &core.WeaponRecord{ID: id, Name: name, Class: core.ClassifyWeapon(id)}
		for i := 0; i < core.NumBreakpoints; i++ {
			if w.Damage[i], err = parseSlot(cell(damageColumns[i])); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, damageColumns[i], err)
			}
			if w.Range[i], err = parseSlot(cell(rangeColumns[i])); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, rangeColumns[i], err)
			}
			if w.BonusDamage[i], err = parseSlot(cell(bonusColumns[i])); err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, bonusColumns[i], err)
			}
		}
		weapons = append(weapons, w)
	}
	return weapons, nil
}

func parseSlot(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
