package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

const (
	summarySheet = "Summary"
	chartCell    = "K2"
	maxSheetName = 31
)

var unitLabels = map[string]string{
	"units":       "u",
	"inches":      "in",
	"feet":        "ft",
	"yards":       "yd",
	"centimeters": "cm",
	"meters":      "m",
}

// XLSXRenderer draws each weapon on its own worksheet of one workbook: a
// breakpoint table plus a column chart of range per hits-to-kill tier.
type XLSXRenderer struct {
	path string
	unit string
	f    *excelize.File

	order []Handle
	stats map[Handle]core.WeaponStats
}

// NewXLSXRenderer creates a renderer writing the workbook to path on Flush.
func NewXLSXRenderer(path, unit string) (*XLSXRenderer, error) {
	if !ValidUnit(unit) {
		return nil, fmt.Errorf("unknown chart unit %q", unit)
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	return &XLSXRenderer{
		path:  path,
		unit:  unit,
		f:     f,
		stats: make(map[Handle]core.WeaponStats),
	}, nil
}

// Path returns the workbook location.
func (x *XLSXRenderer) Path() string {
	return x.path
}

func (x *XLSXRenderer) Create(stats core.WeaponStats) (Handle, error) {
	name := x.sheetName(stats)
	if _, err := x.f.NewSheet(name); err != nil {
		return "", err
	}
	h := Handle(name)
	if err := x.writeSheet(name, stats); err != nil {
		return "", err
	}
	x.order = append(x.order, h)
	x.stats[h] = stats
	return h, nil
}

func (x *XLSXRenderer) Update(h Handle, stats core.WeaponStats) error {
	sheet := string(h)
	if err := x.f.DeleteChart(sheet, chartCell); err != nil {
		return err
	}
	if err := clearRows(x.f, sheet); err != nil {
		return err
	}
	if err := x.writeSheet(sheet, stats); err != nil {
		return err
	}
	x.stats[h] = stats
	return nil
}

func (x *XLSXRenderer) Remove(h Handle) error {
	if err := x.f.DeleteSheet(string(h)); err != nil {
		return err
	}
	delete(x.stats, h)
	for i, o := range x.order {
		if o == h {
			x.order = append(x.order[:i], x.order[i+1:]...)
			break
		}
	}
	return nil
}

// Flush rewrites the summary sheet and saves the workbook.
func (x *XLSXRenderer) Flush() error {
	if err := x.writeSummary(); err != nil {
		return err
	}
	if dir := filepath.Dir(x.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := x.f.SaveAs(x.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Close releases the workbook.
func (x *XLSXRenderer) Close() error {
	return x.f.Close()
}

func (x *XLSXRenderer) writeSheet(sheet string, stats core.WeaponStats) error {
	rangeHeader := fmt.Sprintf("Range (%s)", unitLabels[x.unit])
	header := []any{"Hits to kill", "Damage", rangeHeader, "Units", "Inches", "Feet", "Yards", "Centimeters", "Meters"}
	if err := x.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, bp := range stats.Breakpoints {
		row := []any{
			bp.HitsToKill,
			bp.Damage,
			bp.Range.In(x.unit),
			bp.Range.Units,
			bp.Range.Inches,
			bp.Range.Feet,
			bp.Range.Yards,
			bp.Range.Centimeters,
			bp.Range.Meters,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := x.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(stats.Breakpoints) == 0 {
		return nil
	}

	last := len(stats.Breakpoints) + 1
	ref := quoteSheet(sheet)
	return x.f.AddChart(sheet, chartCell, &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("%s!$C$1", ref),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", ref, last),
				Values:     fmt.Sprintf("%s!$C$2:$C$%d", ref, last),
			},
		},
		Title:  []excelize.RichTextRun{{Text: stats.Name}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Hits to kill"}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: rangeHeader}}},
	})
}

func (x *XLSXRenderer) writeSummary() error {
	if err := clearRows(x.f, summarySheet); err != nil {
		return err
	}
	header := []any{"Weapon", "Identifier", "Class", "Sheet", "Tiers", "Fewest hits", "Max range (" + unitLabels[x.unit] + ")"}
	if err := x.f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return err
	}
	for i, h := range x.order {
		st := x.stats[h]
		row := []any{st.Name, st.WeaponID, st.Class, string(h), len(st.Breakpoints), "", ""}
		if n := len(st.Breakpoints); n > 0 {
			row[5] = st.Breakpoints[0].HitsToKill
			row[6] = st.Breakpoints[n-1].Range.In(x.unit)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := x.f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// sheetName derives a valid, unused worksheet name for a weapon.
func (x *XLSXRenderer) sheetName(stats core.WeaponStats) string {
	base := stats.Name
	if base == "" {
		base = stats.WeaponID
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, base)
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Weapon"
	}

	name := truncate(base, maxSheetName)
	for n := 2; x.sheetTaken(name); n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	return name
}

func (x *XLSXRenderer) sheetTaken(name string) bool {
	for _, s := range x.f.GetSheetList() {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func clearRows(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	for i := len(rows); i >= 1; i-- {
		if err := f.RemoveRow(sheet, i); err != nil {
			return err
		}
	}
	return nil
}
