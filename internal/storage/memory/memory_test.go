// internal/storage/memory/memory_test.go
package memory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

func testRun(id string) *core.StatRun {
	return &core.StatRun{
		ID:          id,
		Game:        "mw",
		Category:    "assault rifles",
		Attachments: []string{"suppressor"},
		CreatedAt:   time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Weapons: []core.WeaponStats{
			{
				WeaponID: "iw8_ar_kilo433",
				Name:     "Kilo 141",
				Class:    "ar",
				Breakpoints: []core.Breakpoint{
					{Index: 0, Damage: 34, HitsToKill: 3, Range: core.NewRangeUnits(1000)},
					{Index: 5, Damage: 20, HitsToKill: 5, Range: core.NewRangeUnits(3000)},
				},
			},
		},
	}
}

func TestRecordRun_KeepsCopy(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.Init())
	defer b.Close()

	run := testRun("run-1")
	require.NoError(t, b.RecordRun(run))

	// mutating the caller's run must not reach the stored copy
	run.Weapons[0].Breakpoints[0].HitsToKill = 99
	run.Attachments[0] = "changed"

	got, err := b.LoadRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Weapons[0].Breakpoints[0].HitsToKill)
	assert.Equal(t, []string{"suppressor"}, got.Attachments)
}

func TestRecordRun_ReplacesSameID(t *testing.T) {
	b := New(config.MemoryConfig{})

	require.NoError(t, b.RecordRun(testRun("a")))
	require.NoError(t, b.RecordRun(testRun("b")))
	again := testRun("a")
	again.Category = "smg"
	require.NoError(t, b.RecordRun(again))

	runs := b.Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "a", runs[0].ID)
	assert.Equal(t, "smg", runs[0].Category)
	assert.Equal(t, "b", runs[1].ID)
}

func TestRecordRun_Nil(t *testing.T) {
	assert.Error(t, New(config.MemoryConfig{}).RecordRun(nil))
}

func TestLoadRun_Unknown(t *testing.T) {
	_, err := New(config.MemoryConfig{}).LoadRun("missing")
	assert.True(t, errors.Is(err, core.ErrRunNotFound))
}

func TestExport_Gzip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	require.NoError(t, b.RecordRun(testRun("5f1c6f0e-7d0b-4d7e")))

	path := filepath.Join(dir, "mw_assault_rifles_20260115_103000_5f1c6f0e.json.gz")
	require.FileExists(t, path)

	export, err := ReadExport(path)
	require.NoError(t, err)
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, "5f1c6f0e-7d0b-4d7e", export.ID)
	require.Len(t, export.Weapons, 1)
	assert.Equal(t, 76.0, export.Weapons[0].Breakpoints[1].Range.Meters)
}

func TestExport_PlainJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: false})

	require.NoError(t, b.RecordRun(testRun("abc")))

	path := filepath.Join(dir, "mw_assault_rifles_20260115_103000_abc.json")
	require.FileExists(t, path)

	export, err := ReadExport(path)
	require.NoError(t, err)
	assert.Equal(t, "Kilo 141", export.Weapons[0].Name)
	assert.Equal(t, []string{"suppressor"}, export.Attachments)
}

func TestReadExport_Missing(t *testing.T) {
	_, err := ReadExport(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadRun_FromEarlierExport(t *testing.T) {
	dir := t.TempDir()
	first := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, first.RecordRun(testRun("5f1c6f0e-7d0b-4d7e")))

	// a new process only has the files
	b := New(config.MemoryConfig{OutputDir: dir})
	got, err := b.LoadRun("5f1c6f0e-7d0b-4d7e")
	require.NoError(t, err)
	assert.Equal(t, "Kilo 141", got.Weapons[0].Name)

	_, err = b.LoadRun("5f1c6f0e-other")
	assert.ErrorIs(t, err, core.ErrRunNotFound, "same short id, different run")
}

func TestRecentRuns(t *testing.T) {
	dir := t.TempDir()
	old := testRun("old")
	old.CreatedAt = old.CreatedAt.Add(-time.Hour)
	require.NoError(t, New(config.MemoryConfig{OutputDir: dir}).RecordRun(old))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	b := New(config.MemoryConfig{OutputDir: dir})
	newer := testRun("newer")
	newer.CreatedAt = newer.CreatedAt.Add(time.Hour)
	require.NoError(t, b.RecordRun(testRun("mid")))
	require.NoError(t, b.RecordRun(newer))

	runs, err := b.RecentRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "newer", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Equal(t, "old", runs[2].ID)
	for _, r := range runs {
		assert.Nil(t, r.Weapons)
	}

	runs, err = b.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "newer", runs[0].ID)

	got, err := b.LoadRun("mid")
	require.NoError(t, err)
	assert.Len(t, got.Weapons, 1, "listing does not strip stored runs")
}
