package sqlitestorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

func run(id string) *core.StatRun {
	return &core.StatRun{
		ID:        id,
		Game:      "cw",
		Category:  "all",
		CreatedAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
		Weapons: []core.WeaponStats{{
			WeaponID: "t9_ar_standard_krig",
			Name:     "Krig 6",
			Class:    "ar_standard",
			Breakpoints: []core.Breakpoint{
				{Index: 0, Damage: 35, HitsToKill: 3, Range: core.NewRangeUnits(1100)},
			},
		}},
	}
}

func TestFileDatabase_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	b := New(config.SQLiteConfig{Path: path}, zerolog.Nop())
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordRun(run("r1")))
	require.NoError(t, b.Close())

	reopened := New(config.SQLiteConfig{Path: path}, zerolog.Nop())
	require.NoError(t, reopened.Init())
	defer reopened.Close()

	got, err := reopened.LoadRun("r1")
	require.NoError(t, err)
	assert.Equal(t, "Krig 6", got.Weapons[0].Name)
}

func TestInMemory_DumpOnClose(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "dump.db")

	b := New(config.SQLiteConfig{Path: ":memory:", DumpPath: dump}, zerolog.Nop())
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordRun(run("r2")))
	require.NoError(t, b.Close())

	fromDisk := New(config.SQLiteConfig{Path: dump}, zerolog.Nop())
	require.NoError(t, fromDisk.Init())
	defer fromDisk.Close()

	got, err := fromDisk.LoadRun("r2")
	require.NoError(t, err)
	assert.Equal(t, 1100.0, got.Weapons[0].Breakpoints[0].Range.Units)
}
