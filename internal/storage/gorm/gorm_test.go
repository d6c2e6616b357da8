package gormstorage

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weaponcharts/weaponcharts/internal/database"
	"github.com/weaponcharts/weaponcharts/internal/model"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// newTestBackend creates a Backend on a private in-memory SQLite database.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(database.NewManager(zerolog.Nop()), func(m *database.Manager) error {
		return m.ConnectSqlite(database.MemoryPath)
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { b.Close() })
	return b
}

func testRun(id string, created time.Time) *core.StatRun {
	return &core.StatRun{
		ID:          id,
		Game:        "mw",
		Category:    "smg",
		Attachments: []string{"suppressor"},
		CreatedAt:   created,
		Weapons: []core.WeaponStats{
			{
				WeaponID: "iw8_sm_mpapa5",
				Name:     "MP5",
				Class:    "smg",
				Breakpoints: []core.Breakpoint{
					{Index: 0, Damage: 34, HitsToKill: 3, Range: core.NewRangeUnits(80)},
					{Index: 3, Damage: 25, HitsToKill: 4, Range: core.NewRangeUnits(240)},
					{Index: 5, Damage: 20, HitsToKill: 5, Range: core.NewRangeUnits(320)},
				},
			},
			{
				WeaponID: "iw8_sm_uzulu",
				Name:     "Uzi",
				Class:    "smg",
				Breakpoints: []core.Breakpoint{
					{Index: 0, Damage: 30, HitsToKill: 4, Range: core.NewRangeUnits(400)},
				},
			},
		},
	}
}

func TestRecordAndLoadRun(t *testing.T) {
	b := newTestBackend(t)
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, b.RecordRun(testRun("run-1", created)))

	got, err := b.LoadRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "mw", got.Game)
	assert.Equal(t, []string{"suppressor"}, got.Attachments)
	assert.True(t, created.Equal(got.CreatedAt))
	require.Len(t, got.Weapons, 2)
	assert.Equal(t, "iw8_sm_mpapa5", got.Weapons[0].WeaponID)
	assert.Equal(t, testRun("run-1", created).Weapons[0].Breakpoints, got.Weapons[0].Breakpoints)
	assert.Equal(t, "iw8_sm_uzulu", got.Weapons[1].WeaponID)
}

func TestRecordRun_ReplacesSameID(t *testing.T) {
	b := newTestBackend(t)
	now := time.Now().UTC()

	require.NoError(t, b.RecordRun(testRun("run-1", now)))

	smaller := testRun("run-1", now)
	smaller.Weapons = smaller.Weapons[:1]
	require.NoError(t, b.RecordRun(smaller))

	got, err := b.LoadRun("run-1")
	require.NoError(t, err)
	require.Len(t, got.Weapons, 1)

	var bpCount int64
	require.NoError(t, b.DB().Model(&model.Breakpoint{}).Count(&bpCount).Error)
	assert.Equal(t, int64(3), bpCount, "old breakpoints removed")
}

func TestLoadRun_Unknown(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.LoadRun("missing")
	assert.True(t, errors.Is(err, core.ErrRunNotFound))
}

func TestRecentRuns(t *testing.T) {
	b := newTestBackend(t)
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, b.RecordRun(testRun("old", base)))
	require.NoError(t, b.RecordRun(testRun("new", base.Add(time.Hour))))
	require.NoError(t, b.RecordRun(testRun("mid", base.Add(time.Minute))))

	runs, err := b.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "mid", runs[1].ID)
	assert.Empty(t, runs[0].Weapons)
}

func TestRecordRun_NotInitialized(t *testing.T) {
	b := New(database.NewManager(zerolog.Nop()), nil)

	err := b.RecordRun(testRun("x", time.Now()))
	assert.Error(t, err)
	assert.Error(t, b.RecordRun(nil))

	_, err = b.LoadRun("x")
	assert.Error(t, err)
}

func TestInit_ConnectFailure(t *testing.T) {
	b := New(database.NewManager(zerolog.Nop()), func(*database.Manager) error {
		return errors.New("refused")
	})
	assert.EqualError(t, b.Init(), "refused")
}
