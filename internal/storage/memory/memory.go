// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/weaponcharts/weaponcharts/internal/config"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// Backend keeps runs in memory and, when an output directory is configured,
// exports each one as a JSON file.
type Backend struct {
	cfg config.MemoryConfig

	runs []core.StatRun
	byID map[string]int
	mu   sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:  cfg,
		byID: make(map[string]int),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// RecordRun stores a copy of run and exports it.
func (b *Backend) RecordRun(run *core.StatRun) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	stored := cloneRun(*run)
	if i, ok := b.byID[run.ID]; ok {
		b.runs[i] = stored
	} else {
		b.byID[run.ID] = len(b.runs)
		b.runs = append(b.runs, stored)
	}

	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON(stored)
}

// LoadRun returns a copy of a recorded run. Runs recorded by an earlier
// process are read from their export file.
func (b *Backend) LoadRun(id string) (*core.StatRun, error) {
	b.mu.RLock()
	i, ok := b.byID[id]
	var run core.StatRun
	if ok {
		run = cloneRun(b.runs[i])
	}
	b.mu.RUnlock()
	if ok {
		return &run, nil
	}

	exported, err := b.findExport(id)
	if errors.Is(err, errNoExport) {
		return nil, fmt.Errorf("run %s: %w", id, core.ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &exported.StatRun, nil
}

// RecentRuns returns up to limit runs, newest first, without their weapons.
// Exported runs of earlier processes are included.
func (b *Backend) RecentRuns(limit int) ([]core.StatRun, error) {
	seen := make(map[string]bool)
	var out []core.StatRun
	for _, r := range b.Runs() {
		seen[r.ID] = true
		out = append(out, r)
	}
	for _, e := range b.readExports() {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e.StatRun)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Weapons = nil
	}
	return out, nil
}

// Runs returns copies of all recorded runs in recording order.
func (b *Backend) Runs() []core.StatRun {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.StatRun, len(b.runs))
	for i, r := range b.runs {
		out[i] = cloneRun(r)
	}
	return out
}

func cloneRun(r core.StatRun) core.StatRun {
	r.Attachments = append([]string(nil), r.Attachments...)
	weapons := make([]core.WeaponStats, len(r.Weapons))
	for i, w := range r.Weapons {
		w.Breakpoints = append([]core.Breakpoint(nil), w.Breakpoints...)
		weapons[i] = w
	}
	r.Weapons = weapons
	return r
}
