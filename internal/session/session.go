// Package session holds the current selection and turns selection changes
// into compute, render and record passes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weaponcharts/weaponcharts/internal/ballistics"
	"github.com/weaponcharts/weaponcharts/internal/chart"
	"github.com/weaponcharts/weaponcharts/internal/filter"
	"github.com/weaponcharts/weaponcharts/internal/loader"
	"github.com/weaponcharts/weaponcharts/internal/logging"
	"github.com/weaponcharts/weaponcharts/internal/storage"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// Suppressor is the attachment toggled by SetSuppressed.
const Suppressor = "suppressor"

// ErrNoGame is returned when a pass is requested before any game was loaded.
var ErrNoGame = errors.New("no game selected")

// Selection is what the user currently looks at.
type Selection struct {
	Game        string
	Category    string
	Attachments core.AttachmentSet
}

// Context holds the selection together with the tables and weapons it resolved to.
type Context struct {
	mu        sync.RWMutex
	selection Selection
	tables    *loader.Tables
	weapons   []*core.WeaponRecord
	lastRun   *core.StatRun
}

// NewContext creates a Context with category "all" and no attachments.
func NewContext() *Context {
	return &Context{
		selection: Selection{
			Category:    filter.AllCategories,
			Attachments: core.NewAttachmentSet(),
		},
	}
}

// Selection returns a copy of the current selection.
func (c *Context) Selection() Selection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sel := c.selection
	sel.Attachments = core.NewAttachmentSet(c.selection.Attachments.IDs()...)
	return sel
}

// Tables returns the tables of the selected game, nil before the first load.
func (c *Context) Tables() *loader.Tables {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables
}

// Weapons returns the weapons of the selected category.
func (c *Context) Weapons() []*core.WeaponRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weapons
}

// LastRun returns the most recent pass, nil if none has run.
func (c *Context) LastRun() *core.StatRun {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRun
}

func (c *Context) update(fn func(c *Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}

// Dependencies holds everything a Service needs.
type Dependencies struct {
	Loader     *loader.Loader
	Datasets   map[string]loader.Dataset
	Filter     filter.Filter
	Charts     *chart.Set // nil disables rendering
	LogManager *logging.SlogManager
	Unit       string // range unit used by Show
	Timeout    time.Duration
}

// Service runs passes for the selection held in its Context.
type Service struct {
	deps         Dependencies
	ctx          *Context
	writeLogFunc func(component, msg, level string)
	backend      storage.Backend
	record       func(*core.StatRun) error

	// passes run one at a time
	pass sync.Mutex

	newID func() string
	now   func() time.Time
}

// NewService creates a new session service.
func NewService(deps Dependencies, ctx *Context) *Service {
	if deps.Unit == "" {
		deps.Unit = "meters"
	}
	if deps.Filter.Exclude == nil {
		deps.Filter = filter.New()
	}
	s := &Service{
		deps:    deps,
		ctx:     ctx,
		backend: storage.Nop{},
		newID:   uuid.NewString,
		now:     time.Now,
	}
	s.writeLogFunc = func(component, msg, level string) {
		if deps.LogManager != nil {
			deps.LogManager.WriteLog(component, msg, level)
		}
	}
	s.record = func(run *core.StatRun) error {
		return s.backend.RecordRun(run)
	}
	return s
}

// GetContext returns the session context.
func (s *Service) GetContext() *Context {
	return s.ctx
}

// SetBackend sets the storage backend every pass is recorded to.
func (s *Service) SetBackend(b storage.Backend) {
	if b == nil {
		b = storage.Nop{}
	}
	s.backend = b
}

func (s *Service) writeLog(component, msg, level string) {
	s.writeLogFunc(component, msg, level)
}

// Games returns the configured dataset keys.
func (s *Service) Games() []string {
	games := make([]string, 0, len(s.deps.Datasets))
	for k := range s.deps.Datasets {
		games = append(games, k)
	}
	return sortedCopy(games)
}

// SelectGame loads the game's tables and runs a pass for the current
// category. If the category does not exist in the new game, "all" is used.
// A failed load leaves the previous selection and charts untouched.
func (s *Service) SelectGame(ctx context.Context, game string) (*core.StatRun, error) {
	s.pass.Lock()
	defer s.pass.Unlock()
	return s.selectGame(ctx, game)
}

func (s *Service) selectGame(ctx context.Context, game string) (*core.StatRun, error) {
	ds, ok := s.deps.Datasets[game]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", game)
	}
	if s.deps.Loader == nil {
		return nil, errors.New("no loader configured")
	}
	if s.deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.Timeout)
		defer cancel()
	}

	tables, err := s.deps.Loader.Load(ctx, ds)
	if err != nil {
		s.writeLog("session", fmt.Sprintf("Failed to load game %s: %v", game, err), "error")
		return nil, err
	}

	category := s.ctx.Selection().Category
	if _, known := tables.Groups[category]; !known && category != filter.AllCategories {
		s.writeLog("session", fmt.Sprintf("Category %s not in game %s, using %s", category, game, filter.AllCategories), "warn")
		category = filter.AllCategories
	}

	weapons, err := s.selectWeapons(tables, category)
	if err != nil {
		return nil, err
	}

	s.ctx.update(func(c *Context) {
		c.selection.Game = game
		c.selection.Category = category
		c.tables = tables
		c.weapons = weapons
	})
	return s.run()
}

// SelectCategory filters the loaded game by category and runs a pass.
func (s *Service) SelectCategory(category string) (*core.StatRun, error) {
	s.pass.Lock()
	defer s.pass.Unlock()

	tables := s.ctx.Tables()
	if tables == nil {
		return nil, ErrNoGame
	}
	weapons, err := s.selectWeapons(tables, category)
	if err != nil {
		return nil, err
	}
	s.ctx.update(func(c *Context) {
		c.selection.Category = category
		c.weapons = weapons
	})
	return s.run()
}

// SetSuppressed equips or removes the suppressor and recomputes the
// selected weapons.
func (s *Service) SetSuppressed(on bool) (*core.StatRun, error) {
	if on {
		return s.Attach(Suppressor)
	}
	return s.Detach(Suppressor)
}

// Attach equips an attachment and recomputes the selected weapons.
func (s *Service) Attach(id string) (*core.StatRun, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("attachment id is required")
	}
	return s.changeAttachments(func(set core.AttachmentSet) core.AttachmentSet {
		return set.With(id)
	})
}

// Detach removes an attachment and recomputes the selected weapons.
func (s *Service) Detach(id string) (*core.StatRun, error) {
	return s.changeAttachments(func(set core.AttachmentSet) core.AttachmentSet {
		return set.Without(strings.TrimSpace(id))
	})
}

// SetAttachments replaces the equipped set without running a pass. It is
// used to apply the startup selection before the first game load.
func (s *Service) SetAttachments(ids ...string) {
	s.ctx.update(func(c *Context) {
		c.selection.Attachments = core.NewAttachmentSet(ids...)
	})
}

// SetCategory replaces the category without running a pass.
func (s *Service) SetCategory(category string) {
	if category == "" {
		category = filter.AllCategories
	}
	s.ctx.update(func(c *Context) {
		c.selection.Category = category
	})
}

func (s *Service) changeAttachments(fn func(core.AttachmentSet) core.AttachmentSet) (*core.StatRun, error) {
	s.pass.Lock()
	defer s.pass.Unlock()

	s.ctx.update(func(c *Context) {
		c.selection.Attachments = fn(c.selection.Attachments)
	})
	if s.ctx.Tables() == nil {
		return nil, ErrNoGame
	}
	return s.run()
}

// Refresh reloads the selected game from its sources and runs a pass.
func (s *Service) Refresh(ctx context.Context) (*core.StatRun, error) {
	s.pass.Lock()
	defer s.pass.Unlock()

	game := s.ctx.Selection().Game
	if game == "" {
		return nil, ErrNoGame
	}
	return s.selectGame(ctx, game)
}

func (s *Service) selectWeapons(tables *loader.Tables, category string) ([]*core.WeaponRecord, error) {
	weapons, missing, err := s.deps.Filter.Select(tables.Weapons, tables.Groups, category)
	if err != nil {
		return nil, err
	}
	for _, name := range missing {
		s.writeLog("filter", fmt.Sprintf("Weapon %q of category %s not found in %s", name, category, tables.Dataset), "warn")
	}
	return weapons, nil
}

// run computes, renders and records the current selection. Callers hold s.pass.
func (s *Service) run() (*core.StatRun, error) {
	start := s.now()
	sel := s.ctx.Selection()
	tables := s.ctx.Tables()
	weapons := s.ctx.Weapons()

	order := tables.Order
	if len(order) == 0 {
		order = ballistics.DefaultOrder
	}

	stats := ballistics.ComputeAll(weapons, tables.Attachments, sel.Attachments, order, func(w *core.WeaponRecord, err error) {
		s.writeLog("ballistics", fmt.Sprintf("Skipping %s: %v", w.ID, err), "warn")
	})

	run := &core.StatRun{
		ID:          s.newID(),
		Game:        sel.Game,
		Category:    sel.Category,
		Attachments: sel.Attachments.IDs(),
		CreatedAt:   start.UTC(),
		Weapons:     stats,
	}
	s.ctx.update(func(c *Context) {
		c.lastRun = run
	})

	var errs []error
	if s.deps.Charts != nil {
		if err := s.deps.Charts.Render(stats); err != nil {
			s.writeLog("chart", fmt.Sprintf("Render failed: %v", err), "error")
			errs = append(errs, fmt.Errorf("render: %w", err))
		}
	}
	if err := s.record(run); err != nil {
		s.writeLog("storage", fmt.Sprintf("Failed to record run %s: %v", run.ID, err), "error")
		errs = append(errs, fmt.Errorf("record: %w", err))
	}

	s.writeLog("session", fmt.Sprintf("Pass %s: game=%s category=%s attachments=%s weapons=%d took %s",
		run.ID, run.Game, run.Category, strings.Join(run.Attachments, ","), len(stats), s.now().Sub(start)), "info")

	return run, errors.Join(errs...)
}

// Show formats the last pass as one line per weapon, e.g.
// "Kilo 141: 3@76 4@81" with ranges in the configured unit.
func (s *Service) Show() string {
	run := s.ctx.LastRun()
	if run == nil {
		return "no charts yet"
	}
	return s.format(run)
}

// format renders a run as a header line plus one line of hits@range per
// weapon in the configured unit.
func (s *Service) format(run *core.StatRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s / %s [%s] (%s)\n", run.Game, run.Category, strings.Join(run.Attachments, ","), s.deps.Unit)
	for _, w := range run.Weapons {
		b.WriteString(w.Name)
		b.WriteString(":")
		if len(w.Breakpoints) == 0 {
			b.WriteString(" -")
		}
		for _, bp := range w.Breakpoints {
			fmt.Fprintf(&b, " %d@%s", bp.HitsToKill, formatRange(bp.Range.In(s.deps.Unit)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RecentRuns lists up to limit recorded runs, newest first, without their
// weapons. Runs still in the record queue are not listed yet.
func (s *Service) RecentRuns(limit int) ([]core.StatRun, error) {
	l, ok := s.backend.(storage.Lister)
	if !ok {
		return nil, storage.ErrNotReadable
	}
	return l.RecentRuns(limit)
}

// LoadRun reads a recorded run back from storage.
func (s *Service) LoadRun(id string) (*core.StatRun, error) {
	r, ok := s.backend.(storage.Reader)
	if !ok {
		return nil, storage.ErrNotReadable
	}
	return r.LoadRun(id)
}

// LogAttrs returns the selection as log attributes for logging.ContextHandler.
func (s *Service) LogAttrs() []slog.Attr {
	sel := s.ctx.Selection()
	if sel.Game == "" {
		return nil
	}
	attrs := []slog.Attr{
		slog.String("game", sel.Game),
		slog.String("category", sel.Category),
	}
	if len(sel.Attachments) > 0 {
		attrs = append(attrs, slog.String("attachments", strings.Join(sel.Attachments.IDs(), ",")))
	}
	return attrs
}
