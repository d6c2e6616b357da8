// Package loader fetches and parses the static weapon, attachment and weapon
// group tables for one dataset.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// Dataset names the table locations of one game's data.
type Dataset struct {
	Name        string
	Weapons     string
	Attachments string
	Groups      string // optional
	Order       []int  // breakpoint visiting order, nil for the default
}

// ErrInvalidOrder is returned for a breakpoint order with an index outside
// the weapon table or a repeated index.
var ErrInvalidOrder = errors.New("invalid breakpoint order")

// ValidateOrder checks that every index names one of the core.NumBreakpoints
// table slots at most once. A nil or empty order means the default.
func ValidateOrder(order []int) error {
	seen := make(map[int]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= core.NumBreakpoints {
			return fmt.Errorf("%w: index %d outside 0..%d", ErrInvalidOrder, i, core.NumBreakpoints-1)
		}
		if seen[i] {
			return fmt.Errorf("%w: index %d repeated", ErrInvalidOrder, i)
		}
		seen[i] = true
	}
	return nil
}

// Tables is the parsed, immutable data of one dataset.
type Tables struct {
	Dataset     string
	Weapons     []*core.WeaponRecord // file order
	WeaponsByID map[string]*core.WeaponRecord
	Attachments core.AttachmentTable
	Groups      core.WeaponGroups
	Order       []int
}

// Loader fetches datasets from disk or over HTTP.
type Loader struct {
	client *http.Client
	logger *slog.Logger
}

// New creates a Loader. A zero timeout uses 30 seconds.
func New(timeout time.Duration, logger *slog.Logger) *Loader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Load fetches every table of ds concurrently and waits for all of them.
// If any fetch or parse fails, Load fails and no tables are returned.
func (l *Loader) Load(ctx context.Context, ds Dataset) (*Tables, error) {
	if ds.Weapons == "" || ds.Attachments == "" {
		return nil, fmt.Errorf("dataset %q: weapons and attachments locations are required", ds.Name)
	}
	if err := ValidateOrder(ds.Order); err != nil {
		return nil, fmt.Errorf("dataset %q: %w", ds.Name, err)
	}

	start := time.Now()
	t := &Tables{Dataset: ds.Name, Groups: core.WeaponGroups{}, Order: ds.Order}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		src := NewSource(ds.Weapons, l.client)
		rc, err := src.Open(gctx)
		if err != nil {
			return fmt.Errorf("weapons %s: %w", src, err)
		}
		defer rc.Close()

		weapons, err := ParseWeapons(rc)
		if err != nil {
			return fmt.Errorf("weapons %s: %w", src, err)
		}
		t.Weapons = weapons
		return nil
	})

	g.Go(func() error {
		src := NewSource(ds.Attachments, l.client)
		rc, err := src.Open(gctx)
		if err != nil {
			return fmt.Errorf("attachments %s: %w", src, err)
		}
		defer rc.Close()

		mods, err := ParseAttachments(rc, src.Ext())
		if err != nil {
			return fmt.Errorf("attachments %s: %w", src, err)
		}
		t.Attachments = mods
		return nil
	})

	if ds.Groups != "" {
		g.Go(func() error {
			src := NewSource(ds.Groups, l.client)
			rc, err := src.Open(gctx)
			if err != nil {
				return fmt.Errorf("weapon groups %s: %w", src, err)
			}
			defer rc.Close()

			groups, err := ParseGroups(rc, src.Ext())
			if err != nil {
				return fmt.Errorf("weapon groups %s: %w", src, err)
			}
			t.Groups = groups
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		l.logger.Error("Failed to load dataset", "dataset", ds.Name, "error", err)
		return nil, fmt.Errorf("load dataset %q: %w", ds.Name, err)
	}

	t.WeaponsByID = make(map[string]*core.WeaponRecord, len(t.Weapons))
	for _, w := range t.Weapons {
		if _, dup := t.WeaponsByID[w.ID]; dup {
			l.logger.Warn("Duplicate weapon identifier, keeping first", "dataset", ds.Name, "weapon", w.ID)
			continue
		}
		t.WeaponsByID[w.ID] = w
	}

	l.logger.Info("Loaded dataset",
		"dataset", ds.Name,
		"weapons", len(t.Weapons),
		"attachments", len(t.Attachments),
		"groups", len(t.Groups),
		"duration", time.Since(start),
	)
	return t, nil
}
