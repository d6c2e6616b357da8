// Package chart renders per-weapon breakpoint bar charts.
//
// A Set remembers which chart belongs to which weapon so that a repeated
// render updates the existing chart instead of creating a new one.
package chart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// Handle identifies a chart created by a Renderer.
type Handle string

// Renderer draws charts on some surface.
type Renderer interface {
	Create(stats core.WeaponStats) (Handle, error)
	Update(h Handle, stats core.WeaponStats) error
	Remove(h Handle) error
	// Flush makes the current charts visible, e.g. by writing a file.
	Flush() error
}

// Units accepted for the charted range value.
var Units = []string{"units", "inches", "feet", "yards", "centimeters", "meters"}

// ValidUnit reports whether unit is one of Units.
func ValidUnit(unit string) bool {
	for _, u := range Units {
		if u == unit {
			return true
		}
	}
	return false
}

// Set keeps one chart per weapon identifier.
type Set struct {
	renderer Renderer

	mu      sync.Mutex
	handles map[string]Handle
}

// NewSet creates an empty Set drawing with r.
func NewSet(r Renderer) *Set {
	return &Set{
		renderer: r,
		handles:  make(map[string]Handle),
	}
}

// Render brings the charts in line with stats: existing charts are updated,
// new weapons get a chart, and weapons that are gone or have no breakpoints
// lose theirs. Rendering continues past per-weapon failures; they are
// returned joined.
func (s *Set) Render(stats []core.WeaponStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	present := make(map[string]bool, len(stats))

	for _, st := range stats {
		if len(st.Breakpoints) == 0 {
			continue
		}
		present[st.WeaponID] = true

		if h, ok := s.handles[st.WeaponID]; ok {
			if err := s.renderer.Update(h, st); err != nil {
				errs = append(errs, fmt.Errorf("update chart %s: %w", st.WeaponID, err))
			}
			continue
		}

		h, err := s.renderer.Create(st)
		if err != nil {
			errs = append(errs, fmt.Errorf("create chart %s: %w", st.WeaponID, err))
			continue
		}
		s.handles[st.WeaponID] = h
	}

	for id, h := range s.handles {
		if present[id] {
			continue
		}
		if err := s.renderer.Remove(h); err != nil {
			errs = append(errs, fmt.Errorf("remove chart %s: %w", id, err))
		}
		delete(s.handles, id)
	}

	if err := s.renderer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flush charts: %w", err))
	}
	return errors.Join(errs...)
}

// Handle returns the chart handle of a weapon, if it has one.
func (s *Set) Handle(weaponID string) (Handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[weaponID]
	return h, ok
}

// Len returns the number of charts currently held.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
