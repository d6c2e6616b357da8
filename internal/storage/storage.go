// internal/storage/storage.go
package storage

import (
	"errors"
	"fmt"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// ErrNotFound is returned by Reader implementations for unknown run ids.
var ErrNotFound = core.ErrRunNotFound

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordRun persists one compute pass.
	RecordRun(run *core.StatRun) error
}

// Reader is an optional interface for backends that can return recorded runs.
type Reader interface {
	LoadRun(id string) (*core.StatRun, error)
}

// Lister is an optional interface for backends that can list recorded runs.
// Listed runs carry no weapons; LoadRun returns the full run.
type Lister interface {
	RecentRuns(limit int) ([]core.StatRun, error)
}

// ErrNotReadable is returned when no backend can read runs back.
var ErrNotReadable = errors.New("storage cannot read runs back")

// Nop discards every run. It backs the "none" storage type.
type Nop struct{}

func (Nop) Init() error                   { return nil }
func (Nop) Close() error                  { return nil }
func (Nop) RecordRun(*core.StatRun) error { return nil }

// Multi fans a run out to several backends. Every backend sees every call;
// failures are joined.
type Multi []Backend

// Init initializes all backends. On failure the ones already initialized are
// closed again.
func (m Multi) Init() error {
	for i, b := range m {
		if err := b.Init(); err != nil {
			for _, done := range m[:i] {
				_ = done.Close()
			}
			return fmt.Errorf("init %T: %w", b, err)
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, b := range m {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %T: %w", b, err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) RecordRun(run *core.StatRun) error {
	var errs []error
	for _, b := range m {
		if err := b.RecordRun(run); err != nil {
			errs = append(errs, fmt.Errorf("record %T: %w", b, err))
		}
	}
	return errors.Join(errs...)
}

// LoadRun returns the run from the first backend that can read it.
func (m Multi) LoadRun(id string) (*core.StatRun, error) {
	readable := false
	for _, b := range m {
		r, ok := b.(Reader)
		if !ok {
			continue
		}
		readable = true
		run, err := r.LoadRun(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return run, err
	}
	if !readable {
		return nil, ErrNotReadable
	}
	return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
}

// RecentRuns lists runs from the first backend that can list them.
func (m Multi) RecentRuns(limit int) ([]core.StatRun, error) {
	for _, b := range m {
		if l, ok := b.(Lister); ok {
			return l.RecentRuns(limit)
		}
	}
	return nil, ErrNotReadable
}
