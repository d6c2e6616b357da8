package session

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/weaponcharts/weaponcharts/internal/dispatcher"
	"github.com/weaponcharts/weaponcharts/internal/filter"
	"github.com/weaponcharts/weaponcharts/pkg/core"
)

// RecordQueueSize is the buffer of the async "record" command.
const RecordQueueSize = 64

// RecentRunsLimit is how many runs "runs" lists without an argument.
const RecentRunsLimit = 10

// Register wires the session commands into d. Recording is moved onto a
// buffered "record" command so storage latency does not hold up rendering.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register("game", func(e dispatcher.Event) (any, error) {
		game, err := arg(e, "game")
		if err != nil {
			return nil, err
		}
		return summarize(s.SelectGame(context.Background(), game))
	}, dispatcher.Logged())

	d.Register("category", func(e dispatcher.Event) (any, error) {
		category, err := arg(e, "category")
		if err != nil {
			return nil, err
		}
		return summarize(s.SelectCategory(category))
	}, dispatcher.Logged())

	d.Register("suppressor", func(e dispatcher.Event) (any, error) {
		v, err := arg(e, "suppressor")
		if err != nil {
			return nil, err
		}
		on, err := parseSwitch(v)
		if err != nil {
			return nil, err
		}
		return summarize(s.SetSuppressed(on))
	}, dispatcher.Logged())

	d.Register("attach", func(e dispatcher.Event) (any, error) {
		id, err := arg(e, "attach")
		if err != nil {
			return nil, err
		}
		return summarize(s.Attach(id))
	}, dispatcher.Logged())

	d.Register("detach", func(e dispatcher.Event) (any, error) {
		id, err := arg(e, "detach")
		if err != nil {
			return nil, err
		}
		return summarize(s.Detach(id))
	}, dispatcher.Logged())

	d.Register("refresh", func(e dispatcher.Event) (any, error) {
		return summarize(s.Refresh(context.Background()))
	}, dispatcher.Logged())

	d.Register("show", func(e dispatcher.Event) (any, error) {
		return s.Show(), nil
	})

	d.Register("games", func(e dispatcher.Event) (any, error) {
		return strings.Join(s.Games(), " "), nil
	})

	d.Register("categories", func(e dispatcher.Event) (any, error) {
		tables := s.ctx.Tables()
		if tables == nil {
			return nil, ErrNoGame
		}
		return strings.Join(append([]string{filter.AllCategories}, filter.Categories(tables.Groups)...), " "), nil
	})

	d.Register("runs", func(e dispatcher.Event) (any, error) {
		limit := RecentRunsLimit
		if len(e.Args) > 0 {
			n, err := strconv.Atoi(strings.TrimSpace(e.Args[0]))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("runs: expected a positive count, got %q", e.Args[0])
			}
			limit = n
		}
		runs, err := s.RecentRuns(limit)
		if err != nil {
			return nil, fmt.Errorf("runs: %w", err)
		}
		return listRuns(runs), nil
	})

	d.Register("load", func(e dispatcher.Event) (any, error) {
		id, err := arg(e, "load")
		if err != nil {
			return nil, err
		}
		run, err := s.LoadRun(id)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		return s.format(run), nil
	}, dispatcher.Logged())

	d.Register("record", func(e dispatcher.Event) (any, error) {
		run, ok := e.Payload.(*core.StatRun)
		if !ok {
			return nil, fmt.Errorf("record: unexpected payload %T", e.Payload)
		}
		return nil, s.backend.RecordRun(run)
	}, dispatcher.Buffered(RecordQueueSize), dispatcher.Blocking())

	s.record = func(run *core.StatRun) error {
		_, err := d.Dispatch(dispatcher.Event{Command: "record", Payload: run})
		return err
	}
}

func arg(e dispatcher.Event, command string) (string, error) {
	if len(e.Args) == 0 || strings.TrimSpace(e.Args[0]) == "" {
		return "", fmt.Errorf("%s: missing argument", command)
	}
	return strings.TrimSpace(e.Args[0]), nil
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", v)
	}
	return on, nil
}

func summarize(run *core.StatRun, err error) (any, error) {
	if run == nil {
		return nil, err
	}
	charted := 0
	for _, w := range run.Weapons {
		if len(w.Breakpoints) > 0 {
			charted++
		}
	}
	return fmt.Sprintf("%s: %d weapons charted", run.ID, charted), err
}

// listRuns prints one "id time game/category [attachments]" line per run.
func listRuns(runs []core.StatRun) string {
	if len(runs) == 0 {
		return "no recorded runs"
	}
	var b strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&b, "%s %s %s/%s [%s]\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Game, r.Category, strings.Join(r.Attachments, ","))
	}
	return b.String()
}

func formatRange(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
