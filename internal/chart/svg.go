package chart

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/weaponcharts/weaponcharts/pkg/core"
)

const (
	svgWidth   = 480
	svgHeight  = 320
	svgMargin  = 40
	svgBarFill = "rgba(255,99,132,0.2)"
	svgBarLine = "rgba(255,99,132,1)"
)

// SVGRenderer writes one standalone SVG bar chart per weapon into a directory.
type SVGRenderer struct {
	dir  string
	unit string

	mu    sync.Mutex
	taken map[string]bool // file names of live charts
}

// NewSVGRenderer creates a renderer writing into dir.
func NewSVGRenderer(dir, unit string) (*SVGRenderer, error) {
	if !ValidUnit(unit) {
		return nil, fmt.Errorf("unknown chart unit %q", unit)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &SVGRenderer{dir: dir, unit: unit, taken: make(map[string]bool)}, nil
}

func (s *SVGRenderer) Create(stats core.WeaponStats) (Handle, error) {
	name := s.claim(stats.WeaponID)
	p := filepath.Join(s.dir, name)
	if err := s.write(p, stats); err != nil {
		s.release(name)
		return "", err
	}
	return Handle(p), nil
}

func (s *SVGRenderer) Update(h Handle, stats core.WeaponStats) error {
	return s.write(string(h), stats)
}

func (s *SVGRenderer) Remove(h Handle) error {
	if err := os.Remove(string(h)); err != nil && !os.IsNotExist(err) {
		return err
	}
	s.release(filepath.Base(string(h)))
	return nil
}

// claim reserves an unused file name for a weapon. Identifiers that map to
// the same safe name get a numeric suffix.
func (s *SVGRenderer) claim(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := fileName(id)
	name := base + ".svg"
	for n := 2; s.taken[name]; n++ {
		name = fmt.Sprintf("%s_%d.svg", base, n)
	}
	s.taken[name] = true
	return name
}

func (s *SVGRenderer) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.taken, name)
}

// Flush is a no-op; every chart is written as soon as it changes.
func (s *SVGRenderer) Flush() error {
	return nil
}

func (s *SVGRenderer) write(path string, stats core.WeaponStats) error {
	return os.WriteFile(path, s.draw(stats), 0644)
}

func (s *SVGRenderer) draw(stats core.WeaponStats) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		svgWidth, svgHeight, svgWidth, svgHeight)
	fmt.Fprintf(&b, `<title>%s</title>`+"\n", html.EscapeString(stats.Name))
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="14" text-anchor="middle">%s</text>`+"\n",
		svgWidth/2, svgMargin/2, html.EscapeString(stats.Name))

	maxRange := 0.0
	for _, bp := range stats.Breakpoints {
		if v := bp.Range.In(s.unit); v > maxRange {
			maxRange = v
		}
	}

	plotW := float64(svgWidth - 2*svgMargin)
	plotH := float64(svgHeight - 2*svgMargin)
	baseY := float64(svgHeight - svgMargin)

	fmt.Fprintf(&b, `<line x1="%d" y1="%.0f" x2="%d" y2="%.0f" stroke="#333"/>`+"\n",
		svgMargin, baseY, svgWidth-svgMargin, baseY)

	n := len(stats.Breakpoints)
	if n > 0 {
		slot := plotW / float64(n)
		barW := slot * 0.6
		for i, bp := range stats.Breakpoints {
			v := bp.Range.In(s.unit)
			h := 0.0
			if maxRange > 0 {
				h = v / maxRange * plotH
			}
			x := float64(svgMargin) + float64(i)*slot + (slot-barW)/2
			fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="%s"/>`+"\n",
				x, baseY-h, barW, h, svgBarFill, svgBarLine)
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="11" text-anchor="middle">%s</text>`+"\n",
				x+barW/2, baseY-h-4, formatValue(v))
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="11" text-anchor="middle">%d</text>`+"\n",
				x+barW/2, baseY+14, bp.HitsToKill)
		}
	}

	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="11" text-anchor="middle">hits to kill / range (%s)</text>`+"\n",
		svgWidth/2, svgHeight-8, unitLabels[s.unit])
	b.WriteString("</svg>\n")
	return b.Bytes()
}

func formatValue(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}

// fileName maps a weapon identifier onto a safe file name.
func fileName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
	if name == "" || strings.Trim(name, ".") == "" {
		return "weapon"
	}
	return name
}
