// pkg/core/attachment.go
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RangeScale is a damage-range multiplier. The table stores it either as a
// single number or as one number per breakpoint.
type RangeScale struct {
	Value         *float64
	PerBreakpoint []float64
}

// IsArray reports whether the scale was given per breakpoint.
func (s RangeScale) IsArray() bool {
	return s.PerBreakpoint != nil
}

// Scalar returns the single scale value. For a per-breakpoint scale the first
// entry is used. An unset scale is neutral.
func (s RangeScale) Scalar() float64 {
	if s.Value != nil {
		return *s.Value
	}
	if len(s.PerBreakpoint) > 0 {
		return s.PerBreakpoint[0]
	}
	return 1
}

// At returns the scale for breakpoint i.
func (s RangeScale) At(i int) float64 {
	if s.PerBreakpoint == nil {
		return s.Scalar()
	}
	if i < 0 || i >= len(s.PerBreakpoint) {
		return 1
	}
	return s.PerBreakpoint[i]
}

func (s RangeScale) MarshalJSON() ([]byte, error) {
	switch {
	case s.PerBreakpoint != nil:
		return json.Marshal(s.PerBreakpoint)
	case s.Value != nil:
		return json.Marshal(*s.Value)
	default:
		return []byte("null"), nil
	}
}

func (s *RangeScale) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = RangeScale{}
		return nil
	}
	if data[0] == '[' {
		var arr []float64
		if err := json.Unmarshal(data, &arr); err != nil {
			return fmt.Errorf("range scale array: %w", err)
		}
		*s = RangeScale{PerBreakpoint: arr}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("range scale: %w", err)
	}
	*s = RangeScale{Value: &v}
	return nil
}

func (s *RangeScale) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var arr []float64
		if err := value.Decode(&arr); err != nil {
			return fmt.Errorf("range scale array: %w", err)
		}
		*s = RangeScale{PerBreakpoint: arr}
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*s = RangeScale{}
			return nil
		}
		var v float64
		if err := value.Decode(&v); err != nil {
			return fmt.Errorf("range scale: %w", err)
		}
		*s = RangeScale{Value: &v}
	default:
		return fmt.Errorf("range scale: unsupported yaml node kind %d", value.Kind)
	}
	return nil
}

// AttachmentModifier is one row of the attachment table.
type AttachmentModifier struct {
	ID               string     `json:"-" yaml:"-"`
	DamageRangeScale RangeScale `json:"damageRangeScale" yaml:"damageRangeScale"`
}

// AttachmentTable indexes attachment modifiers by attachment identifier.
type AttachmentTable map[string]AttachmentModifier

// AttachmentSet holds the identifiers of the attachments currently equipped.
type AttachmentSet map[string]struct{}

// NewAttachmentSet builds a set from ids, ignoring blanks.
func NewAttachmentSet(ids ...string) AttachmentSet {
	set := make(AttachmentSet, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is equipped.
func (s AttachmentSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// HasSuppressor reports whether any equipped attachment is a suppressor.
func (s AttachmentSet) HasSuppressor() bool {
	for id := range s {
		if IsSuppressor(id) {
			return true
		}
	}
	return false
}

// With returns a copy of the set with id added.
func (s AttachmentSet) With(id string) AttachmentSet {
	out := make(AttachmentSet, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	if id = strings.TrimSpace(id); id != "" {
		out[id] = struct{}{}
	}
	return out
}

// Without returns a copy of the set with id removed.
func (s AttachmentSet) Without(id string) AttachmentSet {
	out := make(AttachmentSet, len(s))
	for k := range s {
		if k != id {
			out[k] = struct{}{}
		}
	}
	return out
}

// IDs returns the equipped ids in sorted order.
func (s AttachmentSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsSuppressor reports whether an attachment id names a suppressor.
func IsSuppressor(id string) bool {
	return strings.Contains(strings.ToLower(id), "suppress")
}
