package deck

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// FriendlyRosterSize is the fixed size of the friendly roster.
const FriendlyRosterSize = 6

// Opponent roster bounds.
const (
	MinOpponentRoster = 4
	MaxOpponentRoster = 6
)

// Record is one deck as configured on disk. Names are display strings and
// are not unique.
type Record struct {
	Name     string `json:"name" yaml:"name"`
	IconPath string `json:"icon_path" yaml:"icon_path"`
}

// Pool is the ordered, read-only deck pool loaded at startup.
type Pool []Record

// Validate reports every record that lacks a name or an icon path.
func Validate(records []Record) error {
	var err error
	for i, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			err = multierr.Append(err, fmt.Errorf("deck %d: missing name", i))
		}
		if strings.TrimSpace(r.IconPath) == "" {
			err = multierr.Append(err, fmt.Errorf("deck %d: missing icon_path", i))
		}
	}
	return err
}

// Pick returns the records at the given pool indices, in the order given.
// Each index may appear once.
func (p Pool) Pick(indices []int) ([]Record, error) {
	out := make([]Record, 0, len(indices))
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(p) {
			return nil, fmt.Errorf("pool index %d out of range [0,%d)", i, len(p))
		}
		if seen[i] {
			return nil, fmt.Errorf("pool index %d given twice", i)
		}
		seen[i] = true
		out = append(out, p[i])
	}
	return out, nil
}

// Indices returns 0..len(p)-1.
func (p Pool) Indices() []int {
	out := make([]int, len(p))
	for i := range out {
		out[i] = i
	}
	return out
}

// Clone copies records so callers cannot alias a roster.
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
