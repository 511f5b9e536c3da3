// Package selection implements a capacity-bounded multi-select over a fixed
// candidate list. It backs both the roster builders and the in-round pick
// phases.
package selection

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/deckbp/internal/apperrors"
)

var (
	ErrNotCandidate = apperrors.New(apperrors.KindInvalidState, "item is not a candidate")
	ErrIncomplete   = apperrors.New(apperrors.KindInvalidState, "selection is incomplete")
	ErrBounds       = apperrors.New(apperrors.KindInvalidState, "invalid selection bounds")
)

// Outcome is the result of a Toggle.
type Outcome int

const (
	Selected Outcome = iota
	Deselected
	// Rejected means the set was at capacity; nothing changed.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Selected:
		return "selected"
	case Deselected:
		return "deselected"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Set holds between Min and Max distinct candidates in selection order.
type Set[T comparable] struct {
	candidates []T
	selected   []T
	min, max   int
}

// New returns an empty set. Candidates keep their order; duplicates are dropped.
func New[T comparable](candidates []T, minSelect, maxSelect int) (*Set[T], error) {
	if minSelect < 0 || maxSelect < minSelect {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrBounds, minSelect, maxSelect)
	}
	c := make([]T, 0, len(candidates))
	for _, item := range candidates {
		if !slices.Contains(c, item) {
			c = append(c, item)
		}
	}
	return &Set[T]{candidates: c, min: minSelect, max: maxSelect}, nil
}

func (s *Set[T]) Min() int { return s.min }
func (s *Set[T]) Max() int { return s.max }
func (s *Set[T]) Len() int { return len(s.selected) }

// Candidates returns a copy of the candidate list.
func (s *Set[T]) Candidates() []T { return slices.Clone(s.candidates) }

// Selected returns a copy of the selection in selection order.
func (s *Set[T]) Selected() []T { return slices.Clone(s.selected) }

func (s *Set[T]) IsCandidate(item T) bool { return slices.Contains(s.candidates, item) }

func (s *Set[T]) Contains(item T) bool { return slices.Contains(s.selected, item) }

// Full reports whether another item would be rejected.
func (s *Set[T]) Full() bool { return len(s.selected) >= s.max }

// Toggle deselects item if selected, otherwise selects it when below
// capacity. At capacity it returns Rejected and leaves the set unchanged.
func (s *Set[T]) Toggle(item T) (Outcome, error) {
	if !s.IsCandidate(item) {
		return Rejected, ErrNotCandidate
	}
	if i := slices.Index(s.selected, item); i >= 0 {
		s.selected = slices.Delete(s.selected, i, i+1)
		return Deselected, nil
	}
	if s.Full() {
		return Rejected, nil
	}
	s.selected = append(s.selected, item)
	return Selected, nil
}

// IsComplete reports min <= count <= max.
func (s *Set[T]) IsComplete() bool {
	n := len(s.selected)
	return s.min <= n && n <= s.max
}

// Finalize returns the selection in order. The set must be complete.
func (s *Set[T]) Finalize() ([]T, error) {
	if !s.IsComplete() {
		return nil, fmt.Errorf("%w: %d selected, want %d..%d", ErrIncomplete, len(s.selected), s.min, s.max)
	}
	return s.Selected(), nil
}

// Clear drops the selection, keeping candidates and bounds.
func (s *Set[T]) Clear() { s.selected = nil }

// Clone returns an independent copy.
func (s *Set[T]) Clone() *Set[T] {
	if s == nil {
		return nil
	}
	return &Set[T]{
		candidates: slices.Clone(s.candidates),
		selected:   slices.Clone(s.selected),
		min:        s.min,
		max:        s.max,
	}
}
