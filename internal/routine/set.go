package routine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/harunnryd/shukan/internal/daytime"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
)

// Set is the ordered collection of routines. Newest routines come first.
// It is not safe for concurrent use; the engine owns it from a single goroutine.
type Set struct {
	items []Routine
}

func NewSet(routines []Routine) *Set {
	s := &Set{items: make([]Routine, 0, len(routines))}
	for _, r := range routines {
		if r.History == nil {
			r.History = make(map[daytime.Date]bool)
		}
		s.items = append(s.items, r)
	}
	return s
}

func (s *Set) Len() int {
	return len(s.items)
}

// Get returns a copy of the routine with id.
func (s *Set) Get(id string) (Routine, error) {
	i := s.index(id)
	if i < 0 {
		return Routine{}, shukanErrors.NotFound(fmt.Sprintf("routine %s", id))
	}
	return s.items[i].clone(), nil
}

// Add inserts a new routine at the front.
func (s *Set) Add(r Routine) error {
	if r.ID == "" {
		return shukanErrors.InvalidInput("routine id is empty")
	}
	if s.index(r.ID) >= 0 {
		return shukanErrors.Conflict(fmt.Sprintf("routine %s already exists", r.ID))
	}
	if r.History == nil {
		r.History = make(map[daytime.Date]bool)
	}
	s.items = slices.Insert(s.items, 0, r)
	return nil
}

// Replace swaps in an updated routine with the same id.
func (s *Set) Replace(r Routine) error {
	i := s.index(r.ID)
	if i < 0 {
		return shukanErrors.NotFound(fmt.Sprintf("routine %s", r.ID))
	}
	s.items[i] = r
	return nil
}

func (s *Set) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return shukanErrors.NotFound(fmt.Sprintf("routine %s", id))
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

// List returns copies of all routines, optionally filtered by a
// case-insensitive title substring.
func (s *Set) List(query string) []Routine {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Routine, 0, len(s.items))
	for _, r := range s.items {
		if q != "" && !strings.Contains(strings.ToLower(r.Title), q) {
			continue
		}
		out = append(out, r.clone())
	}
	return out
}

// RefreshDay updates every cached completedToday flag and reports whether any changed.
func (s *Set) RefreshDay(today daytime.Date) bool {
	changed := false
	for i := range s.items {
		if s.items[i].RefreshDay(today) {
			changed = true
		}
	}
	return changed
}

func (s *Set) CompletedToday() int {
	n := 0
	for _, r := range s.items {
		if r.CompletedToday {
			n++
		}
	}
	return n
}

func (s *Set) index(id string) int {
	return slices.IndexFunc(s.items, func(r Routine) bool { return r.ID == id })
}
