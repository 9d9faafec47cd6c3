// Package routine holds tracked habits and the rules that move their streaks.
package routine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"

	"github.com/oklog/ulid/v2"
)

const (
	DefaultTitle         = "New routine"
	DefaultEmoji         = "📖"
	DefaultScheduledTime = "08:00"
	DefaultDuration      = 20
)

// Routine is a tracked habit. Streak fields change only through Complete and
// AddShield; Edit touches presentation fields only.
type Routine struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Emoji             string                `json:"emoji"`
	ScheduledTime     string                `json:"scheduled_time"`
	DurationMinutes   int                   `json:"duration_minutes"`
	Streak            int                   `json:"streak"`
	LastCompletedDate daytime.Date          `json:"last_completed_date"`
	CompletedToday    bool                  `json:"completed_today"`
	ShieldCount       int                   `json:"shield_count"`
	History           map[daytime.Date]bool `json:"history"`
}

// Fields are the user-editable parts of a routine. Nil pointers leave the
// current value in place.
type Fields struct {
	Title           *string `json:"title,omitempty"`
	Emoji           *string `json:"emoji,omitempty"`
	ScheduledTime   *string `json:"scheduled_time,omitempty"`
	DurationMinutes *int    `json:"duration_minutes,omitempty"`
}

// New creates a routine with a fresh ULID and an empty streak.
func New(f Fields) (Routine, error) {
	r := Routine{
		ID:              ulid.Make().String(),
		Title:           DefaultTitle,
		Emoji:           DefaultEmoji,
		ScheduledTime:   DefaultScheduledTime,
		DurationMinutes: DefaultDuration,
		History:         make(map[daytime.Date]bool),
	}
	if err := r.Edit(f); err != nil {
		return Routine{}, err
	}
	return r, nil
}

// Edit applies presentation changes. Durations below one minute clamp to one.
func (r *Routine) Edit(f Fields) error {
	if f.ScheduledTime != nil {
		normalized, err := NormalizeTime(*f.ScheduledTime)
		if err != nil {
			return err
		}
		r.ScheduledTime = normalized
	}
	if f.Title != nil {
		if title := strings.TrimSpace(*f.Title); title != "" {
			r.Title = title
		} else {
			r.Title = DefaultTitle
		}
	}
	if f.Emoji != nil {
		if emoji := strings.TrimSpace(*f.Emoji); emoji != "" {
			r.Emoji = emoji
		} else {
			r.Emoji = DefaultEmoji
		}
	}
	if f.DurationMinutes != nil {
		r.DurationMinutes = max(1, *f.DurationMinutes)
	}
	return nil
}

// Duration is the full focus time a session on this routine runs for.
func (r Routine) Duration() time.Duration {
	return time.Duration(max(1, r.DurationMinutes)) * time.Minute
}

// Clock returns the scheduled hour and minute.
func (r Routine) Clock() (hour, minute int) {
	hour, minute, _ = parseHHMM(r.ScheduledTime)
	return hour, minute
}

// RefreshDay recomputes the cached completedToday flag for today.
// It reports whether the flag changed.
func (r *Routine) RefreshDay(today daytime.Date) bool {
	done := r.History[today]
	if r.CompletedToday == done {
		return false
	}
	r.CompletedToday = done
	return true
}

// AddShield banks one grace token on this routine.
func (r *Routine) AddShield() {
	r.ShieldCount++
}

// DueAt reports whether now lies within margin of the scheduled time today.
func (r Routine) DueAt(now time.Time, margin time.Duration) bool {
	hour, minute, err := parseHHMM(r.ScheduledTime)
	if err != nil {
		return false
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return diff <= margin
}

func (r Routine) clone() Routine {
	c := r
	c.History = make(map[daytime.Date]bool, len(r.History))
	for d, v := range r.History {
		c.History[d] = v
	}
	return c
}

// NormalizeTime validates an "H:MM" or "HH:MM" string and returns "HH:MM".
func NormalizeTime(s string) (string, error) {
	hour, minute, err := parseHHMM(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func parseHHMM(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, shukanErrors.InvalidInput(fmt.Sprintf("scheduled time %q must be HH:MM", s))
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, shukanErrors.InvalidInput(fmt.Sprintf("scheduled time %q has an invalid hour", s))
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 || len(mm) != 2 {
		return 0, 0, shukanErrors.InvalidInput(fmt.Sprintf("scheduled time %q has an invalid minute", s))
	}
	return hour, minute, nil
}
