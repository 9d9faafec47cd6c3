// Package session implements the focus countdown bound to a single routine.
package session

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

const minute = int64(time.Minute / time.Millisecond)

// Session is one focus countdown. RemainingMs stays within [0, TotalMs];
// AddMinute raises both so the total remains the ceiling. DurationMs is the
// planned length fixed at start and is what a completion credits.
type Session struct {
	ID          string    `json:"id"`
	RoutineID   string    `json:"routine_id"`
	Title       string    `json:"title"`
	DurationMs  int64     `json:"duration_ms"`
	TotalMs     int64     `json:"total_ms"`
	RemainingMs int64     `json:"remaining_ms"`
	Paused      bool      `json:"paused"`
	State       State     `json:"state"`
	StartedAt   time.Time `json:"started_at"`
}

// Start creates a running session of the given length.
func Start(routineID, title string, duration time.Duration, now time.Time) *Session {
	total := max(minute, duration.Milliseconds())
	return &Session{
		ID:          ulid.Make().String(),
		RoutineID:   routineID,
		Title:       title,
		DurationMs:  total,
		TotalMs:     total,
		RemainingMs: total,
		State:       StateRunning,
		StartedAt:   now,
	}
}

// Active reports whether the session still counts down or waits paused.
func (s *Session) Active() bool {
	return s.State == StateRunning || s.State == StatePaused
}

// Tick consumes step from the remaining time while running. It returns true
// exactly once, on the tick that brings the clock to zero.
func (s *Session) Tick(step time.Duration) bool {
	if s.State != StateRunning {
		return false
	}
	s.RemainingMs = max(0, s.RemainingMs-step.Milliseconds())
	return s.complete()
}

// PauseToggle flips between running and paused.
func (s *Session) PauseToggle() {
	switch s.State {
	case StateRunning:
		s.State = StatePaused
		s.Paused = true
	case StatePaused:
		s.State = StateRunning
		s.Paused = false
	}
}

// AddMinute extends an active session by one minute. The credited
// DurationMs is left alone.
func (s *Session) AddMinute() {
	if !s.Active() {
		return
	}
	s.RemainingMs += minute
	s.TotalMs += minute
}

// FinishEarly drops the remaining time to zero. It returns true if this
// call completed the session.
func (s *Session) FinishEarly() bool {
	if !s.Active() {
		return false
	}
	s.RemainingMs = 0
	return s.complete()
}

// Cancel discards the session without completing it.
func (s *Session) Cancel() {
	if s.Active() {
		s.State = StateCancelled
	}
}

// Elapsed is the focus time actually counted down.
func (s *Session) Elapsed() time.Duration {
	return time.Duration(s.TotalMs-s.RemainingMs) * time.Millisecond
}

func (s *Session) Remaining() time.Duration {
	return time.Duration(s.RemainingMs) * time.Millisecond
}

func (s *Session) complete() bool {
	if s.RemainingMs > 0 {
		return false
	}
	s.State = StateCompleted
	s.Paused = false
	return true
}
