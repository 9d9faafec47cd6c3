package routine

import (
	"github.com/harunnryd/shukan/internal/daytime"
)

// RoutineCompleted is emitted once per routine per day, when a focus session
// on it reaches zero.
type RoutineCompleted struct {
	RoutineID  string       `json:"routine_id"`
	DurationMs int64        `json:"duration_ms"`
	Date       daytime.Date `json:"date"`
}

// Complete applies the streak rule for a completion on date. A routine already
// completed that day is returned unchanged with a nil event, so any number of
// completion triggers yields at most one streak increment per day.
func Complete(r Routine, date daytime.Date, durationMs int64) (Routine, *RoutineCompleted) {
	if r.CompletedToday && r.History[date] {
		return r, nil
	}

	next := r.clone()
	if next.LastCompletedDate.IsZero() {
		next.Streak = 1
	} else {
		switch d := daytime.DayDistance(date, next.LastCompletedDate); {
		case d == 0:
		case d == 1:
			next.Streak++
		case d == 2 && next.ShieldCount > 0:
			// one shield bridges exactly one missed day
			next.Streak++
			next.ShieldCount--
		default:
			next.Streak = 1
		}
	}

	next.LastCompletedDate = date
	next.CompletedToday = true
	next.History[date] = true

	return next, &RoutineCompleted{
		RoutineID:  next.ID,
		DurationMs: durationMs,
		Date:       date,
	}
}
