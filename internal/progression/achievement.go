package progression

import (
	"github.com/harunnryd/shukan/internal/daytime"
)

// Kind selects which figure of a Context an achievement is measured on.
type Kind string

const (
	KindRoutineStreak     Kind = "routine_streak"
	KindSessionsCompleted Kind = "sessions_completed"
	KindCompletedToday    Kind = "completed_today"
)

// Achievement is one entry of the static milestone table.
type Achievement struct {
	ID        string
	Label     string
	Kind      Kind
	Threshold int
}

// Context is the snapshot achievements are evaluated against, taken after
// the completion has been applied.
type Context struct {
	RoutineStreak          int
	CompletedToday         int
	TotalSessionsCompleted int
}

var Achievements = []Achievement{
	{ID: "STREAK_7", Label: "7-day streak", Kind: KindRoutineStreak, Threshold: 7},
	{ID: "STREAK_30", Label: "30-day streak", Kind: KindRoutineStreak, Threshold: 30},
	{ID: "STREAK_100", Label: "100-day streak", Kind: KindRoutineStreak, Threshold: 100},
	{ID: "FIRST_SESSION", Label: "First session", Kind: KindSessionsCompleted, Threshold: 1},
	{ID: "FIVE_TODAY", Label: "Five today", Kind: KindCompletedToday, Threshold: 5},
}

func (a Achievement) Satisfied(c Context) bool {
	switch a.Kind {
	case KindRoutineStreak:
		return c.RoutineStreak >= a.Threshold
	case KindSessionsCompleted:
		return c.TotalSessionsCompleted >= a.Threshold
	case KindCompletedToday:
		return c.CompletedToday >= a.Threshold
	default:
		return false
	}
}

// Unlock records every achievement newly satisfied by c and returns them in
// table order. Existing unlocks are never overwritten.
func (s *State) Unlock(c Context, today daytime.Date) []Unlock {
	if s.Achievements == nil {
		s.Achievements = make(map[string]Unlock)
	}
	var unlocked []Unlock
	for _, a := range Achievements {
		if _, ok := s.Achievements[a.ID]; ok || !a.Satisfied(c) {
			continue
		}
		u := Unlock{ID: a.ID, Label: a.Label, Date: today}
		s.Achievements[a.ID] = u
		unlocked = append(unlocked, u)
	}
	return unlocked
}
