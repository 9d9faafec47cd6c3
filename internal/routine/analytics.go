package routine

import (
	"github.com/harunnryd/shukan/internal/daytime"
)

// Analytics summarises today's progress across all routines.
type Analytics struct {
	Total          int `json:"total"`
	CompletedToday int `json:"completed_today"`
	LongestStreak  int `json:"longest_streak"`
	MinutesToday   int `json:"minutes_today"`
}

// WeekRow is one routine's completion marks over a run of days.
type WeekRow struct {
	RoutineID string `json:"routine_id"`
	Title     string `json:"title"`
	Emoji     string `json:"emoji"`
	Streak    int    `json:"streak"`
	Done      []bool `json:"done"`
}

// Week is the completion matrix for the last N days.
type Week struct {
	Days []daytime.Date `json:"days"`
	Rows []WeekRow      `json:"rows"`
}

func (s *Set) Analytics() Analytics {
	a := Analytics{Total: len(s.items)}
	for _, r := range s.items {
		if r.CompletedToday {
			a.CompletedToday++
			a.MinutesToday += r.DurationMinutes
		}
		a.LongestStreak = max(a.LongestStreak, r.Streak)
	}
	return a
}

func (s *Set) Week(today daytime.Date, days int) Week {
	w := Week{Days: daytime.LastNDays(today, days)}
	for _, r := range s.items {
		row := WeekRow{
			RoutineID: r.ID,
			Title:     r.Title,
			Emoji:     r.Emoji,
			Streak:    r.Streak,
			Done:      make([]bool, len(w.Days)),
		}
		for i, d := range w.Days {
			row.Done[i] = r.History[d]
		}
		w.Rows = append(w.Rows, row)
	}
	return w
}
