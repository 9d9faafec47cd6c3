package routine

import (
	"github.com/harunnryd/shukan/internal/daytime"
)

// Examples returns the two starter routines a fresh workspace begins with.
// The histories are seeded relative to today so the week view is not empty.
func Examples(today daytime.Date) []Routine {
	reading := mustNew("Read", "📖", "07:30", 20)
	reading.Streak = 2
	reading.LastCompletedDate = today.AddDays(-1)
	reading.History = seedHistory(today, []bool{true, false, true, false, true, true, false})

	water := mustNew("Glass of lemon water", "🍋", "08:00", 5)
	water.History = seedHistory(today, []bool{true, false, false, false, false, false, false})

	return []Routine{reading, water}
}

// seedHistory maps marks onto the last len(marks) days, oldest first.
func seedHistory(today daytime.Date, marks []bool) map[daytime.Date]bool {
	h := make(map[daytime.Date]bool)
	for i, d := range daytime.LastNDays(today, len(marks)) {
		if marks[i] {
			h[d] = true
		}
	}
	return h
}

func mustNew(title, emoji, at string, minutes int) Routine {
	r, err := New(Fields{Title: &title, Emoji: &emoji, ScheduledTime: &at, DurationMinutes: &minutes})
	if err != nil {
		panic(err)
	}
	return r
}
