package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/quest"
	"github.com/harunnryd/shukan/internal/routine"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
)

type TableFormatter struct {
	headerStyle  lipgloss.Style
	labelStyle   lipgloss.Style
	cellStyle    lipgloss.Style
	oddRowStyle  lipgloss.Style
	evenRowStyle lipgloss.Style
	borderStyle  lipgloss.Style
	doneStyle    lipgloss.Style
}

func NewTableFormatter() *TableFormatter {
	teal := lipgloss.Color("#86b3b8")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")
	green := lipgloss.Color("42")

	return &TableFormatter{
		headerStyle: lipgloss.NewStyle().
			Foreground(teal).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 1),
		labelStyle: lipgloss.NewStyle().
			Foreground(teal).
			Bold(true).
			Padding(0, 1),
		cellStyle: lipgloss.NewStyle().
			Padding(0, 1),
		oddRowStyle: lipgloss.NewStyle().
			Foreground(gray).
			Padding(0, 1),
		evenRowStyle: lipgloss.NewStyle().
			Foreground(lightGray).
			Padding(0, 1),
		borderStyle: lipgloss.NewStyle().
			Foreground(teal),
		doneStyle: lipgloss.NewStyle().
			Foreground(green).
			Padding(0, 1).
			Align(lipgloss.Center),
	}
}

func (f *TableFormatter) list(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case row%2 == 0:
				return f.evenRowStyle
			default:
				return f.oddRowStyle
			}
		}).
		Headers(headers...)
}

func (f *TableFormatter) card() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return f.labelStyle
			}
			return f.cellStyle
		})
}

func (f *TableFormatter) Routines(routines []routine.Routine) (string, error) {
	if len(routines) == 0 {
		return "No routines yet", nil
	}

	t := f.list("ID", "Routine", "Time", "Min", "Streak", "Today", "Shields")
	for _, r := range routines {
		at := r.ScheduledTime
		if at == "" {
			at = "-"
		}
		t.Row(
			r.ID,
			truncateString(strings.TrimSpace(r.Emoji+" "+r.Title), 28),
			at,
			strconv.Itoa(r.DurationMinutes),
			streakLabel(r.Streak),
			check(r.CompletedToday),
			strconv.Itoa(r.ShieldCount),
		)
	}
	return t.String(), nil
}

// Week renders one column per day, oldest first.
func (f *TableFormatter) Week(w routine.Week) (string, error) {
	if len(w.Rows) == 0 {
		return "No routines yet", nil
	}

	headers := []string{"Routine"}
	for _, d := range w.Days {
		headers = append(headers, dayLabel(d))
	}
	headers = append(headers, "Streak")

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(f.borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return f.headerStyle
			case col > 0 && col <= len(w.Days):
				return f.doneStyle
			default:
				return f.cellStyle
			}
		}).
		Headers(headers...)

	for _, row := range w.Rows {
		cells := []string{truncateString(strings.TrimSpace(row.Emoji+" "+row.Title), 24)}
		for _, done := range row.Done {
			cells = append(cells, check(done))
		}
		cells = append(cells, streakLabel(row.Streak))
		t.Row(cells...)
	}
	return t.String(), nil
}

func (f *TableFormatter) Quests(board []quest.Progress) (string, error) {
	if len(board) == 0 {
		return "No quests today", nil
	}

	t := f.list("ID", "Quest", "Progress", "Reward", "Status")
	for _, q := range board {
		status := "in progress"
		switch {
		case q.Claimed:
			status = "claimed"
		case q.Done:
			status = "ready to claim"
		}
		t.Row(q.ID, q.Label, fmt.Sprintf("%d/%d", min(q.Progress, q.Target), q.Target), q.Reward, status)
	}
	return t.String(), nil
}

func (f *TableFormatter) Rewards(rewards []progression.Reward) (string, error) {
	if len(rewards) == 0 {
		return "No rewards waiting", nil
	}

	t := f.list("#", "Kind", "Reward", "Rolled")
	for i, r := range rewards {
		t.Row(strconv.Itoa(i+1), string(r.Kind), truncateString(r.Text, 48), r.RolledAt.Local().Format("Jan 2 15:04"))
	}
	return t.String(), nil
}

func (f *TableFormatter) Achievements(unlocks []progression.Unlock) (string, error) {
	if len(unlocks) == 0 {
		return "No achievements yet", nil
	}

	t := f.list("ID", "Achievement", "Unlocked")
	for _, u := range unlocks {
		t.Row(u.ID, u.Label, u.Date.String())
	}
	return t.String(), nil
}

func (f *TableFormatter) Analytics(a engine.Analytics) (string, error) {
	t := f.card()
	t.Row("Level", fmt.Sprintf("%d (%d/%d XP)", a.Level, a.LevelProgress, a.LevelSpan))
	t.Row("Experience", strconv.Itoa(a.Experience))
	t.Row("Gems", strconv.Itoa(a.Gems))
	t.Row("Shields", strconv.Itoa(a.Shields))
	t.Row("Combo", strconv.Itoa(a.ComboCount))
	t.Row("Routines", fmt.Sprintf("%d/%d done today", a.CompletedToday, a.Total))
	t.Row("Longest streak", streakLabel(a.LongestStreak))
	t.Row("Focus today", fmt.Sprintf("%d min", a.FocusMinutesToday))
	t.Row("Sessions today", strconv.Itoa(a.SessionsStartedToday))
	t.Row("Sessions total", strconv.Itoa(a.TotalSessionsCompleted))
	t.Row("Achievements", strconv.Itoa(a.Achievements))
	t.Row("Pending rewards", strconv.Itoa(a.PendingRewards))
	return t.String(), nil
}

func (f *TableFormatter) Outcome(o engine.Outcome) (string, error) {
	if !o.Completed {
		return "Already done today. Nice extra focus!", nil
	}

	t := f.card()
	t.Row("Completed", strings.TrimSpace(o.Routine.Emoji+" "+o.Routine.Title))
	t.Row("Streak", streakLabel(o.Routine.Streak))
	xp := fmt.Sprintf("+%d", o.Experience)
	if o.LevelUp {
		xp += " (level up!)"
	}
	t.Row("XP", xp)
	if len(o.Achievements) > 0 {
		labels := make([]string, len(o.Achievements))
		for i, u := range o.Achievements {
			labels[i] = u.Label
		}
		t.Row("Unlocked", strings.Join(labels, ", "))
	}
	if o.Reward != nil {
		t.Row("Reward", o.Reward.Text)
	}
	return t.String(), nil
}

func dayLabel(d daytime.Date) string {
	wd := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
	return wd.String()[:2]
}

func streakLabel(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func check(done bool) string {
	if done {
		return "✓"
	}
	return "·"
}

// truncateString cuts by rune so emoji titles are not split.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
