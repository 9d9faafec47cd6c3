// Package quest tracks the day-scoped counters and the fixed daily quests
// that read them.
package quest

import (
	"fmt"

	"github.com/harunnryd/shukan/internal/daytime"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
)

// Counters are reset the first time a new calendar day is observed.
type Counters struct {
	ScopeDate            daytime.Date    `json:"scope_date"`
	SessionsStartedToday int             `json:"sessions_started_today"`
	FocusMinutesToday    int             `json:"focus_minutes_today"`
	Claims               map[string]bool `json:"quest_claims"`
}

func NewCounters(today daytime.Date) Counters {
	return Counters{ScopeDate: today, Claims: make(map[string]bool)}
}

// EnsureDay resets the counters when today differs from the scope date and
// reports whether it did.
func (c *Counters) EnsureDay(today daytime.Date) bool {
	if c.Claims == nil {
		c.Claims = make(map[string]bool)
	}
	if c.ScopeDate == today {
		return false
	}
	*c = NewCounters(today)
	return true
}

type Metric string

const (
	MetricSessionsStarted   Metric = "sessions_started"
	MetricFocusMinutes      Metric = "focus_minutes"
	MetricRoutinesCompleted Metric = "routines_completed"
)

// Grant is what a claimed quest pays out.
type Grant struct {
	Gems    int `json:"gems,omitempty"`
	Shields int `json:"shields,omitempty"`
}

func (g Grant) String() string {
	switch {
	case g.Shields > 0 && g.Gems > 0:
		return fmt.Sprintf("+%d gems, +%d shield", g.Gems, g.Shields)
	case g.Shields > 0:
		return fmt.Sprintf("+%d shield", g.Shields)
	default:
		return fmt.Sprintf("+%d gems", g.Gems)
	}
}

type Quest struct {
	ID     string
	Label  string
	Metric Metric
	Target int
	Reward Grant
}

// Daily is the fixed quest set offered every day.
var Daily = []Quest{
	{ID: "q_sessions", Label: "Start 2 sessions", Metric: MetricSessionsStarted, Target: 2, Reward: Grant{Gems: 8}},
	{ID: "q_minutes", Label: "Focus for 20 minutes", Metric: MetricFocusMinutes, Target: 20, Reward: Grant{Gems: 10}},
	{ID: "q_done", Label: "Complete 3 routines", Metric: MetricRoutinesCompleted, Target: 3, Reward: Grant{Shields: 1}},
}

// Progress is a quest as shown on the board.
type Progress struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Progress int    `json:"progress"`
	Target   int    `json:"target"`
	Reward   string `json:"reward"`
	Done     bool   `json:"done"`
	Claimed  bool   `json:"claimed"`
}

func (c Counters) value(m Metric, completedToday int) int {
	switch m {
	case MetricSessionsStarted:
		return c.SessionsStartedToday
	case MetricFocusMinutes:
		return c.FocusMinutesToday
	case MetricRoutinesCompleted:
		return completedToday
	default:
		return 0
	}
}

// Board derives live progress for every daily quest.
func (c Counters) Board(completedToday int) []Progress {
	board := make([]Progress, 0, len(Daily))
	for _, q := range Daily {
		v := c.value(q.Metric, completedToday)
		board = append(board, Progress{
			ID:       q.ID,
			Label:    q.Label,
			Progress: min(v, q.Target),
			Target:   q.Target,
			Reward:   q.Reward.String(),
			Done:     v >= q.Target,
			Claimed:  c.Claims[q.ID],
		})
	}
	return board
}

// Claim marks a met quest as claimed and returns its grant. Claiming an unmet
// or already claimed quest is a no-op reported as false.
func (c *Counters) Claim(id string, completedToday int) (Grant, bool, error) {
	for _, q := range Daily {
		if q.ID != id {
			continue
		}
		if c.Claims[id] || c.value(q.Metric, completedToday) < q.Target {
			return Grant{}, false, nil
		}
		if c.Claims == nil {
			c.Claims = make(map[string]bool)
		}
		c.Claims[id] = true
		return q.Reward, true, nil
	}
	return Grant{}, false, shukanErrors.NotFound(fmt.Sprintf("quest %s", id))
}
