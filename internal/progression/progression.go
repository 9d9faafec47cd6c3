// Package progression computes experience, levels, combos, achievements and
// reward rolls for completed focus sessions.
package progression

import (
	"math"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
)

const (
	xpPerLevelUnit     = 120
	DefaultComboWindow = 90 * time.Minute
)

// Rand is the random source used for bonus experience and reward rolls.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Unlock records when an achievement was earned.
type Unlock struct {
	ID    string       `json:"id"`
	Label string       `json:"label"`
	Date  daytime.Date `json:"date"`
}

// State is the process-wide progression record.
type State struct {
	Experience             int               `json:"experience"`
	Level                  int               `json:"level"`
	Gems                   int               `json:"gems"`
	Shields                int               `json:"shields"`
	ComboCount             int               `json:"combo_count"`
	LastComboAt            time.Time         `json:"last_combo_at"`
	TotalSessionsCompleted int               `json:"total_sessions_completed"`
	TotalSessionsStarted   int               `json:"total_sessions_started"`
	LastActive             time.Time         `json:"last_active"`
	Achievements           map[string]Unlock `json:"achievements"`
	PendingRewards         []Reward          `json:"pending_rewards"`
}

func NewState(now time.Time) State {
	return State{
		Level:        1,
		LastActive:   now,
		Achievements: make(map[string]Unlock),
	}
}

// Normalize repairs fields that older or hand-edited blobs may leave out.
func (s *State) Normalize() {
	if s.Achievements == nil {
		s.Achievements = make(map[string]Unlock)
	}
	s.Experience = max(0, s.Experience)
	s.Gems = max(0, s.Gems)
	s.Shields = max(0, s.Shields)
	s.Level = LevelFor(s.Experience)
}

// LevelFor maps total experience to a level, starting at 1.
func LevelFor(experience int) int {
	return 1 + int(math.Floor(math.Sqrt(float64(max(0, experience))/xpPerLevelUnit)))
}

// SessionMinutes rounds a session length to whole minutes, at least one.
func SessionMinutes(totalMs int64) int {
	return max(1, int(math.Round(float64(totalMs)/60000)))
}

// ExperienceFor returns the experience earned by a session: two per minute
// plus a bonus of 0 to 5.
func ExperienceFor(totalMs int64, rng Rand) int {
	return SessionMinutes(totalMs)*2 + rng.IntN(6)
}

// GrantExperience adds gain and recomputes the level. It reports whether the
// level went up.
func (s *State) GrantExperience(gain int) bool {
	before := s.Level
	s.Experience += max(0, gain)
	s.Level = LevelFor(s.Experience)
	return s.Level > before
}

// RegisterStart records a session start: the combo grows when the previous
// start lies within window, otherwise it restarts at one.
func (s *State) RegisterStart(now time.Time, window time.Duration) {
	if !s.LastComboAt.IsZero() && now.Sub(s.LastComboAt) < window {
		s.ComboCount++
	} else {
		s.ComboCount = 1
	}
	s.LastComboAt = now
	s.TotalSessionsStarted++
	s.LastActive = now
}

// RegisterCompletion counts a finished session.
func (s *State) RegisterCompletion(now time.Time) {
	s.TotalSessionsCompleted++
	s.LastActive = now
}

// LevelProgress is the experience gathered toward the next level boundary,
// as shown on the progress bar.
func (s *State) LevelProgress() (current, span int) {
	return s.Experience % xpPerLevelUnit, xpPerLevelUnit
}
