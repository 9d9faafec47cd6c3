// Package profile holds the user-level blobs stored next to the routines:
// settings and the combined progression and daily statistics.
package profile

import (
	"fmt"
	"regexp"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/quest"
)

const DefaultAccent = "#86b3b8"

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Settings struct {
	ReducedMotion bool   `json:"reduced_motion"`
	Sound         bool   `json:"sound"`
	Accent        string `json:"accent"`
}

func DefaultSettings() Settings {
	return Settings{Sound: true, Accent: DefaultAccent}
}

func (s Settings) Validate() error {
	if !hexColor.MatchString(s.Accent) {
		return shukanErrors.InvalidInput(fmt.Sprintf("accent %q is not a hex colour", s.Accent))
	}
	return nil
}

// SettingsPatch carries a partial settings update.
type SettingsPatch struct {
	ReducedMotion *bool   `json:"reduced_motion,omitempty"`
	Sound         *bool   `json:"sound,omitempty"`
	Accent        *string `json:"accent,omitempty"`
}

// Apply returns s with the patch applied, or an error if the result is invalid.
func (s Settings) Apply(p SettingsPatch) (Settings, error) {
	next := s
	if p.ReducedMotion != nil {
		next.ReducedMotion = *p.ReducedMotion
	}
	if p.Sound != nil {
		next.Sound = *p.Sound
	}
	if p.Accent != nil {
		next.Accent = *p.Accent
	}
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// Stats is the "stats" blob: progression state and the day-scoped counters
// flattened into one document.
type Stats struct {
	progression.State
	quest.Counters
}

func DefaultStats(now time.Time, today daytime.Date) Stats {
	return Stats{
		State:    progression.NewState(now),
		Counters: quest.NewCounters(today),
	}
}

// Validate rejects values no sequence of operations could have produced.
func (s Stats) Validate() error {
	switch {
	case s.Experience < 0, s.Gems < 0, s.Shields < 0, s.ComboCount < 0:
		return shukanErrors.InvalidInput("stats contain negative totals")
	case s.TotalSessionsCompleted < 0, s.TotalSessionsStarted < 0:
		return shukanErrors.InvalidInput("stats contain negative session counts")
	case s.SessionsStartedToday < 0, s.FocusMinutesToday < 0:
		return shukanErrors.InvalidInput("stats contain negative daily counters")
	}
	for i, r := range s.PendingRewards {
		if err := validateReward(r); err != nil {
			return shukanErrors.InvalidInput(fmt.Sprintf("pending reward %d: %v", i, err))
		}
	}
	return nil
}

func validateReward(r progression.Reward) error {
	switch r.Kind {
	case progression.RewardGems, progression.RewardShield:
	case progression.RewardAccent:
		if !hexColor.MatchString(r.Accent) {
			return fmt.Errorf("accent %q is not a hex colour", r.Accent)
		}
	default:
		return fmt.Errorf("unknown kind %q", r.Kind)
	}
	if r.Amount < 1 {
		return fmt.Errorf("amount %d is below one", r.Amount)
	}
	return nil
}

// Normalize fills maps and derived fields after decoding.
func (s *Stats) Normalize() {
	s.State.Normalize()
	if s.Claims == nil {
		s.Claims = make(map[string]bool)
	}
}

// Clone returns a copy that shares no maps or slices with s.
func (s Stats) Clone() Stats {
	c := s
	c.Achievements = make(map[string]progression.Unlock, len(s.Achievements))
	for id, u := range s.Achievements {
		c.Achievements[id] = u
	}
	c.PendingRewards = append([]progression.Reward(nil), s.PendingRewards...)
	c.Claims = make(map[string]bool, len(s.Claims))
	for id, v := range s.Claims {
		c.Claims[id] = v
	}
	return c
}
