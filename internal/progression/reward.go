package progression

import (
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
)

type RewardKind string

const (
	RewardGems   RewardKind = "gems"
	RewardShield RewardKind = "shield"
	RewardAccent RewardKind = "accent"
)

const DefaultRewardChance = 0.35

// AccentPalette holds the accent shades a reward can unlock.
var AccentPalette = []string{"#86b3b8", "#8fb9c0", "#7faab0", "#9fbac1", "#7aa7a7"}

// Reward is a rolled bonus waiting to be claimed.
type Reward struct {
	ID        string     `json:"id"`
	Kind      RewardKind `json:"kind"`
	Amount    int        `json:"amount"`
	Accent    string     `json:"accent,omitempty"`
	Text      string     `json:"text"`
	RoutineID string     `json:"routine_id,omitempty"`
	RolledAt  time.Time  `json:"rolled_at"`
}

// Roll decides whether a completion earns a reward and which one. Half of
// the hits are 8 to 14 gems, three in ten a shield, the rest an accent shade.
func Roll(rng Rand, chance float64, routineID string, now time.Time) *Reward {
	if rng.Float64() >= chance {
		return nil
	}
	r := &Reward{ID: ulid.Make().String(), RoutineID: routineID, RolledAt: now}
	switch roll := rng.Float64(); {
	case roll < 0.5:
		r.Kind = RewardGems
		r.Amount = 8 + rng.IntN(7)
		r.Text = "Bonus gems for your focus!"
	case roll < 0.8:
		r.Kind = RewardShield
		r.Amount = 1
		r.Text = "Streak shield earned: skip a day without breaking it."
	default:
		r.Kind = RewardAccent
		r.Amount = 1
		r.Accent = AccentPalette[rng.IntN(len(AccentPalette))]
		r.Text = "New accent shade unlocked!"
	}
	return r
}

// Offer queues a reward until it is claimed.
func (s *State) Offer(r Reward) {
	s.PendingRewards = append(s.PendingRewards, r)
}

// ClaimReward applies the oldest pending reward and removes it from the
// queue. The accent is returned for the caller to store in settings.
func (s *State) ClaimReward() (Reward, bool) {
	if len(s.PendingRewards) == 0 {
		return Reward{}, false
	}
	r := s.PendingRewards[0]
	s.PendingRewards = slices.Delete(s.PendingRewards, 0, 1)

	switch r.Kind {
	case RewardGems:
		s.Gems += r.Amount
	case RewardShield:
		s.Shields += r.Amount
	}
	return r, true
}
