package engine

import (
	"context"
	"fmt"

	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/logger"
	"github.com/harunnryd/shukan/internal/profile"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/quest"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/store"
)

// UseShield moves one shield from the global pool onto the routine.
func (e *Engine) UseShield(ctx context.Context, routineID string) (routine.Routine, error) {
	return call(ctx, e, func() (routine.Routine, error) {
		e.ensureCurrentDay()
		if e.stats.Shields <= 0 {
			return routine.Routine{}, shukanErrors.ErrNoShields
		}
		r, err := e.routines.Get(routineID)
		if err != nil {
			return routine.Routine{}, err
		}
		r.AddShield()
		if err := e.routines.Replace(r); err != nil {
			return routine.Routine{}, err
		}
		e.stats.Shields--
		e.persist(store.KeyRoutines, store.KeyStats)
		e.toast(fmt.Sprintf("Shield placed on %s", r.Title))
		logger.From(logger.WithRoutineID(ctx, r.ID)).Info("Shield applied", "routine_shields", r.ShieldCount, "pool", e.stats.Shields)
		return r, nil
	})
}

// Quests returns today's quest board.
func (e *Engine) Quests(ctx context.Context) ([]quest.Progress, error) {
	return call(ctx, e, func() ([]quest.Progress, error) {
		e.ensureCurrentDay()
		return e.stats.Board(e.routines.CompletedToday()), nil
	})
}

// QuestClaim reports the result of a claim attempt. Claimed is false when
// the quest is unmet or already claimed today.
type QuestClaim struct {
	QuestID string      `json:"quest_id"`
	Claimed bool        `json:"claimed"`
	Grant   quest.Grant `json:"grant"`
}

func (e *Engine) ClaimQuest(ctx context.Context, id string) (QuestClaim, error) {
	return call(ctx, e, func() (QuestClaim, error) {
		e.ensureCurrentDay()
		grant, ok, err := e.stats.Claim(id, e.routines.CompletedToday())
		if err != nil {
			return QuestClaim{}, err
		}
		res := QuestClaim{QuestID: id, Claimed: ok, Grant: grant}
		if !ok {
			return res, nil
		}
		e.stats.Gems += grant.Gems
		e.stats.Shields += grant.Shields
		e.persist(store.KeyStats)
		e.toast(fmt.Sprintf("Quest reward: %s", grant))
		logger.From(ctx).Info("Quest claimed", "quest", id, "gems", grant.Gems, "shields", grant.Shields)
		return res, nil
	})
}

// PendingRewards lists rolled rewards waiting to be claimed, oldest first.
func (e *Engine) PendingRewards(ctx context.Context) ([]progression.Reward, error) {
	return call(ctx, e, func() ([]progression.Reward, error) {
		return append([]progression.Reward(nil), e.stats.PendingRewards...), nil
	})
}

// ClaimReward applies the oldest pending reward. An accent reward becomes
// the current accent setting.
func (e *Engine) ClaimReward(ctx context.Context) (progression.Reward, bool, error) {
	type claimed struct {
		r  progression.Reward
		ok bool
	}
	c, err := call(ctx, e, func() (claimed, error) {
		e.ensureCurrentDay()
		r, ok := e.stats.ClaimReward()
		if !ok {
			return claimed{}, nil
		}
		keys := []string{store.KeyStats}
		if r.Kind == progression.RewardAccent {
			next, err := e.settings.Apply(profile.SettingsPatch{Accent: &r.Accent})
			if err != nil {
				logger.From(ctx).Warn("Reward accent rejected", "accent", r.Accent, "error", err)
			} else {
				e.settings = next
				keys = append(keys, store.KeySettings)
			}
		}
		e.persist(keys...)
		e.toast(r.Text)
		logger.From(ctx).Info("Reward claimed", "kind", r.Kind, "amount", r.Amount)
		return claimed{r: r, ok: true}, nil
	})
	return c.r, c.ok, err
}

// Stats returns a copy of the progression state and today's counters.
func (e *Engine) Stats(ctx context.Context) (profile.Stats, error) {
	return call(ctx, e, func() (profile.Stats, error) {
		e.ensureCurrentDay()
		return e.stats.Clone(), nil
	})
}

func (e *Engine) Settings(ctx context.Context) (profile.Settings, error) {
	return call(ctx, e, func() (profile.Settings, error) {
		return e.settings, nil
	})
}

func (e *Engine) UpdateSettings(ctx context.Context, patch profile.SettingsPatch) (profile.Settings, error) {
	return call(ctx, e, func() (profile.Settings, error) {
		e.ensureCurrentDay()
		next, err := e.settings.Apply(patch)
		if err != nil {
			return e.settings, err
		}
		e.settings = next
		e.persist(store.KeySettings)
		return next, nil
	})
}

// MaxWeekDays bounds the span Week will build.
const MaxWeekDays = 366

// Week returns per-routine completion marks for the last days, oldest first.
// Zero picks seven days.
func (e *Engine) Week(ctx context.Context, days int) (routine.Week, error) {
	if days == 0 {
		days = 7
	}
	if days < 1 || days > MaxWeekDays {
		return routine.Week{}, shukanErrors.InvalidInput(fmt.Sprintf("days must be between 1 and %d", MaxWeekDays))
	}
	return call(ctx, e, func() (routine.Week, error) {
		today := e.ensureCurrentDay()
		return e.routines.Week(today, days), nil
	})
}

// Analytics is the dashboard summary.
type Analytics struct {
	routine.Analytics
	Level                  int `json:"level"`
	Experience             int `json:"experience"`
	LevelProgress          int `json:"level_progress"`
	LevelSpan              int `json:"level_span"`
	Gems                   int `json:"gems"`
	Shields                int `json:"shields"`
	ComboCount             int `json:"combo_count"`
	SessionsStartedToday   int `json:"sessions_started_today"`
	FocusMinutesToday      int `json:"focus_minutes_today"`
	TotalSessionsCompleted int `json:"total_sessions_completed"`
	Achievements           int `json:"achievements"`
	PendingRewards         int `json:"pending_rewards"`
}

func (e *Engine) Analytics(ctx context.Context) (Analytics, error) {
	return call(ctx, e, func() (Analytics, error) {
		e.ensureCurrentDay()
		return e.analytics(), nil
	})
}

func (e *Engine) analytics() Analytics {
	current, span := e.stats.LevelProgress()
	return Analytics{
		Analytics:              e.routines.Analytics(),
		Level:                  e.stats.Level,
		Experience:             e.stats.Experience,
		LevelProgress:          current,
		LevelSpan:              span,
		Gems:                   e.stats.Gems,
		Shields:                e.stats.Shields,
		ComboCount:             e.stats.ComboCount,
		SessionsStartedToday:   e.stats.SessionsStartedToday,
		FocusMinutesToday:      e.stats.FocusMinutesToday,
		TotalSessionsCompleted: e.stats.TotalSessionsCompleted,
		Achievements:           len(e.stats.Achievements),
		PendingRewards:         len(e.stats.PendingRewards),
	}
}
