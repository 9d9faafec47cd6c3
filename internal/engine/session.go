package engine

import (
	"context"
	"log/slog"
	"time"

	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/logger"
	"github.com/harunnryd/shukan/internal/notify"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/session"
	"github.com/harunnryd/shukan/internal/store"
)

// Outcome describes what a finished session produced. Completed is false
// when the routine was already done today and nothing was granted.
type Outcome struct {
	Session      session.Session      `json:"session"`
	Completed    bool                 `json:"completed"`
	Routine      routine.Routine      `json:"routine"`
	Experience   int                  `json:"experience"`
	LevelUp      bool                 `json:"level_up"`
	Achievements []progression.Unlock `json:"achievements,omitempty"`
	Reward       *progression.Reward  `json:"reward,omitempty"`
}

// StartSession opens a focus session for the routine. Only one session may
// be active at a time.
func (e *Engine) StartSession(ctx context.Context, routineID string) (session.Session, error) {
	return call(ctx, e, func() (session.Session, error) {
		e.ensureCurrentDay()
		if e.active != nil && e.active.Active() {
			return session.Session{}, shukanErrors.ErrSessionActive
		}
		r, err := e.routines.Get(routineID)
		if err != nil {
			return session.Session{}, err
		}

		now := e.now()
		s := session.Start(r.ID, r.Title, r.Duration(), now)
		e.active = s
		e.stats.SessionsStartedToday++
		e.stats.RegisterStart(now, e.opts.ComboWindow)
		e.persist(store.KeyStats)
		e.ticker.Start(s.ID)

		logger.From(logger.WithSessionID(logger.WithRoutineID(ctx, r.ID), s.ID)).Info("Session started",
			"minutes", r.DurationMinutes, "combo", e.stats.ComboCount)
		return *s, nil
	})
}

// ActiveSession returns the current session, if any.
func (e *Engine) ActiveSession(ctx context.Context) (session.Session, bool, error) {
	type active struct {
		s  session.Session
		ok bool
	}
	a, err := call(ctx, e, func() (active, error) {
		if e.active == nil {
			return active{}, nil
		}
		return active{s: *e.active, ok: true}, nil
	})
	return a.s, a.ok, err
}

// PauseToggle pauses a running session or resumes a paused one.
func (e *Engine) PauseToggle(ctx context.Context) (session.Session, error) {
	return call(ctx, e, func() (session.Session, error) {
		e.ensureCurrentDay()
		s, err := e.requireActive()
		if err != nil {
			return session.Session{}, err
		}
		s.PauseToggle()
		if s.Paused {
			e.ticker.Stop()
		} else {
			e.ticker.Start(s.ID)
		}
		logger.From(logger.WithSessionID(ctx, s.ID)).Debug("Session pause toggled", "paused", s.Paused)
		return *s, nil
	})
}

// AddMinute extends the active session by one minute.
func (e *Engine) AddMinute(ctx context.Context) (session.Session, error) {
	return call(ctx, e, func() (session.Session, error) {
		e.ensureCurrentDay()
		s, err := e.requireActive()
		if err != nil {
			return session.Session{}, err
		}
		s.AddMinute()
		return *s, nil
	})
}

// FinishEarly completes the active session now and credits its full length.
func (e *Engine) FinishEarly(ctx context.Context) (Outcome, error) {
	return call(ctx, e, func() (Outcome, error) {
		e.ensureCurrentDay()
		s, err := e.requireActive()
		if err != nil {
			return Outcome{}, err
		}
		if !s.FinishEarly() {
			return Outcome{}, shukanErrors.ErrNoSession
		}
		return e.complete(ctx, s), nil
	})
}

// CancelSession discards the active session without crediting anything.
func (e *Engine) CancelSession(ctx context.Context) error {
	return exec(ctx, e, func() error {
		e.ensureCurrentDay()
		if _, err := e.requireActive(); err != nil {
			return err
		}
		id := e.active.ID
		e.cancelActive()
		logger.From(logger.WithSessionID(ctx, id)).Info("Session cancelled")
		return nil
	})
}

func (e *Engine) requireActive() (*session.Session, error) {
	if e.active == nil || !e.active.Active() {
		return nil, shukanErrors.ErrNoSession
	}
	return e.active, nil
}

func (e *Engine) cancelActive() {
	e.ticker.Stop()
	e.active.Cancel()
	e.active = nil
}

// onTick runs on the ticker goroutine and hands the tick to the loop. It
// gives up when the ticker is stopped or the engine closes.
func (e *Engine) onTick(ctx context.Context, sessionID string, step time.Duration) {
	req := func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("Session tick panicked", "session_id", sessionID, "panic", p)
			}
		}()
		e.tick(sessionID, step)
	}
	select {
	case e.inbox <- req:
	case <-ctx.Done():
	case <-e.quit:
	}
}

// tick advances the active session. Ticks queued for a session that has
// since been paused, replaced or ended are dropped.
func (e *Engine) tick(sessionID string, step time.Duration) {
	if e.active == nil || e.active.ID != sessionID || e.active.Paused {
		return
	}
	if e.active.Tick(step) {
		e.complete(context.Background(), e.active)
	}
}

// complete applies a finished session: streak, experience, counters,
// achievements, then the reward roll. It always tears the session down.
func (e *Engine) complete(ctx context.Context, s *session.Session) Outcome {
	e.ticker.Stop()
	e.active = nil
	out := Outcome{Session: *s}
	log := logger.From(logger.WithSessionID(logger.WithRoutineID(ctx, s.RoutineID), s.ID))

	today := e.ensureCurrentDay()
	now := e.now()

	r, err := e.routines.Get(s.RoutineID)
	if err != nil {
		log.Warn("Session finished for a missing routine", "error", err)
		return out
	}
	updated, ev := routine.Complete(r, today, s.DurationMs)
	out.Routine = updated
	if ev == nil {
		log.Info("Routine already completed today")
		e.toast("Already done today. Nice extra focus!")
		return out
	}
	if err := e.routines.Replace(updated); err != nil {
		log.Error("Failed to store completed routine", "error", err)
		return out
	}
	out.Completed = true

	e.stats.FocusMinutesToday += progression.SessionMinutes(s.DurationMs)
	e.stats.RegisterCompletion(now)
	out.Experience = progression.ExperienceFor(s.DurationMs, e.opts.Rand)
	out.LevelUp = e.stats.GrantExperience(out.Experience)

	out.Achievements = e.stats.Unlock(progression.Context{
		RoutineStreak:          updated.Streak,
		CompletedToday:         e.routines.CompletedToday(),
		TotalSessionsCompleted: e.stats.TotalSessionsCompleted,
	}, today)

	out.Reward = progression.Roll(e.opts.Rand, e.opts.RewardChance, updated.ID, now)
	if out.Reward != nil {
		e.stats.Offer(*out.Reward)
	}

	e.persist(store.KeyRoutines, store.KeyStats)

	e.publish(notify.RoutineCompleted(*ev, now))
	e.toast(notify.Encouragement(e.opts.Rand.IntN))
	e.publish(notify.Celebrate(now))
	if len(out.Achievements) > 0 {
		e.publish(notify.AchievementsUnlocked(out.Achievements, now))
	}
	if out.Reward != nil {
		e.publish(notify.RewardOffered(*out.Reward, now))
	}

	log.Info("Routine completed",
		"streak", updated.Streak,
		"experience", out.Experience,
		"level", e.stats.Level,
		"achievements", len(out.Achievements),
		"reward", out.Reward != nil)
	return out
}
