package engine

import (
	"context"
	"log/slog"

	"github.com/harunnryd/shukan/internal/profile"
	"github.com/harunnryd/shukan/internal/quest"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/session"
	"github.com/harunnryd/shukan/internal/store"
	"github.com/harunnryd/shukan/internal/transfer"
)

// Snapshot is a consistent read of everything the engine holds.
type Snapshot struct {
	Routines  []routine.Routine `json:"routines"`
	Stats     profile.Stats     `json:"stats"`
	Settings  profile.Settings  `json:"settings"`
	Session   *session.Session  `json:"session,omitempty"`
	Quests    []quest.Progress  `json:"quests"`
	Analytics Analytics         `json:"analytics"`
}

func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	return call(ctx, e, func() (Snapshot, error) {
		e.ensureCurrentDay()
		snap := Snapshot{
			Routines:  e.routines.List(""),
			Stats:     e.stats.Clone(),
			Settings:  e.settings,
			Quests:    e.stats.Board(e.routines.CompletedToday()),
			Analytics: e.analytics(),
		}
		if e.active != nil {
			s := *e.active
			snap.Session = &s
		}
		return snap, nil
	})
}

// Export returns the complete backup document.
func (e *Engine) Export(ctx context.Context) (transfer.Document, error) {
	return call(ctx, e, func() (transfer.Document, error) {
		e.ensureCurrentDay()
		return transfer.Export(e.routines.List(""), e.stats.Clone(), e.settings), nil
	})
}

// Import replaces each part of the state present in data. The document is
// validated in full before anything changes. A running session whose
// routine no longer exists is cancelled.
func (e *Engine) Import(ctx context.Context, data []byte) error {
	doc, err := transfer.Decode(data)
	if err != nil {
		return err
	}
	return exec(ctx, e, func() error {
		var keys []string
		if doc.Routines != nil {
			e.routines = routine.NewSet(*doc.Routines)
			keys = append(keys, store.KeyRoutines)
			if e.active != nil {
				if _, err := e.routines.Get(e.active.RoutineID); err != nil {
					e.cancelActive()
				}
			}
		}
		if doc.Stats != nil {
			e.stats = *doc.Stats
			keys = append(keys, store.KeyStats)
		}
		if doc.Settings != nil {
			e.settings = *doc.Settings
			keys = append(keys, store.KeySettings)
		}
		e.persist(keys...)
		e.ensureCurrentDay()
		slog.Info("State imported", "keys", keys)
		return nil
	})
}
