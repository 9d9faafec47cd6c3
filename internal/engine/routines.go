package engine

import (
	"context"

	"github.com/harunnryd/shukan/internal/logger"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/store"
)

func (e *Engine) AddRoutine(ctx context.Context, f routine.Fields) (routine.Routine, error) {
	return call(ctx, e, func() (routine.Routine, error) {
		e.ensureCurrentDay()
		r, err := routine.New(f)
		if err != nil {
			return routine.Routine{}, err
		}
		if err := e.routines.Add(r); err != nil {
			return routine.Routine{}, err
		}
		e.persist(store.KeyRoutines)
		logger.From(logger.WithRoutineID(ctx, r.ID)).Info("Routine added", "title", r.Title)
		return e.routines.Get(r.ID)
	})
}

// EditRoutine changes presentation fields only; progress fields are never
// touched. A running session keeps the title it started with.
func (e *Engine) EditRoutine(ctx context.Context, id string, f routine.Fields) (routine.Routine, error) {
	return call(ctx, e, func() (routine.Routine, error) {
		e.ensureCurrentDay()
		r, err := e.routines.Get(id)
		if err != nil {
			return routine.Routine{}, err
		}
		if err := r.Edit(f); err != nil {
			return routine.Routine{}, err
		}
		if err := e.routines.Replace(r); err != nil {
			return routine.Routine{}, err
		}
		e.persist(store.KeyRoutines)
		logger.From(logger.WithRoutineID(ctx, id)).Info("Routine edited")
		return r, nil
	})
}

// RemoveRoutine deletes the routine. A session running for it is cancelled.
func (e *Engine) RemoveRoutine(ctx context.Context, id string) error {
	return exec(ctx, e, func() error {
		e.ensureCurrentDay()
		if err := e.routines.Remove(id); err != nil {
			return err
		}
		if e.active != nil && e.active.RoutineID == id {
			e.cancelActive()
		}
		e.persist(store.KeyRoutines)
		logger.From(logger.WithRoutineID(ctx, id)).Info("Routine removed")
		return nil
	})
}

// Routines lists routines newest first, filtered by a case-insensitive title
// substring when query is non-empty.
func (e *Engine) Routines(ctx context.Context, query string) ([]routine.Routine, error) {
	return call(ctx, e, func() ([]routine.Routine, error) {
		e.ensureCurrentDay()
		return e.routines.List(query), nil
	})
}

func (e *Engine) Routine(ctx context.Context, id string) (routine.Routine, error) {
	return call(ctx, e, func() (routine.Routine, error) {
		e.ensureCurrentDay()
		return e.routines.Get(id)
	})
}
