package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/notify"
	"github.com/harunnryd/shukan/internal/profile"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/routine"
	"github.com/harunnryd/shukan/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// queued replays planned draws, then falls back to values that add no
// bonus and never hit a reward.
type queued struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
}

func (q *queued) IntN(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ints) == 0 {
		return 0
	}
	v := q.ints[0]
	q.ints = q.ints[1:]
	return v % n
}

func (q *queued) Float64() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.floats) == 0 {
		return 0.99
	}
	v := q.floats[0]
	q.floats = q.floats[1:]
	return v
}

type recorder struct {
	mu   sync.Mutex
	seen []notify.Notification
}

func (r *recorder) Publish(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, 0, len(r.seen))
	for _, n := range r.seen {
		out = append(out, n.Kind)
	}
	return out
}

type harness struct {
	*Engine
	kv    *store.MemoryKV
	clock *daytime.FixedClock
	rng   *queued
	rec   *recorder
}

func newHarness(t *testing.T, kv *store.MemoryKV, seedExamples bool) *harness {
	t.Helper()
	if kv == nil {
		kv = store.NewMemoryKV()
	}
	h := &harness{
		kv:    kv,
		clock: daytime.NewFixedClock(start),
		rng:   &queued{},
		rec:   &recorder{},
	}
	e, err := New(context.Background(), kv, h.rec, Options{
		Clock:        h.clock,
		Rand:         h.rng,
		TickInterval: time.Hour,
		RewardChance: progression.DefaultRewardChance,
		SeedExamples: seedExamples,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	h.Engine = e
	return h
}

func (h *harness) addRoutine(t *testing.T, title string, minutes int) routine.Routine {
	t.Helper()
	r, err := h.AddRoutine(context.Background(), routine.Fields{
		Title:           &title,
		DurationMinutes: &minutes,
	})
	require.NoError(t, err)
	return r
}

func (h *harness) focus(t *testing.T, routineID string) Outcome {
	t.Helper()
	ctx := context.Background()
	_, err := h.StartSession(ctx, routineID)
	require.NoError(t, err)
	out, err := h.FinishEarly(ctx)
	require.NoError(t, err)
	return out
}

func TestNew_SeedsExamplesAndWritesDefaults(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, true)

	routines, err := h.Routines(ctx, "")
	require.NoError(t, err)
	require.Len(t, routines, 2)
	assert.Equal(t, "Read", routines[0].Title)
	assert.Equal(t, 2, routines[0].Streak)

	require.NoError(t, h.Flush(ctx))
	for _, key := range []string{store.KeyRoutines, store.KeyStats, store.KeySettings} {
		_, err := h.kv.Get(ctx, key)
		assert.NoError(t, err, key)
	}
}

func TestNew_MalformedBlobFallsBackWithoutOverwriting(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Put(ctx, store.KeyStats, []byte("{not json")))
	require.NoError(t, kv.Put(ctx, store.KeySettings, []byte(`{"accent":"teal"}`)))

	h := newHarness(t, kv, false)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Level)
	assert.Zero(t, stats.Experience)

	settings, err := h.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultSettings(), settings)

	require.NoError(t, h.Flush(ctx))
	raw, err := kv.Get(ctx, store.KeyStats)
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(raw))
}

func TestCompletion_GrantsProgress(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 20)
	h.rng.ints = []int{3}

	out := h.focus(t, r.ID)

	require.True(t, out.Completed)
	assert.Equal(t, 43, out.Experience)
	assert.Equal(t, 1, out.Routine.Streak)
	assert.True(t, out.Routine.CompletedToday)
	require.Len(t, out.Achievements, 1)
	assert.Equal(t, "FIRST_SESSION", out.Achievements[0].ID)
	assert.Nil(t, out.Reward)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 43, stats.Experience)
	assert.Equal(t, 1, stats.Level)
	assert.Equal(t, 20, stats.FocusMinutesToday)
	assert.Equal(t, 1, stats.SessionsStartedToday)
	assert.Equal(t, 1, stats.TotalSessionsCompleted)
	assert.Equal(t, 1, stats.ComboCount)
	assert.Equal(t, start, stats.LastActive)

	_, ok, err := h.ActiveSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Subset(t, h.rec.kinds(), []notify.Kind{
		notify.KindRoutineCompleted,
		notify.KindToast,
		notify.KindCelebrate,
		notify.KindAchievementsUnlocked,
	})
}

func TestCompletion_SameDayIsNoop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 20)

	first := h.focus(t, r.ID)
	require.True(t, first.Completed)

	second := h.focus(t, r.ID)
	assert.False(t, second.Completed)
	assert.Zero(t, second.Experience)
	assert.Equal(t, 1, second.Routine.Streak)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Experience, stats.Experience)
	assert.Equal(t, 1, stats.TotalSessionsCompleted)
	assert.Equal(t, 20, stats.FocusMinutesToday)
	assert.Equal(t, 2, stats.SessionsStartedToday)
	assert.Equal(t, 2, stats.ComboCount)
}

func TestStreak_AcrossDays(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 5)

	assert.Equal(t, 1, h.focus(t, r.ID).Routine.Streak)

	h.clock.Advance(24 * time.Hour)
	got, err := h.Routine(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.CompletedToday, "flag clears on a new day")
	assert.Equal(t, 2, h.focus(t, r.ID).Routine.Streak)

	h.clock.Advance(72 * time.Hour)
	assert.Equal(t, 1, h.focus(t, r.ID).Routine.Streak, "a missed day without a shield resets")
}

func TestShield_BridgesOneMissedDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 5)

	_, err := h.UseShield(ctx, r.ID)
	assert.ErrorIs(t, err, shukanErrors.ErrNoShields)

	// Completion rolls a reward hit, then the shield band.
	h.rng.floats = []float64{0.1, 0.6}
	out := h.focus(t, r.ID)
	require.NotNil(t, out.Reward)
	assert.Equal(t, progression.RewardShield, out.Reward.Kind)

	claimed, ok, err := h.ClaimReward(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, progression.RewardShield, claimed.Kind)

	shielded, err := h.UseShield(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, shielded.ShieldCount)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Shields)

	h.clock.Advance(48 * time.Hour)
	out = h.focus(t, r.ID)
	assert.Equal(t, 2, out.Routine.Streak)
	assert.Zero(t, out.Routine.ShieldCount)
}

func TestClaimReward_AccentUpdatesSettings(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 5)

	h.rng.ints = []int{0, 2}
	h.rng.floats = []float64{0.1, 0.9}
	out := h.focus(t, r.ID)
	require.NotNil(t, out.Reward)
	assert.Equal(t, progression.AccentPalette[2], out.Reward.Accent)

	pending, err := h.PendingRewards(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, ok, err := h.ClaimReward(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	settings, err := h.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.AccentPalette[2], settings.Accent)

	_, ok, err = h.ClaimReward(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaimReward_RejectsInvalidAccent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	require.NoError(t, exec(ctx, h.Engine, func() error {
		h.stats.Offer(progression.Reward{Kind: progression.RewardAccent, Amount: 1, Accent: "not-a-colour"})
		return nil
	}))

	r, ok, err := h.ClaimReward(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "not-a-colour", r.Accent)

	settings, err := h.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, profile.DefaultAccent, settings.Accent)
	assert.NoError(t, settings.Validate())

	pending, err := h.PendingRewards(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSession_Lifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 20)

	s, err := h.StartSession(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20*60_000), s.RemainingMs)

	_, err = h.StartSession(ctx, r.ID)
	assert.ErrorIs(t, err, shukanErrors.ErrSessionActive)

	paused, err := h.PauseToggle(ctx)
	require.NoError(t, err)
	assert.True(t, paused.Paused)

	require.NoError(t, exec(ctx, h.Engine, func() error {
		h.tick(s.ID, time.Minute)
		return nil
	}))
	cur, ok, err := h.ActiveSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(20*60_000), cur.RemainingMs, "paused sessions ignore ticks")

	extended, err := h.AddMinute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(21*60_000), extended.TotalMs)
	assert.Equal(t, int64(21*60_000), extended.RemainingMs)

	_, err = h.PauseToggle(ctx)
	require.NoError(t, err)
	require.NoError(t, h.CancelSession(ctx))
	assert.ErrorIs(t, h.CancelSession(ctx), shukanErrors.ErrNoSession)

	got, err := h.Routine(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.CompletedToday)
	assert.Zero(t, got.Streak)
}

func TestAddMinute_DoesNotInflateCredit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 20)
	h.rng.ints = []int{2}

	_, err := h.StartSession(ctx, r.ID)
	require.NoError(t, err)
	for range 40 {
		_, err := h.AddMinute(ctx)
		require.NoError(t, err)
	}
	out, err := h.FinishEarly(ctx)
	require.NoError(t, err)

	require.True(t, out.Completed)
	assert.Equal(t, int64(60*60_000), out.Session.TotalMs)
	assert.Equal(t, int64(20*60_000), out.Session.DurationMs)
	assert.Equal(t, 42, out.Experience)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.FocusMinutesToday)
}

func TestTick_CompletesAndDropsStaleTicks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Lemon water", 1)

	s, err := h.StartSession(ctx, r.ID)
	require.NoError(t, err)

	require.NoError(t, exec(ctx, h.Engine, func() error {
		h.tick("stale-session", time.Hour)
		return nil
	}))
	_, ok, err := h.ActiveSession(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, exec(ctx, h.Engine, func() error {
		h.tick(s.ID, 30*time.Second)
		h.tick(s.ID, 30*time.Second)
		return nil
	}))
	_, ok, err = h.ActiveSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := h.Routine(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.CompletedToday)
	assert.Equal(t, 1, got.Streak)
}

func TestNoSession_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)

	_, err := h.PauseToggle(ctx)
	assert.ErrorIs(t, err, shukanErrors.ErrNoSession)
	_, err = h.AddMinute(ctx)
	assert.ErrorIs(t, err, shukanErrors.ErrNoSession)
	_, err = h.FinishEarly(ctx)
	assert.ErrorIs(t, err, shukanErrors.ErrNoSession)
	_, err = h.StartSession(ctx, "missing")
	assert.ErrorIs(t, err, shukanErrors.ErrNotFound)
}

func TestWeek_Bounds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	h.addRoutine(t, "Read", 20)

	w, err := h.Week(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, w.Days, 7)

	w, err = h.Week(ctx, MaxWeekDays)
	require.NoError(t, err)
	assert.Len(t, w.Days, MaxWeekDays)

	_, err = h.Week(ctx, MaxWeekDays+1)
	assert.ErrorIs(t, err, shukanErrors.ErrInvalidInput)
	_, err = h.Week(ctx, -1)
	assert.ErrorIs(t, err, shukanErrors.ErrInvalidInput)
}

func TestDayRollover_ResetsCounters(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	a := h.addRoutine(t, "Read", 10)
	b := h.addRoutine(t, "Stretch", 10)

	h.focus(t, a.ID)
	h.focus(t, b.ID)
	claim, err := h.ClaimQuest(ctx, "q_sessions")
	require.NoError(t, err)
	require.True(t, claim.Claimed)

	h.clock.Advance(24 * time.Hour)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.SessionsStartedToday)
	assert.Zero(t, stats.FocusMinutesToday)
	assert.Empty(t, stats.Claims)
	assert.Equal(t, daytime.DateOf(h.clock.Now()), stats.ScopeDate)
	assert.Equal(t, 2, stats.TotalSessionsCompleted)

	analytics, err := h.Analytics(ctx)
	require.NoError(t, err)
	assert.Zero(t, analytics.CompletedToday)
	assert.Equal(t, 2, analytics.Total)
}

func TestDayRollover_OnSessionAndSettingsCalls(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 20)

	storedScope := func() string {
		t.Helper()
		require.NoError(t, h.Flush(ctx))
		raw, err := h.kv.Get(ctx, store.KeyStats)
		require.NoError(t, err)
		var blob map[string]any
		require.NoError(t, json.Unmarshal(raw, &blob))
		return blob["scope_date"].(string)
	}

	_, err := h.StartSession(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", storedScope())

	h.clock.Advance(24 * time.Hour)
	_, err = h.PauseToggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", storedScope())

	require.NoError(t, h.CancelSession(ctx))
	h.clock.Advance(24 * time.Hour)
	_, err = h.UpdateSettings(ctx, profile.SettingsPatch{})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-12", storedScope())
}

func TestQuests_ClaimOncePerDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	a := h.addRoutine(t, "Read", 10)
	b := h.addRoutine(t, "Stretch", 10)

	claim, err := h.ClaimQuest(ctx, "q_sessions")
	require.NoError(t, err)
	assert.False(t, claim.Claimed, "unmet quest")

	h.focus(t, a.ID)
	h.focus(t, b.ID)

	board, err := h.Quests(ctx)
	require.NoError(t, err)
	byID := map[string]bool{}
	for _, q := range board {
		byID[q.ID] = q.Done
	}
	assert.True(t, byID["q_sessions"])
	assert.True(t, byID["q_minutes"])
	assert.False(t, byID["q_done"])

	claim, err = h.ClaimQuest(ctx, "q_minutes")
	require.NoError(t, err)
	require.True(t, claim.Claimed)
	assert.Equal(t, 10, claim.Grant.Gems)

	claim, err = h.ClaimQuest(ctx, "q_minutes")
	require.NoError(t, err)
	assert.False(t, claim.Claimed)

	_, err = h.ClaimQuest(ctx, "q_unknown")
	assert.ErrorIs(t, err, shukanErrors.ErrNotFound)

	stats, err := h.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Gems)
}

func TestRoutines_EditAndRemove(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	r := h.addRoutine(t, "Read", 20)
	h.focus(t, r.ID)

	title := "Read fiction"
	bad := "25:00"
	_, err := h.EditRoutine(ctx, r.ID, routine.Fields{ScheduledTime: &bad})
	assert.ErrorIs(t, err, shukanErrors.ErrInvalidInput)

	edited, err := h.EditRoutine(ctx, r.ID, routine.Fields{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Read fiction", edited.Title)
	assert.Equal(t, 1, edited.Streak, "edits keep progress")

	found, err := h.Routines(ctx, "FICTION")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = h.StartSession(ctx, r.ID)
	require.NoError(t, err)
	require.NoError(t, h.RemoveRoutine(ctx, r.ID))

	_, ok, err := h.ActiveSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "removing the routine cancels its session")
	assert.ErrorIs(t, h.RemoveRoutine(ctx, r.ID), shukanErrors.ErrNotFound)
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newHarness(t, nil, false)
	r := src.addRoutine(t, "Read", 20)
	src.focus(t, r.ID)

	doc, err := src.Export(ctx)
	require.NoError(t, err)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	dst := newHarness(t, nil, true)
	require.NoError(t, dst.Import(ctx, data))

	routines, err := dst.Routines(ctx, "")
	require.NoError(t, err)
	require.Len(t, routines, 1)
	assert.Equal(t, r.ID, routines[0].ID)
	assert.Equal(t, 1, routines[0].Streak)

	stats, err := dst.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessionsCompleted)

	err = dst.Import(ctx, []byte(`{"routines":[{"id":""}]}`))
	assert.ErrorIs(t, err, shukanErrors.ErrInvalidInput)
	routines, err = dst.Routines(ctx, "")
	require.NoError(t, err)
	assert.Len(t, routines, 1, "rejected import leaves state alone")
}

func TestState_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemoryKV()

	first := newHarness(t, kv, false)
	r := first.addRoutine(t, "Read", 20)
	first.focus(t, r.ID)
	accent := "#7faab0"
	_, err := first.UpdateSettings(ctx, profile.SettingsPatch{Accent: &accent})
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	second := newHarness(t, kv, true)
	routines, err := second.Routines(ctx, "")
	require.NoError(t, err)
	require.Len(t, routines, 1)
	assert.Equal(t, 1, routines[0].Streak)

	snap, err := second.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Stats.TotalSessionsCompleted)
	assert.Equal(t, accent, snap.Settings.Accent)
	assert.Nil(t, snap.Session)
	assert.Len(t, snap.Quests, 3)
}

func TestClose_RejectsFurtherCalls(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, false)
	require.NoError(t, h.Close(ctx))

	_, err := h.Routines(ctx, "")
	assert.ErrorIs(t, err, ErrClosed)
}
