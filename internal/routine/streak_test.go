package routine

import (
	"testing"

	"github.com/harunnryd/shukan/internal/daytime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var today = daytime.MustParse("2026-03-10")

func newRoutine(t *testing.T) Routine {
	t.Helper()
	r, err := New(Fields{})
	require.NoError(t, err)
	return r
}

func TestComplete_FirstEver(t *testing.T) {
	r := newRoutine(t)

	got, ev := Complete(r, today, 1_200_000)

	require.NotNil(t, ev)
	assert.Equal(t, 1, got.Streak)
	assert.Equal(t, today, got.LastCompletedDate)
	assert.True(t, got.CompletedToday)
	assert.True(t, got.History[today])
	assert.Equal(t, RoutineCompleted{RoutineID: r.ID, DurationMs: 1_200_000, Date: today}, *ev)
}

func TestComplete_Yesterday(t *testing.T) {
	r := newRoutine(t)
	r.Streak = 5
	r.LastCompletedDate = today.AddDays(-1)

	got, ev := Complete(r, today, 60_000)

	require.NotNil(t, ev)
	assert.Equal(t, 6, got.Streak)
	assert.Equal(t, today, got.LastCompletedDate)
	assert.True(t, got.History[today])
}

func TestComplete_ThreeDaysAgoWithShields(t *testing.T) {
	r := newRoutine(t)
	r.Streak = 12
	r.ShieldCount = 2
	r.LastCompletedDate = today.AddDays(-3)

	got, _ := Complete(r, today, 60_000)

	assert.Equal(t, 1, got.Streak)
	assert.Equal(t, 2, got.ShieldCount)
}

func TestComplete_ShieldBridgesOneDay(t *testing.T) {
	tests := []struct {
		name        string
		shields     int
		wantStreak  int
		wantShields int
	}{
		{"with shield", 1, 5, 0},
		{"with several shields", 3, 5, 2},
		{"without shield", 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRoutine(t)
			r.Streak = 4
			r.ShieldCount = tt.shields
			r.LastCompletedDate = today.AddDays(-2)

			got, ev := Complete(r, today, 60_000)

			require.NotNil(t, ev)
			assert.Equal(t, tt.wantStreak, got.Streak)
			assert.Equal(t, tt.wantShields, got.ShieldCount)
		})
	}
}

func TestComplete_Idempotent(t *testing.T) {
	r := newRoutine(t)
	first, ev := Complete(r, today, 60_000)
	require.NotNil(t, ev)

	second, ev := Complete(first, today, 60_000)

	assert.Nil(t, ev)
	assert.Equal(t, first, second)
}

func TestComplete_SameDayWithoutCachedFlag(t *testing.T) {
	r := newRoutine(t)
	r.Streak = 3
	r.LastCompletedDate = today

	got, ev := Complete(r, today, 60_000)

	require.NotNil(t, ev)
	assert.Equal(t, 3, got.Streak)
}

func TestComplete_DoesNotMutateInput(t *testing.T) {
	r := newRoutine(t)

	_, _ = Complete(r, today, 60_000)

	assert.Empty(t, r.History)
	assert.False(t, r.CompletedToday)
}

func TestComplete_StreakContinuity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 400).Draw(t, "days")
		start := daytime.MustParse("2025-01-01").AddDays(rapid.IntRange(0, 3000).Draw(t, "offset"))

		r, err := New(Fields{})
		if err != nil {
			t.Fatal(err)
		}
		for i := range n {
			day := start.AddDays(i)
			r.RefreshDay(day)
			r, _ = Complete(r, day, 60_000)
		}
		if r.Streak != n {
			t.Fatalf("streak = %d after %d consecutive days", r.Streak, n)
		}
	})
}

func TestComplete_GapResets(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		streak := rapid.IntRange(0, 1000).Draw(t, "streak")
		shields := rapid.IntRange(0, 10).Draw(t, "shields")
		gap := rapid.IntRange(3, 500).Draw(t, "gap")

		r, err := New(Fields{})
		if err != nil {
			t.Fatal(err)
		}
		r.Streak = streak
		r.ShieldCount = shields
		r.LastCompletedDate = today.AddDays(-gap)

		got, _ := Complete(r, today, 60_000)
		if got.Streak != 1 {
			t.Fatalf("streak = %d after a %d day gap", got.Streak, gap)
		}
		if got.ShieldCount != shields {
			t.Fatalf("shields = %d, want %d", got.ShieldCount, shields)
		}
	})
}
