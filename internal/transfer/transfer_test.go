package transfer

import (
	"testing"
	"time"

	"github.com/harunnryd/shukan/internal/daytime"
	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/profile"
	"github.com/harunnryd/shukan/internal/routine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportThenDecode(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	today := daytime.DateOf(now)
	routines := routine.Examples(today)
	stats := profile.DefaultStats(now, today)
	stats.Gems = 30
	settings := profile.DefaultSettings()
	settings.Accent = "#9fbac1"

	data, err := Encode(Export(routines, stats, settings))
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, doc.Routines)
	require.NotNil(t, doc.Stats)
	require.NotNil(t, doc.Settings)
	assert.Len(t, *doc.Routines, 2)
	assert.Equal(t, routines[0].History, (*doc.Routines)[0].History)
	assert.Equal(t, 30, doc.Stats.Gems)
	assert.Equal(t, today, doc.Stats.ScopeDate)
	assert.Equal(t, "#9fbac1", doc.Settings.Accent)
}

func TestDecode_PartialDocument(t *testing.T) {
	doc, err := Decode([]byte(`{"settings":{"sound":false}}`))
	require.NoError(t, err)

	assert.Nil(t, doc.Routines)
	assert.Nil(t, doc.Stats)
	require.NotNil(t, doc.Settings)
	assert.False(t, doc.Settings.Sound)
	assert.Equal(t, profile.DefaultAccent, doc.Settings.Accent, "missing settings keys keep defaults")
}

func TestDecode_NormalizesRoutines(t *testing.T) {
	doc, err := Decode([]byte(`{"routines":[{"id":"legacy-1","title":"","scheduled_time":"7:05","duration_minutes":0}]}`))
	require.NoError(t, err)

	r := (*doc.Routines)[0]
	assert.Equal(t, "legacy-1", r.ID)
	assert.Equal(t, routine.DefaultTitle, r.Title)
	assert.Equal(t, "07:05", r.ScheduledTime)
	assert.Equal(t, 1, r.DurationMinutes)
}

func TestDecode_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed json":        `{"routines": [`,
		"not an object":         `[1,2,3]`,
		"no known fields":       `{"notes":{}}`,
		"empty object":          `{}`,
		"routines wrong type":   `{"routines":"many","settings":{"sound":true}}`,
		"null field":            `{"settings":null}`,
		"routine without id":    `{"routines":[{"title":"x","scheduled_time":"08:00"}]}`,
		"duplicate routine ids": `{"routines":[{"id":"a","scheduled_time":"08:00"},{"id":"a","scheduled_time":"09:00"}]}`,
		"bad history date":      `{"routines":[{"id":"a","scheduled_time":"08:00","history":{"yesterday":true}}]}`,
		"bad time":              `{"routines":[{"id":"a","scheduled_time":"25:00"}]}`,
		"negative gems":         `{"stats":{"gems":-4}}`,
		"bad accent":            `{"settings":{"accent":"blue"}}`,
		"stats wrong type":      `{"stats":{"experience":"lots"}}`,
		"negative reward":       `{"stats":{"gems":5,"pending_rewards":[{"kind":"gems","amount":-50}]}}`,
		"reward bad accent":     `{"stats":{"pending_rewards":[{"kind":"accent","amount":1,"accent":"not-a-colour"}]}}`,
		"reward unknown kind":   `{"stats":{"pending_rewards":[{"kind":"mystery","amount":1}]}}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(input))
			assert.ErrorIs(t, err, shukanErrors.ErrInvalidInput)
		})
	}
}
