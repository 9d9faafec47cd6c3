// Package transfer reads and writes the portable backup document.
package transfer

import (
	"bytes"
	"encoding/json"
	"fmt"

	shukanErrors "github.com/harunnryd/shukan/internal/errors"
	"github.com/harunnryd/shukan/internal/profile"
	"github.com/harunnryd/shukan/internal/routine"
)

// Document is the export format. On import, a nil field means the key was
// absent and that part of the state is left alone.
type Document struct {
	Routines *[]routine.Routine `json:"routines,omitempty"`
	Stats    *profile.Stats     `json:"stats,omitempty"`
	Settings *profile.Settings  `json:"settings,omitempty"`
}

// Export assembles a complete document.
func Export(routines []routine.Routine, stats profile.Stats, settings profile.Settings) Document {
	return Document{Routines: &routines, Stats: &stats, Settings: &settings}
}

// Encode renders the document as indented JSON.
func Encode(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses and validates an import document. Any malformed field
// rejects the whole document; so does a document with none of the three
// fields.
func Decode(data []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, shukanErrors.Wrap(shukanErrors.ErrInvalidInput, fmt.Sprintf("import is not a JSON object: %v", err))
	}

	var doc Document
	if msg, ok := raw["routines"]; ok {
		var routines []routine.Routine
		if err := decodeField("routines", msg, &routines); err != nil {
			return Document{}, err
		}
		if err := validateRoutines(routines); err != nil {
			return Document{}, err
		}
		doc.Routines = &routines
	}
	if msg, ok := raw["stats"]; ok {
		var stats profile.Stats
		if err := decodeField("stats", msg, &stats); err != nil {
			return Document{}, err
		}
		if err := stats.Validate(); err != nil {
			return Document{}, err
		}
		stats.Normalize()
		doc.Stats = &stats
	}
	if msg, ok := raw["settings"]; ok {
		settings := profile.DefaultSettings()
		if err := decodeField("settings", msg, &settings); err != nil {
			return Document{}, err
		}
		if err := settings.Validate(); err != nil {
			return Document{}, err
		}
		doc.Settings = &settings
	}

	if doc.Routines == nil && doc.Stats == nil && doc.Settings == nil {
		return Document{}, shukanErrors.InvalidInput("import contains none of routines, stats or settings")
	}
	return doc, nil
}

func decodeField(name string, msg json.RawMessage, into any) error {
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return shukanErrors.InvalidInput(fmt.Sprintf("import field %s is null", name))
	}
	if err := json.Unmarshal(msg, into); err != nil {
		return shukanErrors.Wrap(shukanErrors.ErrInvalidInput, fmt.Sprintf("import field %s: %v", name, err))
	}
	return nil
}

func validateRoutines(routines []routine.Routine) error {
	seen := make(map[string]struct{}, len(routines))
	for i := range routines {
		r := &routines[i]
		if r.ID == "" {
			return shukanErrors.InvalidInput(fmt.Sprintf("routine %d has no id", i))
		}
		if _, dup := seen[r.ID]; dup {
			return shukanErrors.InvalidInput(fmt.Sprintf("routine id %s appears twice", r.ID))
		}
		seen[r.ID] = struct{}{}

		if r.Streak < 0 || r.ShieldCount < 0 {
			return shukanErrors.InvalidInput(fmt.Sprintf("routine %s has negative counters", r.ID))
		}
		at, err := routine.NormalizeTime(r.ScheduledTime)
		if err != nil {
			return err
		}
		r.ScheduledTime = at
		r.DurationMinutes = max(1, r.DurationMinutes)
		if r.Title == "" {
			r.Title = routine.DefaultTitle
		}
		if r.Emoji == "" {
			r.Emoji = routine.DefaultEmoji
		}
	}
	return nil
}
