// Package formatter renders engine views for the terminal.
package formatter

import (
	"fmt"
	"strings"

	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/quest"
	"github.com/harunnryd/shukan/internal/routine"
)

type OutputFormat string

const (
	OutputFormatTable OutputFormat = "table"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
)

type Formatter interface {
	Routines([]routine.Routine) (string, error)
	Week(routine.Week) (string, error)
	Quests([]quest.Progress) (string, error)
	Rewards([]progression.Reward) (string, error)
	Achievements([]progression.Unlock) (string, error)
	Analytics(engine.Analytics) (string, error)
	Outcome(engine.Outcome) (string, error)
}

func New(format OutputFormat) (Formatter, error) {
	switch format {
	case OutputFormatTable:
		return NewTableFormatter(), nil
	case OutputFormatJSON:
		return NewJSONFormatter(), nil
	case OutputFormatYAML:
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, json, yaml)", format)
	}
}

func ParseOutputFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	switch format {
	case OutputFormatTable, OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (supported: table, json, yaml)", s)
	}
}
