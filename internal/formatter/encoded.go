package formatter

import (
	"encoding/json"
	"strings"

	"github.com/harunnryd/shukan/internal/engine"
	"github.com/harunnryd/shukan/internal/progression"
	"github.com/harunnryd/shukan/internal/quest"
	"github.com/harunnryd/shukan/internal/routine"

	"gopkg.in/yaml.v3"
)

// encodedFormatter prints any view through a single encode function.
type encodedFormatter struct {
	encode func(v any) (string, error)
}

func NewJSONFormatter() Formatter {
	return encodedFormatter{encode: encodeJSON}
}

// NewYAMLFormatter emits YAML keyed like the JSON API.
func NewYAMLFormatter() Formatter {
	return encodedFormatter{encode: encodeYAML}
}

func (f encodedFormatter) Routines(v []routine.Routine) (string, error) {
	return f.encode(emptyIfNil(v))
}

func (f encodedFormatter) Week(v routine.Week) (string, error) {
	return f.encode(v)
}

func (f encodedFormatter) Quests(v []quest.Progress) (string, error) {
	return f.encode(emptyIfNil(v))
}

func (f encodedFormatter) Rewards(v []progression.Reward) (string, error) {
	return f.encode(emptyIfNil(v))
}

func (f encodedFormatter) Achievements(v []progression.Unlock) (string, error) {
	return f.encode(emptyIfNil(v))
}

func (f encodedFormatter) Analytics(v engine.Analytics) (string, error) {
	return f.encode(v)
}

func (f encodedFormatter) Outcome(v engine.Outcome) (string, error) {
	return f.encode(v)
}

func emptyIfNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func encodeJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// encodeYAML goes through JSON so field names follow the json tags. The
// JSON is parsed as YAML into a node tree, which keeps key order, then the
// flow styles are cleared so the output is block YAML.
func encodeYAML(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}
	clearStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
