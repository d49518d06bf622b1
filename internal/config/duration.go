package config

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/debounce/internal/errors"
)

// Duration is a delay written as a Go duration string ("300ms") or as a
// bare number of milliseconds.
type Duration time.Duration

// String returns the duration in Go notation.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON encodes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of milliseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}

	parsed, err := parseDelay(raw)
	if err != nil {
		return invalidDelay(raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes d as a duration string.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalYAML accepts a duration string or a number of milliseconds.
// Errors carry the node's position.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		e := invalidDelay("", nil)
		e.Location = &errors.Location{Line: node.Line, Column: node.Column}
		return e
	}

	parsed, err := parseDelay(node.Value)
	if err != nil {
		e := invalidDelay(node.Value, err)
		e.Location = &errors.Location{Line: node.Line, Column: node.Column}
		return e
	}
	*d = Duration(parsed)
	return nil
}

func invalidDelay(raw string, err error) *errors.Error {
	e := errors.New("E121").
		WithSuggestion("Use a Go duration such as 300ms or 1.5s, or a number of milliseconds").
		WithExample("delay: 300ms")
	if raw != "" {
		e.WithDetail("Cannot use " + strconv.Quote(raw) + " as a delay.")
	}
	if err != nil {
		e.Wrap(err)
	}
	return e
}

// parseDelay parses a duration string, or a plain number as milliseconds.
// Negative values are returned for Validate to reject.
func parseDelay(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}

	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms*float64(time.Millisecond)) >= math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}
