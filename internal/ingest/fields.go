// Package ingest decodes the loosely typed records the extractor emits into
// canonical models. A record that cannot be decoded is skipped, never fatal.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cruisesync/internal/normalize"
	"cruisesync/pkg/models"
)

var ErrMalformed = errors.New("malformed record")

// Skip describes one record that could not be decoded.
type Skip struct {
	Index int
	Err   error
}

func (s Skip) Error() string { return fmt.Sprintf("record %d: %v", s.Index, s.Err) }

// lookup returns the first present, non-nil value among the alias keys.
func lookup(r models.RawRecord, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(r models.RawRecord, keys ...string) string {
	v, ok := lookup(r, keys...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func money(r models.RawRecord, keys ...string) float64 {
	v, ok := lookup(r, keys...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		return normalize.Currency(t).Value
	}
	return 0
}

func integer(r models.RawRecord, keys ...string) int {
	v, ok := lookup(r, keys...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		return normalize.Count(t).Value
	}
	return 0
}

func boolean(r models.RawRecord, keys ...string) bool {
	v, ok := lookup(r, keys...)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b || strings.EqualFold(strings.TrimSpace(t), "yes")
	case float64:
		return t != 0
	}
	return false
}

// strings returns a string list from either a JSON array or a separated string.
func stringList(r models.RawRecord, keys ...string) []string {
	v, ok := lookup(r, keys...)
	if !ok {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.FieldsFunc(t, func(r rune) bool { return r == ';' || r == '|' || r == '\n' }) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func records(r models.RawRecord, keys ...string) []models.RawRecord {
	v, ok := lookup(r, keys...)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]models.RawRecord, 0, len(list))
	for _, e := range list {
		switch m := e.(type) {
		case map[string]any:
			out = append(out, models.RawRecord(m))
		case models.RawRecord:
			out = append(out, m)
		}
	}
	return out
}
