package normalize

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the single canonical serialized date form.
const DateLayout = "01-02-2006"

var ErrUnparseableDate = errors.New("unparseable date")

// dateLayouts is tried in order. The canonical dashed form comes first so a
// canonical value never takes a slower path.
var dateLayouts = []string{
	DateLayout,
	"1-2-2006",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses the dash, slash and ISO forms the extractor emits.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseableDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrUnparseableDate
}

// FormatDate serializes t in the canonical form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// IsCanonicalDate reports whether s is already in canonical form.
func IsCanonicalDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	return err == nil && t.Format(DateLayout) == s
}

// Date re-serializes a parseable date in canonical form. An unparseable
// value is returned untouched with an issue so no data is lost.
func Date(raw string) Result[string] {
	res := Result[string]{OriginalValue: raw, Value: raw}
	if strings.TrimSpace(raw) == "" {
		return res
	}
	if IsCanonicalDate(raw) {
		return res
	}
	t, err := ParseDate(raw)
	if err != nil {
		res.Issues = append(res.Issues, "unparseable date "+quote(raw))
		return res
	}
	res.Value = FormatDate(t)
	res.WasNormalized = res.Value != raw
	return res
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
