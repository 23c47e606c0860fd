// Package validate runs fixed, ordered rule sets over canonical records and
// scores the overall quality of a collection.
package validate

import (
	"encoding/json"
	"fmt"
)

// Severity is a closed enumeration of issue severities.
type Severity uint8

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityError, SeverityWarning, SeverityInfo:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid severity %d", uint8(s))
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("invalid severity %q", string(b))
	}
	return nil
}

// Issue is one failed check.
type Issue struct {
	Field          string   `json:"field"`
	Message        string   `json:"message"`
	Severity       Severity `json:"severity"`
	CurrentValue   any      `json:"current_value,omitempty"`
	SuggestedValue any      `json:"suggested_value,omitempty"`
	AutoFixable    bool     `json:"auto_fixable"`
}

// Report aggregates the issues found on one record.
type Report struct {
	Kind   string  `json:"kind"`
	Key    string  `json:"key,omitempty"`
	Issues []Issue `json:"issues"`
}

// IsValid is true when the record carries no error-severity issue.
func (r Report) IsValid() bool { return r.Errors() == 0 }

func (r Report) Errors() int   { return r.count(SeverityError) }
func (r Report) Warnings() int { return r.count(SeverityWarning) }

func (r Report) count(s Severity) int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == s {
			n++
		}
	}
	return n
}

// AutoFixable counts the issues the repairer may act on.
func (r Report) AutoFixable() int {
	n := 0
	for _, is := range r.Issues {
		if is.AutoFixable {
			n++
		}
	}
	return n
}

func (r *Report) add(is Issue) {
	r.Issues = append(r.Issues, is)
}

// MarshalJSON adds the derived validity flag and counters.
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		plain
		IsValid     bool `json:"is_valid"`
		AutoFixable int  `json:"auto_fixable"`
	}{plain(r), r.IsValid(), r.AutoFixable()})
}
