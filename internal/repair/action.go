// Package repair applies deterministic fixes to canonical records and
// re-validates them until nothing more can be fixed automatically.
package repair

import "fmt"

// Kind classifies a repair action.
type Kind uint8

const (
	Normalize Kind = iota + 1
	Calculate
	Default
	Remove
)

func (k Kind) String() string {
	switch k {
	case Normalize:
		return "normalize"
	case Calculate:
		return "calculate"
	case Default:
		return "default"
	case Remove:
		return "remove"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case Normalize, Calculate, Default, Remove:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("repair: invalid kind %d", uint8(k))
}

// Action records one change made to a record.
type Action struct {
	Field       string `json:"field"`
	Original    any    `json:"original,omitempty"`
	Repaired    any    `json:"repaired,omitempty"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
}

// log collects actions for a single record.
type log []Action

func (l *log) add(field string, from, to any, kind Kind, desc string) {
	*l = append(*l, Action{Field: field, Original: from, Repaired: to, Kind: kind, Description: desc})
}
