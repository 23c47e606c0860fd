// Package bridge parses extractor messages and applies them to a session.
package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"cruisesync/pkg/models"
)

// Message types sent by the extractor.
const (
	TypeLog            = "log"
	TypeProgress       = "progress"
	TypeRecordBatch    = "record_batch"
	TypeNetworkPayload = "network_payload"
	TypeStepComplete   = "step_complete"
	TypeError          = "error"
	TypeAuthStatus     = "auth_status"
	TypeAck            = "ack"
)

var ErrMalformed = errors.New("malformed envelope")

// Envelope is one message from the extractor. Which fields are set depends
// on Type.
type Envelope struct {
	Type  string `json:"type"`
	Step  int    `json:"step,omitempty"`
	Level string `json:"level,omitempty"`

	// record_batch
	Kind       models.RecordKind  `json:"kind,omitempty"`
	Data       []models.RawRecord `json:"data,omitempty"`
	IsFinal    bool               `json:"isFinal,omitempty"`
	TotalCount int                `json:"totalCount,omitempty"`

	// progress
	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`

	// log, progress, error
	Message string `json:"message,omitempty"`

	// auth_status
	Authenticated *bool `json:"authenticated,omitempty"`

	// network_payload
	Endpoint string          `json:"endpoint,omitempty"`
	URL      string          `json:"url,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`

	// ack
	ID   string `json:"id,omitempty"`
	OK   bool   `json:"ok,omitempty"`
	Code string `json:"code,omitempty"`
}

// Parse decodes one message. It fails for invalid JSON and for a missing type.
func Parse(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env, nil
}

// body returns the payload as JSON. Intercepted responses often arrive as a
// JSON string holding the response text.
func (e Envelope) body() []byte {
	p := bytes.TrimSpace(e.Payload)
	if len(p) > 0 && p[0] == '"' {
		var s string
		if err := json.Unmarshal(p, &s); err == nil {
			return []byte(s)
		}
	}
	return p
}
