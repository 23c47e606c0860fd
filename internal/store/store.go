// Package store persists reconciled snapshots. Each kind is a set of JSON
// documents addressed by identity key.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cruisesync/pkg/models"
)

var ErrUnknownKind = errors.New("unknown kind")

// Document is one stored record.
type Document struct {
	Key  string          `json:"key"`
	Body json.RawMessage `json:"body"`
}

// Run is the outcome of one commit, kept for history.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Summary    json.RawMessage
	Error      string
}

// Store is the read/write contract the pipeline uses. WriteSnapshot
// upserts every document of one kind atomically; documents not in docs
// are left in place.
type Store interface {
	ReadSnapshot(ctx context.Context, kind models.Kind) ([]Document, error)
	WriteSnapshot(ctx context.Context, kind models.Kind, docs []Document) error
	RecordRun(ctx context.Context, run Run) error
	LastRun(ctx context.Context) (*Run, error)
	Ping(ctx context.Context) error
	Close() error
}

func checkKind(kind models.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// Decode unmarshals every document body into T.
func Decode[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Body, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Encode marshals records into documents keyed by key.
func Encode[T any](recs []T, key func(T) string) ([]Document, error) {
	out := make([]Document, 0, len(recs))
	for _, r := range recs {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key(r), err)
		}
		out = append(out, Document{Key: key(r), Body: b})
	}
	return out, nil
}
