package store

import (
	"context"
	"sync"

	"cruisesync/pkg/models"
)

// Memory keeps documents in process. It backs dry runs and tests.
type Memory struct {
	mu   sync.Mutex
	docs map[models.Kind][]Document
	runs []Run

	// FailWrite, when set, is returned by WriteSnapshot for that kind.
	FailWrite map[models.Kind]error
}

func NewMemory() *Memory {
	return &Memory{docs: map[models.Kind][]Document{}, FailWrite: map[models.Kind]error{}}
}

func (m *Memory) ReadSnapshot(_ context.Context, kind models.Kind) ([]Document, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Document{}, m.docs[kind]...), nil
}

func (m *Memory) WriteSnapshot(_ context.Context, kind models.Kind, docs []Document) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailWrite[kind]; err != nil {
		return err
	}

	idx := make(map[string]int, len(m.docs[kind]))
	for i, d := range m.docs[kind] {
		idx[d.Key] = i
	}
	cur := m.docs[kind]
	for _, d := range docs {
		if i, ok := idx[d.Key]; ok {
			cur[i] = d
			continue
		}
		idx[d.Key] = len(cur)
		cur = append(cur, d)
	}
	m.docs[kind] = cur
	return nil
}

func (m *Memory) RecordRun(_ context.Context, run Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) LastRun(context.Context) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil, nil
	}
	r := m.runs[len(m.runs)-1]
	return &r, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }
