package docstore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is the canonical in-process backend: a mutex-guarded map of
// deep-copied documents with hub fan-out after every mutation.
type Memory struct {
	mu   sync.Mutex
	docs map[string]map[string]any
	hub  *Hub
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]map[string]any),
		hub:  NewHub(),
	}
}

func (m *Memory) Create(ctx context.Context, data map[string]any) (string, error) {
	code := uuid.NewString()
	return code, m.Set(ctx, code, data)
}

func (m *Memory) Set(ctx context.Context, code string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[code] = CopyDoc(data)
	m.notify(code)
	return nil
}

func (m *Memory) Get(ctx context.Context, code string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[code]
	if !ok {
		return nil, ErrNotFound
	}
	return CopyDoc(doc), nil
}

func (m *Memory) Update(ctx context.Context, code string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[code]
	if !ok {
		return ErrNotFound
	}
	ApplyFields(doc, CopyDoc(fields))
	m.notify(code)
	return nil
}

func (m *Memory) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[code]; !ok {
		return nil
	}
	delete(m.docs, code)
	m.notify(code)
	return nil
}

func (m *Memory) ListAll(ctx context.Context) (map[string]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]map[string]any, len(m.docs))
	for code, doc := range m.docs {
		out[code] = CopyDoc(doc)
	}
	return out, nil
}

func (m *Memory) Subscribe(ctx context.Context, code string, fn func(Snapshot)) (UnsubscribeFunc, error) {
	// Registration and the initial snapshot happen under the store lock so
	// no mutation can slip in between them out of order.
	m.mu.Lock()
	sub := m.hub.Add(code, fn)
	sub.Send(m.snapshot(code))
	m.mu.Unlock()
	return sub.Close, nil
}

// snapshot builds the current state of one document. Caller holds m.mu.
func (m *Memory) snapshot(code string) Snapshot {
	doc, ok := m.docs[code]
	if !ok {
		return Snapshot{Code: code, Exists: false}
	}
	return Snapshot{Code: code, Exists: true, Data: CopyDoc(doc)}
}

// notify publishes the document's new state. Caller holds m.mu.
func (m *Memory) notify(code string) {
	m.hub.Publish(m.snapshot(code))
}
