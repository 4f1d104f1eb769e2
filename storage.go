package opspod

import (
	"context"
	"sync"
)

// SessionStore keeps the message history of each conversation keyed by
// session id. Loading an unknown session returns an empty history.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) ([]Message, error)
	Save(ctx context.Context, sessionID string, messages []Message) error
	Delete(ctx context.Context, sessionID string) error
}

var _ SessionStore = &MemoryStore{}

// MemoryStore is a process local SessionStore.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]Message{}}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return CloneMessages(m.sessions[sessionID]), nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, messages []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = CloneMessages(messages)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
