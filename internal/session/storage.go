package session

import (
	"context"
	"sync"
)

// Storage persists the token, user and modulo keys of a session.
type Storage interface {
	Load(ctx context.Context, sessionID string) (map[string]string, error)
	Save(ctx context.Context, sessionID string, values map[string]string) error
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStorage is used when no database is reachable.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[string]map[string]string)}
}

func (m *MemoryStorage) Load(_ context.Context, sessionID string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.sessions[sessionID]))
	for k, v := range m.sessions[sessionID] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStorage) Save(_ context.Context, sessionID string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionID]
	if !ok {
		entry = make(map[string]string, len(values))
		m.sessions[sessionID] = entry
	}
	for k, v := range values {
		entry[k] = v
	}
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
