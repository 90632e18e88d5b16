package session

import (
	"context"
	"sync"
)

// Manager hands out one initialised Container per session id.
type Manager struct {
	storage Storage
	mu      sync.Mutex
	live    map[string]*Container
}

// NewManager uses storage, or in-memory storage when storage is nil.
func NewManager(storage Storage) *Manager {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &Manager{storage: storage, live: make(map[string]*Container)}
}

// Open returns the container for sessionID, initialising it on first use.
func (m *Manager) Open(ctx context.Context, sessionID string) *Container {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.live[sessionID]; ok {
		return c
	}
	c := NewContainer(sessionID, m.storage)
	c.Init(ctx)
	m.live[sessionID] = c
	return c
}

// Forget drops the in-memory container for sessionID.
func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.live[sessionID]; ok {
		c.Teardown()
		delete(m.live, sessionID)
	}
}

// Teardown releases every live container. Called on shutdown.
func (m *Manager) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.live {
		c.Teardown()
		delete(m.live, id)
	}
}
