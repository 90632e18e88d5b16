// Package documents stages draft attachments until the opportunity is created.
package documents

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// MaxSize bounds a single staged document.
const MaxSize = 10 << 20

var (
	ErrNotFound = errors.New("staged document not found")
	ErrTooLarge = fmt.Errorf("document exceeds %d bytes", MaxSize)
	ErrEmpty    = errors.New("document is empty")
)

// Object is one staged file.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
}

type Stager interface {
	// Put stores the object for a draft slot and returns its staging key.
	Put(ctx context.Context, draftID string, slot int, obj Object) (string, error)
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// StagingKey is the key used for a draft slot in every stager.
func StagingKey(draftID string, slot int) string {
	return fmt.Sprintf("%s/slot-%d", draftID, slot)
}

func check(obj Object) error {
	if len(obj.Data) == 0 {
		return ErrEmpty
	}
	if len(obj.Data) > MaxSize {
		return ErrTooLarge
	}
	return nil
}

// MemoryStager keeps documents in process memory. Used when no bucket is configured.
type MemoryStager struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStager() *MemoryStager {
	return &MemoryStager{objects: make(map[string]Object)}
}

func (m *MemoryStager) Put(_ context.Context, draftID string, slot int, obj Object) (string, error) {
	if err := check(obj); err != nil {
		return "", err
	}
	key := StagingKey(draftID, slot)
	obj.Data = append([]byte(nil), obj.Data...)
	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()
	return key, nil
}

func (m *MemoryStager) Get(_ context.Context, key string) (Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return Object{}, ErrNotFound
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, nil
}

func (m *MemoryStager) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
