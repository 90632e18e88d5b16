package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrDraftNotFound = errors.New("draft not found")

// DraftStore keeps encoded form snapshots between requests.
type DraftStore interface {
	Save(ctx context.Context, id string, payload []byte, ttl time.Duration) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

type redisDraftStore struct {
	client *redis.Client
}

func NewRedisDraftStore(client *redis.Client) DraftStore {
	return &redisDraftStore{client: client}
}

func draftKey(id string) string {
	return "portal:draft:" + id
}

func (s *redisDraftStore) Save(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, draftKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft %s: %w", id, err)
	}
	return nil
}

func (s *redisDraftStore) Load(ctx context.Context, id string) ([]byte, error) {
	payload, err := s.client.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft %s: %w", id, err)
	}
	return payload, nil
}

func (s *redisDraftStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft %s: %w", id, err)
	}
	return nil
}

type memoryDraft struct {
	payload   []byte
	expiresAt time.Time
}

type MemoryDraftStore struct {
	mu     sync.Mutex
	drafts map[string]memoryDraft
	now    func() time.Time
}

func NewMemoryDraftStore() *MemoryDraftStore {
	return &MemoryDraftStore{drafts: make(map[string]memoryDraft), now: time.Now}
}

func (s *MemoryDraftStore) Save(_ context.Context, id string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[id] = memoryDraft{payload: append([]byte(nil), payload...), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryDraftStore) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	if !s.now().Before(draft.expiresAt) {
		delete(s.drafts, id)
		return nil, ErrDraftNotFound
	}
	return append([]byte(nil), draft.payload...), nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}
