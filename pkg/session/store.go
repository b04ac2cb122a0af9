package session

import (
	"context"
	"sync"
	"time"
)

// Store persists TurnContext between requests, keyed by session id.
// Get returns (nil, nil) for an unknown session: a first question has no
// history and that is not an error.
type Store interface {
	Get(ctx context.Context, sessionID string) (*TurnContext, error)
	Save(ctx context.Context, turn *TurnContext) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is an in-process Store. It is the default when Redis is not
// configured; context survives only as long as the process does.
type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string]*TurnContext
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: make(map[string]*TurnContext)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (*TurnContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turn, ok := s.turns[sessionID]
	if !ok {
		return nil, nil
	}
	copied := *turn
	return &copied, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, turn *TurnContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *turn
	copied.UpdatedAt = time.Now().UTC()
	s.turns[turn.SessionID] = &copied
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.turns, sessionID)
	return nil
}

// Ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
