// Package session provides per-chat conversation state storage.
//
// The store is a key-value abstraction keyed by chat ID so that the flow
// logic never depends on a concrete backend: a single-process map, Redis,
// or a database-backed table can be substituted without touching flows.
package session

import (
	"context"
	"sync"

	"github.com/yahahealth/yaha/internal/models"
)

// Store manages conversation state for chats. Implementations must treat
// Clear as idempotent: clearing an absent chat is not an error.
type Store interface {
	// Get returns the active state for a chat, or nil if no flow is active.
	Get(ctx context.Context, chatID int64) (*models.ConversationState, error)

	// Set stores the state for a chat, replacing any existing state.
	Set(ctx context.Context, chatID int64, state *models.ConversationState) error

	// Clear removes the state for a chat.
	Clear(ctx context.Context, chatID int64) error
}

// MemoryStore is an in-process Store backed by a mutex-guarded map.
// Suitable for a single instance; state does not survive restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*models.ConversationState
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]*models.ConversationState)}
}

// Get returns the active state for a chat, or nil if none exists.
func (s *MemoryStore) Get(ctx context.Context, chatID int64) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[chatID], nil
}

// Set stores the state for a chat, replacing any existing state.
func (s *MemoryStore) Set(ctx context.Context, chatID int64, state *models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = state
	return nil
}

// Clear removes the state for a chat. Clearing an absent chat is a no-op.
func (s *MemoryStore) Clear(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}
