// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// This is a lightweight registry for active solving sessions, keyed by
// session ID with a secondary index by player.
//
// Characteristics:
//   - Stores *trainer.Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts; progress itself is persisted
//     separately by the progress package.
//   - ErrNotFound is returned for missing session IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/bvst/ChessHawk-sub000/internal/trainer"
)

// ErrNotFound is returned when no session exists for the given key.
var ErrNotFound = errors.New("session not found")

// Store defines the registry interface for active solving sessions.
// Implementations may be backed by memory (this package), Redis, SQL, etc.
type Store interface {
	// Save persists or updates a session.
	Save(ctx context.Context, s *trainer.Session) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if the session does not exist.
	Get(ctx context.Context, id string) (*trainer.Session, error)

	// ByPlayer retrieves the most recently saved session for a player.
	// Returns ErrNotFound if the player has no active session.
	ByPlayer(ctx context.Context, playerID string) (*trainer.Session, error)

	// Delete removes a session. Deleting a missing session is a no-op.
	Delete(ctx context.Context, id string) error
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex                // guards both maps
	sessions map[string]*trainer.Session // keyed by Session.ID()
	byPlayer map[string]string           // player ID -> session ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		sessions: make(map[string]*trainer.Session),
		byPlayer: make(map[string]string),
	}
}

// Save adds or updates the session in the registry.
func (m *memory) Save(ctx context.Context, s *trainer.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	if pid := s.PlayerID(); pid != "" {
		m.byPlayer[pid] = s.ID()
	}
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (*trainer.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}

// ByPlayer looks up the player's current session.
func (m *memory) ByPlayer(ctx context.Context, playerID string) (*trainer.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.byPlayer[playerID]; ok {
		if s, ok := m.sessions[id]; ok {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

// Delete removes the session and its player index entry.
func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.sessions, id)
	if pid := s.PlayerID(); pid != "" && m.byPlayer[pid] == id {
		delete(m.byPlayer, pid)
	}
	return nil
}
