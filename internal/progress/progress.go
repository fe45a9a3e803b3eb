// Package progress persists per-player training results. Scores accumulate
// on every completed puzzle while the solved set records each puzzle once,
// so replaying a puzzle still rewards points without inflating the solved
// count.
//
// Responsibilities:
// - Define the Store interface the trainer writes through
// - SQLite-backed implementation for the server
// - In-memory implementation for tests and ephemeral sessions
package progress

import (
	"context"
	"sort"
	"sync"
)

// Progress is one player's accumulated training record.
type Progress struct {
	PlayerID    string `json:"playerId"`
	Score       int    `json:"score"`
	SolvedCount int    `json:"solvedCount"`
	SolveCount  int    `json:"solveCount"`
}

// Store records and reports training progress. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the player's progress, zero-valued if the player has
	// never solved anything.
	Get(ctx context.Context, playerID string) (Progress, error)

	// RecordSolve awards points for a completed puzzle and marks it
	// solved. Points are awarded on every completion; the solved set
	// gains the puzzle at most once. firstSolve reports whether this
	// completion was the first for that puzzle.
	RecordSolve(ctx context.Context, playerID, puzzleID string, points int) (p Progress, firstSolve bool, err error)

	// SolvedIDs returns the ids of every puzzle the player has solved,
	// sorted for stable output.
	SolvedIDs(ctx context.Context, playerID string) ([]string, error)
}

// ------ in-memory store ------

type memoryRecord struct {
	score  int
	solves int
	solved map[string]bool
}

// MemoryStore keeps progress in process memory. Used by tests and by the
// server when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]*memoryRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[string]*memoryRecord)}
}

func (m *MemoryStore) Get(_ context.Context, playerID string) (Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.players[playerID]
	if !ok {
		return Progress{PlayerID: playerID}, nil
	}
	return Progress{
		PlayerID:    playerID,
		Score:       rec.score,
		SolvedCount: len(rec.solved),
		SolveCount:  rec.solves,
	}, nil
}

func (m *MemoryStore) RecordSolve(_ context.Context, playerID, puzzleID string, points int) (Progress, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.players[playerID]
	if !ok {
		rec = &memoryRecord{solved: make(map[string]bool)}
		m.players[playerID] = rec
	}
	first := !rec.solved[puzzleID]
	rec.solved[puzzleID] = true
	rec.score += points
	rec.solves++
	return Progress{
		PlayerID:    playerID,
		Score:       rec.score,
		SolvedCount: len(rec.solved),
		SolveCount:  rec.solves,
	}, first, nil
}

func (m *MemoryStore) SolvedIDs(_ context.Context, playerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.players[playerID]
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(rec.solved))
	for id := range rec.solved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
