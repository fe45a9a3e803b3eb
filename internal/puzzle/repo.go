// internal/puzzle/repo.go
//
// In-memory puzzle repository.
// Responsibilities:
//   - Load a collection from a file with fallback to the embedded built-in
//     set, so the repository is never empty (the application stays usable
//     when the configured file is missing or corrupt).
//   - Selection: by id, uniform random (optionally filtered by theme or
//     difficulty), and sequential next/previous in load order.
//   - Read-only statistics over the loaded set.

package puzzle

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Repository holds the loaded puzzle set. Safe for concurrent readers.
type Repository struct {
	mu      sync.RWMutex
	puzzles []*Puzzle
	byID    map[string]*Puzzle
	index   map[string]int // id → position in load order
	source  string         // where the set came from ("builtin" or a path)
	version string
}

// Load builds a repository from path, falling back to the embedded built-in
// collection when path is empty or its contents do not survive validation.
// An error is returned only when the built-in set itself fails to decode,
// which means a broken build rather than a runtime condition.
func Load(path string, builtin []byte) (*Repository, error) {
	if path != "" {
		if data, err := os.ReadFile(path); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("puzzle file unreadable, using builtin set")
		} else if col, err := Decode(data); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("puzzle file invalid, using builtin set")
		} else {
			return newRepository(col, path), nil
		}
	}
	col, err := Decode(builtin)
	if err != nil {
		return nil, fmt.Errorf("builtin puzzle set: %w", err)
	}
	return newRepository(col, "builtin"), nil
}

func newRepository(col *Collection, source string) *Repository {
	r := &Repository{
		puzzles: col.Puzzles,
		byID:    make(map[string]*Puzzle, len(col.Puzzles)),
		index:   make(map[string]int, len(col.Puzzles)),
		source:  source,
		version: col.Version,
	}
	for i, p := range col.Puzzles {
		r.byID[p.ID] = p
		r.index[p.ID] = i
	}
	return r
}

// Count returns the number of loaded puzzles.
func (r *Repository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.puzzles)
}

// Source reports where the loaded set came from.
func (r *Repository) Source() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.source
}

// ByID looks up a puzzle.
func (r *Repository) ByID(id string) (*Puzzle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// All returns the puzzles in load order. The slice is a copy; the puzzles
// are shared read-only references.
func (r *Repository) All() []*Puzzle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Puzzle, len(r.puzzles))
	copy(out, r.puzzles)
	return out
}

// GetRandom returns a uniformly random puzzle, or false when the set is
// empty (which Load prevents in practice).
func (r *Repository) GetRandom() (*Puzzle, bool) {
	return r.GetRandomFiltered("", "")
}

// GetRandomFiltered returns a uniformly random puzzle matching the given
// theme and/or difficulty; empty values match everything.
func (r *Repository) GetRandomFiltered(theme string, diff Difficulty) (*Puzzle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var pool []*Puzzle
	for _, p := range r.puzzles {
		if theme != "" && p.Theme != theme {
			continue
		}
		if diff != "" && p.Difficulty != diff {
			continue
		}
		pool = append(pool, p)
	}
	if len(pool) == 0 {
		return nil, false
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(pool))))
	return pool[n.Int64()], true
}

// Next returns the puzzle after id in load order, wrapping at the end.
func (r *Repository) Next(id string) (*Puzzle, bool) { return r.step(id, +1) }

// Prev returns the puzzle before id in load order, wrapping at the start.
func (r *Repository) Prev(id string) (*Puzzle, bool) { return r.step(id, -1) }

func (r *Repository) step(id string, delta int) (*Puzzle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok || len(r.puzzles) == 0 {
		return nil, false
	}
	n := len(r.puzzles)
	return r.puzzles[(i+delta+n)%n], true
}

// Stats aggregates read-only reporting over the loaded set.
type Stats struct {
	Total        int            `json:"total"`
	Source       string         `json:"source"`
	Version      string         `json:"version,omitempty"`
	ByTheme      map[string]int `json:"byTheme"`
	ByDifficulty map[string]int `json:"byDifficulty"`
	RatingMin    int            `json:"ratingMin"`
	RatingMax    int            `json:"ratingMax"`
	RatingAvg    float64        `json:"ratingAvg"`
	TotalPoints  int            `json:"totalPoints"`
}

// Statistics computes aggregate counts by theme and difficulty plus rating
// min/max/avg over the loaded set. No side effects.
func (r *Repository) Statistics() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{
		Total:        len(r.puzzles),
		Source:       r.source,
		Version:      r.version,
		ByTheme:      make(map[string]int),
		ByDifficulty: make(map[string]int),
	}
	sum := 0
	for i, p := range r.puzzles {
		if p.Theme != "" {
			st.ByTheme[p.Theme]++
		}
		st.ByDifficulty[string(p.Difficulty)]++
		st.TotalPoints += p.Points
		sum += p.Rating
		if i == 0 || p.Rating < st.RatingMin {
			st.RatingMin = p.Rating
		}
		if p.Rating > st.RatingMax {
			st.RatingMax = p.Rating
		}
	}
	if st.Total > 0 {
		st.RatingAvg = float64(sum) / float64(st.Total)
	}
	return st
}
