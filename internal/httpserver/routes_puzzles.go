// internal/httpserver/routes_puzzles.go
//
// Read-only puzzle browsing.
// Responsibilities:
//   - List the collection with optional theme/difficulty filters.
//   - Single-puzzle lookup and collection aggregates.
//
// Solutions and hints never serialize from these routes; clients earn them
// move by move through a session.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
)

// mountPuzzles registers the read-only collection routes.
func (s *Server) mountPuzzles(r chi.Router) {
	r.Get("/puzzles", s.handleListPuzzles)
	r.Get("/puzzles/stats", s.handlePuzzleStats)
	r.Get("/puzzles/{id}", s.handleGetPuzzle)
}

// handleListPuzzles lists the collection, filtered by ?theme= and
// ?difficulty= when given.
func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	theme := r.URL.Query().Get("theme")
	diff, ok := difficultyFilter(r.URL.Query().Get("difficulty"))
	if !ok {
		http.Error(w, `{"error":"unknown_difficulty"}`, http.StatusBadRequest)
		return
	}
	out := []*puzzle.Puzzle{}
	for _, p := range s.puzzles.All() {
		if theme != "" && p.Theme != theme {
			continue
		}
		if diff != "" && p.Difficulty != diff {
			continue
		}
		out = append(out, p)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"puzzles": out, "count": len(out)})
}

// handleGetPuzzle returns one puzzle's public fields.
func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	p, ok := s.puzzles.ByID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, `{"error":"puzzle_not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(p)
}

// handlePuzzleStats reports collection aggregates.
func (s *Server) handlePuzzleStats(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(s.puzzles.Statistics())
}
