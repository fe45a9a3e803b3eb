// internal/httpserver/routes_session.go
//
// Solving-session endpoints.
// Responsibilities:
//   - Create sessions bound to the acting player (user or anon cookie).
//   - Relay moves, checks, hints, solution reveal, resets, and puzzle
//     navigation to the trainer state machine.
//   - Legal-target queries for drag-and-drop boards.
//
// Notes:
//   - A wrong-but-legal move is a normal 200 with verdict "wrong"; only
//     malformed or out-of-window requests produce error statuses.
//   - Session ownership is not enforced beyond possession of the id; ids
//     are unguessable UUIDs and the anon cookie keeps them per-browser.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
	"github.com/bvst/ChessHawk-sub000/internal/trainer"
)

// mountSessions registers the solving-session routes.
func (s *Server) mountSessions(r chi.Router) {
	r.Post("/session/new", s.handleNewSession)
	r.Get("/session/current", s.handleCurrentSession)
	r.Route("/session/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleDeleteSession)
		r.Post("/move", s.handleMove)
		r.Post("/check", s.handleCheck)
		r.Post("/hint", s.handleHint)
		r.Post("/solution", s.handleSolution)
		r.Post("/reset", s.handleReset)
		r.Post("/next", s.handleNext)
		r.Post("/prev", s.handlePrev)
		r.Post("/random", s.handleRandom)
		r.Get("/targets", s.handleTargets)
	})
	r.Get("/progress/me", s.handleMyProgress)
}

// newSessionReq selects the first puzzle for a fresh session. All fields
// are optional; empty means a random pick over the whole collection.
type newSessionReq struct {
	PuzzleID   string `json:"puzzleId"`
	Theme      string `json:"theme"`
	Difficulty string `json:"difficulty"`
}

// handleNewSession creates a session owned by the acting player and loads
// its first puzzle (by id, by filter, or random).
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body is fine

	uid := s.playerID(w, r)
	sess := s.newSession(r.Context(), uid)

	var err error
	if req.PuzzleID != "" {
		p, ok := s.puzzles.ByID(req.PuzzleID)
		if !ok {
			s.dropHub(sess.ID())
			http.Error(w, `{"error":"puzzle_not_found"}`, http.StatusNotFound)
			return
		}
		err = sess.LoadPuzzle(r.Context(), p)
	} else {
		diff, ok := difficultyFilter(req.Difficulty)
		if !ok {
			s.dropHub(sess.ID())
			http.Error(w, `{"error":"unknown_difficulty"}`, http.StatusBadRequest)
			return
		}
		_, err = sess.LoadRandom(r.Context(), req.Theme, diff)
	}
	if err != nil {
		s.dropHub(sess.ID())
		writeErr(w, err)
		return
	}

	if err := s.sessions.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		s.dropHub(sess.ID())
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleCurrentSession returns the acting player's most recent session.
func (s *Server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	uid := s.playerID(w, r)
	sess, err := s.sessions.ByPlayer(r.Context(), uid)
	if err != nil {
		http.Error(w, `{"error":"no_active_session"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleGetSession returns a snapshot of one session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleDeleteSession removes a session and closes its event hub.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	s.dropHub(id)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// moveReq carries one SAN move, e.g. {"move":"Nxf7"}.
type moveReq struct {
	Move string `json:"move"`
}

// handleMove applies a player move and returns the verdict.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	res, err := sess.PlayMove(r.Context(), req.Move)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleCheck re-judges the most recent board move without playing a new one.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	res, err := sess.CheckSolution(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleHint reveals the next progressive hint.
func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	h, err := sess.ShowHint()
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(h)
}

// handleSolution returns the numbered solution lines without mutating the
// session; peeking costs nothing.
func (s *Server) handleSolution(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	lines, err := sess.ShowSolution()
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string][]string{"lines": lines})
}

// handleReset rewinds the board to the puzzle start position.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	if err := sess.ResetPosition(); err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleNext/Prev step through the collection in order, wrapping at the ends.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	if _, err := sess.LoadNext(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}
func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	if _, err := sess.LoadPrev(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// randomReq optionally narrows the random pick, e.g. {"theme":"fork"}.
type randomReq struct {
	Theme      string `json:"theme"`
	Difficulty string `json:"difficulty"`
}

// handleRandom loads a random puzzle matching the optional filters.
func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	var req randomReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	diff, ok := difficultyFilter(req.Difficulty)
	if !ok {
		http.Error(w, `{"error":"unknown_difficulty"}`, http.StatusBadRequest)
		return
	}
	if _, err := sess.LoadRandom(r.Context(), req.Theme, diff); err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// handleTargets lists legal destination squares for the piece on ?square=.
// Outside the player's move window the list is empty, which the board
// renders as "piece not draggable".
func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFromRequest(w, r)
	if sess == nil {
		return
	}
	square := r.URL.Query().Get("square")
	if square == "" {
		http.Error(w, `{"error":"missing_square"}`, http.StatusBadRequest)
		return
	}
	targets, err := sess.LegalTargets(square)
	if err != nil {
		writeErr(w, err)
		return
	}
	if targets == nil {
		targets = []string{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"square": square, "targets": targets})
}

// handleMyProgress returns the acting player's cumulative progress. Works
// for guests (anon cookie) and accounts alike.
func (s *Server) handleMyProgress(w http.ResponseWriter, r *http.Request) {
	s.writeProgress(w, r, s.playerID(w, r))
}

// sessionFromRequest resolves the {id} URL parameter against the registry,
// writing a 404 on a miss.
func (s *Server) sessionFromRequest(w http.ResponseWriter, r *http.Request) *trainer.Session {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"session_not_found"}`, http.StatusNotFound)
		return nil
	}
	return sess
}

// difficultyFilter parses an optional difficulty label; empty means no filter.
func difficultyFilter(v string) (puzzle.Difficulty, bool) {
	if v == "" {
		return "", true
	}
	return puzzle.ParseDifficulty(v)
}
