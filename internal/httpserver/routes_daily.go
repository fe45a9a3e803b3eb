// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily puzzle.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's attempt (creates or reuses a session)
//   - POST /daily/complete    → record a finished attempt for the leaderboard
//   - GET  /daily/leaderboard → top results for today (or a given date)
//
// Each player records one result per day (enforced by DB + in-memory
// attempt). Solving itself runs through the normal /session endpoints; the
// attempt only pins which session counts and when the clock started.
// Deterministic puzzle selection is based on date + salt.

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bvst/ChessHawk-sub000/internal/daily"
	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	attempts map[string]*dailyAttempt // active attempts keyed by userID|date
	mu       sync.Mutex               // guards attempts
}

// dailyAttempt holds transient in-memory state for an in-progress attempt.
type dailyAttempt struct {
	SessionID string
	UserID    string
	Date      string
	PuzzleID  string
	Start     time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.opts.DailySalt,
		attempts: make(map[string]*dailyAttempt),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/complete", dd.handleComplete)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// puzzleOfDay returns today's date key and the deterministic daily pick.
func (d *dailyServer) puzzleOfDay() (date string, p *puzzle.Puzzle) {
	now := time.Now().UTC()
	date = daily.DateKey(now)
	all := d.srv.puzzles.All()
	if len(all) == 0 {
		return date, nil
	}
	return date, all[daily.PuzzleIndex(now, d.salt, len(all))]
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	SessionID string `json:"sessionId,omitempty"`
	PuzzleID  string `json:"puzzleId,omitempty"`
	Date      string `json:"date"`
	Played    bool   `json:"played"`
}

// handleNew creates or reuses a daily attempt for the current date.
// - If the player already has a DB row for today → return Played=true.
// - Otherwise create/reuse an attempt and hand back its session id; the
//   client plays it through the regular /session endpoints.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.playerID(w, r)
	date, p := d.puzzleOfDay()
	if p == nil {
		http.Error(w, `{"error":"no_puzzles"}`, http.StatusServiceUnavailable)
		return
	}

	// Check if already played (persisted in DB).
	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	// Reuse the in-memory attempt when its session still exists; a lost
	// session (restart) must not lock the player out for the day.
	key := uid + "|" + date
	d.mu.Lock()
	if att, ok := d.attempts[key]; ok {
		if sess, _ := d.srv.lookupSession(att.SessionID); sess != nil {
			d.mu.Unlock()
			_ = json.NewEncoder(w).Encode(dailyNewRes{SessionID: att.SessionID, PuzzleID: att.PuzzleID, Date: date, Played: false})
			return
		}
		delete(d.attempts, key)
	}
	d.mu.Unlock()

	sess := d.srv.newSession(r.Context(), uid)
	if err := sess.LoadPuzzle(r.Context(), p); err != nil {
		d.srv.dropHub(sess.ID())
		writeErr(w, err)
		return
	}
	if err := d.srv.sessions.Save(r.Context(), sess); err != nil {
		d.srv.dropHub(sess.ID())
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	att := &dailyAttempt{
		SessionID: sess.ID(),
		UserID:    uid,
		Date:      date,
		PuzzleID:  p.ID,
		Start:     time.Now(),
	}
	d.mu.Lock()
	d.attempts[key] = att
	d.mu.Unlock()

	_ = json.NewEncoder(w).Encode(dailyNewRes{SessionID: att.SessionID, PuzzleID: att.PuzzleID, Date: date, Played: false})
}

// -----------------------------------------------------------------------------
// /daily/complete

// dailyCompleteReq names the attempt session being claimed.
type dailyCompleteReq struct {
	SessionID string `json:"sessionId"`
}

// dailyCompleteRes is returned by /daily/complete.
type dailyCompleteRes struct {
	Date      string `json:"date"`
	ElapsedMs int    `json:"elapsedMs"`
	HintsUsed int    `json:"hintsUsed"`
}

// handleComplete verifies that the attempt's session actually solved the
// daily puzzle and persists the timed result. The clock runs from
// /daily/new to this call; hints used count against the leaderboard sort.
func (d *dailyServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	uid := d.srv.playerID(w, r)

	var req dailyCompleteReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}

	date, _ := d.puzzleOfDay()
	key := uid + "|" + date
	d.mu.Lock()
	att, ok := d.attempts[key]
	d.mu.Unlock()
	if !ok || req.SessionID == "" || att.SessionID != req.SessionID {
		http.Error(w, `{"error":"no_active_attempt"}`, http.StatusConflict)
		return
	}

	sess, _ := d.srv.lookupSession(att.SessionID)
	if sess == nil {
		http.Error(w, `{"error":"session_not_found"}`, http.StatusNotFound)
		return
	}
	// The completion record is the proof of work: it must exist and name
	// the daily puzzle. Clients cannot claim a solve they did not make.
	comp := sess.LastCompletion()
	if comp == nil || comp.PuzzleID != att.PuzzleID {
		http.Error(w, `{"error":"not_solved"}`, http.StatusConflict)
		return
	}

	elapsed := int(time.Since(att.Start).Milliseconds())
	err := d.store.InsertResult(r.Context(), daily.Result{
		UserID:    uid,
		Date:      date,
		PuzzleID:  att.PuzzleID,
		HintsUsed: comp.HintsUsed,
		ElapsedMs: elapsed,
	})
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	d.mu.Lock()
	delete(d.attempts, key)
	d.mu.Unlock()

	_ = json.NewEncoder(w).Encode(dailyCompleteRes{Date: date, ElapsedMs: elapsed, HintsUsed: comp.HintsUsed})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date     string        `json:"date"`
	PuzzleID string        `json:"puzzleId,omitempty"`
	Top      []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	res := lbRes{Date: date}
	if date == "" {
		var p *puzzle.Puzzle
		res.Date, p = d.puzzleOfDay()
		if p != nil {
			res.PuzzleID = p.ID
		}
	}
	rows, err := d.store.Leaderboard(r.Context(), res.Date, 20)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	res.Top = rows
	_ = json.NewEncoder(w).Encode(res)
}
