// internal/httpserver/server.go
//
// HTTP server wiring for the tactics trainer backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", puzzle browsing and statistics.
//   - Session endpoints (optional auth): create/inspect solving sessions,
//     play and check moves, hints, solution reveal, reset, next/prev/random,
//     legal targets, WebSocket event stream.
//   - Daily puzzle endpoints (optional auth): mounted under /daily.
//   - Auth + profile endpoints (require auth): /auth/*, /stats/me.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Optional auth decorates requests with user context when a valid token
//     is present; routes can still run for guests.
//   - Without a database the server still runs for casual solving: progress
//     lives in memory and the auth + daily routes are not mounted.
//   - The WebSocket route sits outside the timeout middleware; everything
//     else is bounded.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/bvst/ChessHawk-sub000/internal/progress"
	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
	"github.com/bvst/ChessHawk-sub000/internal/rules"
	"github.com/bvst/ChessHawk-sub000/internal/store"
	"github.com/bvst/ChessHawk-sub000/internal/trainer"
)

// Options configures a Server. Zero values get safe development defaults;
// Puzzles is the one required field.
type Options struct {
	DB             *sql.DB            // users, progress, daily results; nil disables auth + daily
	Sessions       store.Store        // active session registry; nil -> in-memory
	Puzzles        *puzzle.Repository // loaded puzzle collection (required)
	Progress       progress.Store     // nil -> SQLite when DB is set, else in-memory
	ClientOrigin   string             // CORS origin, default http://localhost:5173
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	DailySalt      string
	OpponentDelay  time.Duration // passed through to new sessions
	Production     bool          // hardens cookie attributes
}

// Server bundles router, session registry, puzzle repository, and DB handle.
type Server struct {
	r        *chi.Mux
	db       *sql.DB
	sessions store.Store
	puzzles  *puzzle.Repository
	progress progress.Store
	opts     Options

	mu   sync.Mutex      // guards hubs
	hubs map[string]*Hub // event hub per session ID
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.Sessions == nil {
		opts.Sessions = store.NewMemoryStore()
	}
	if opts.Progress == nil {
		if opts.DB != nil {
			opts.Progress = progress.NewSQLiteStore(opts.DB)
		} else {
			opts.Progress = progress.NewMemoryStore()
		}
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.JWTSecret == "" {
		opts.JWTSecret = "dev_secret_change_me"
	}
	if opts.JWTExpiresDays <= 0 {
		opts.JWTExpiresDays = 14
	}
	if opts.CookieName == "" {
		opts.CookieName = "chesshawk_token"
	}
	if opts.DailySalt == "" {
		opts.DailySalt = "local_dev_salt"
	}

	s := &Server{
		r:        chi.NewRouter(),
		db:       opts.DB,
		sessions: opts.Sessions,
		puzzles:  opts.Puzzles,
		progress: opts.Progress,
		opts:     opts,
		hubs:     make(map[string]*Hub),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Bounded REST surface. The WebSocket route lives outside this group
	// because long-lived connections must not inherit the timeout.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"chesshawk-go","endpoints":["/health","/puzzles","POST /session/new","POST /session/{id}/move","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		s.mountPuzzles(r)

		// Session endpoints — OPTIONAL AUTH (guests can solve)
		s.mountSessions(r.With(s.withOptionalAuth()))

		if s.db != nil {
			// Daily puzzle — OPTIONAL AUTH (guests compete under anon ids)
			s.mountDaily(r.With(s.withOptionalAuth()))
			// Auth + profile/stats (require auth)
			s.mountAuthRoutes(r)
		} else {
			log.Warn().Msg("no database configured: auth and daily routes disabled")
		}

		// Debug: collection counts
		r.Get("/debug/puzzles", func(w http.ResponseWriter, _ *http.Request) {
			st := s.puzzles.Statistics()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"puzzles": st.Total,
				"source":  st.Source,
				"version": st.Version,
			})
		})
	})

	// Event stream (unbounded lifetime).
	s.r.With(s.withOptionalAuth()).Get("/session/{id}/ws", s.handleSessionWS)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --------------------------- session plumbing -------------------------------

// newSession builds a session wired to a fresh event hub and remembers the
// hub for the WebSocket endpoint.
func (s *Server) newSession(ctx context.Context, playerID string) *trainer.Session {
	hub := NewHub()
	sess := trainer.New(ctx, trainer.Config{
		PlayerID:      playerID,
		Puzzles:       s.puzzles,
		Progress:      s.progress,
		Sink:          hub,
		Board:         hub,
		OpponentDelay: s.opts.OpponentDelay,
	})
	s.mu.Lock()
	s.hubs[sess.ID()] = hub
	s.mu.Unlock()
	return sess
}

// lookupSession resolves a session and its hub by ID.
func (s *Server) lookupSession(id string) (*trainer.Session, *Hub) {
	sess, err := s.sessions.Get(context.Background(), id)
	if err != nil {
		return nil, nil
	}
	s.mu.Lock()
	hub := s.hubs[id]
	s.mu.Unlock()
	return sess, hub
}

// dropHub closes and forgets the event hub for a deleted session.
func (s *Server) dropHub(id string) {
	s.mu.Lock()
	hub := s.hubs[id]
	delete(s.hubs, id)
	s.mu.Unlock()
	if hub != nil {
		hub.Close()
	}
}

// ------------------------------ error mapping -------------------------------

// errStatus maps trainer and registry errors onto HTTP status codes. A
// wrong-but-legal move is not an error and never reaches this path.
func errStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trainer.ErrNoHints),
		errors.Is(err, trainer.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, trainer.ErrNoPuzzle),
		errors.Is(err, trainer.ErrAlreadySolved),
		errors.Is(err, trainer.ErrOpponentPending):
		return http.StatusConflict
	case errors.Is(err, trainer.ErrNoMovesPlayed),
		errors.Is(err, rules.ErrIllegalMove),
		errors.Is(err, rules.ErrBadSquare):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeErr renders an error as the standard JSON error envelope.
func writeErr(w http.ResponseWriter, err error) {
	http.Error(w, `{"error":`+strconv.Quote(err.Error())+`}`, errStatus(err))
}
