// internal/httpserver/ws.go
//
// WebSocket event stream for solving sessions.
// A Hub fans the trainer's feedback and board side effects out to every
// connected watcher as kind-tagged JSON events. The hub implements both
// collaborator contracts (FeedbackSink, BoardDisplay), so a session built
// with a hub streams everything the browser UI needs: feedback toasts,
// status line, solution reveal, score changes, board positions.
//
// Watchers are buffered channels; a slow client drops events rather than
// stalling the session. Events are UI hints, not state of record; a
// client that missed one recovers from the next snapshot.

package httpserver

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bvst/ChessHawk-sub000/internal/rules"
	"github.com/bvst/ChessHawk-sub000/internal/trainer"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST surface already does origin checks via CORS; the socket
	// carries no privileged operations, only UI events.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Event is one message pushed to session watchers.
type Event struct {
	Type       string   `json:"type"`
	Text       string   `json:"text,omitempty"`
	Kind       string   `json:"kind,omitempty"`
	DurationMs int      `json:"durationMs,omitempty"`
	Lines      []string `json:"lines,omitempty"`
	Score      int      `json:"score,omitempty"`
	FEN        string   `json:"fen,omitempty"`
	Color      string   `json:"color,omitempty"`
	Squares    []string `json:"squares,omitempty"`
}

// Hub broadcasts session events to zero or more watchers.
type Hub struct {
	mu       sync.Mutex
	watchers map[chan Event]struct{}
	closed   bool
}

// NewHub returns an empty hub. Broadcasts before the first watcher attaches
// are dropped.
func NewHub() *Hub {
	return &Hub{watchers: make(map[chan Event]struct{})}
}

// Watch registers a new watcher channel. The cancel func detaches it; the
// channel is closed by cancel or by Close.
func (h *Hub) Watch() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.watchers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.watchers[ch]; ok {
				delete(h.watchers, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Close detaches and closes every watcher. Further broadcasts are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.watchers {
		delete(h.watchers, ch)
		close(ch)
	}
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.watchers {
		select {
		case ch <- ev:
		default:
			// Slow watcher; drop rather than block the session.
		}
	}
}

// ------ trainer.FeedbackSink ------

func (h *Hub) ShowFeedback(text string, kind trainer.FeedbackKind, durationMs int) {
	h.broadcast(Event{Type: "feedback", Text: text, Kind: string(kind), DurationMs: durationMs})
}

func (h *Hub) UpdateStatus(text string) {
	h.broadcast(Event{Type: "status", Text: text})
}

func (h *Hub) RenderSolution(lines []string) {
	h.broadcast(Event{Type: "solution", Lines: lines})
}

func (h *Hub) UpdateScore(score int) {
	h.broadcast(Event{Type: "score", Score: score})
}

func (h *Hub) Clear() {
	h.broadcast(Event{Type: "clear"})
}

// ------ trainer.BoardDisplay ------

func (h *Hub) Render(fen string) {
	h.broadcast(Event{Type: "board", FEN: fen})
}

func (h *Hub) SetOrientation(c rules.Color) {
	h.broadcast(Event{Type: "orientation", Color: string(c)})
}

func (h *Hub) HighlightSquares(squares []string) {
	h.broadcast(Event{Type: "highlights", Squares: squares})
}

func (h *Hub) ClearHighlights() {
	h.broadcast(Event{Type: "clearHighlights"})
}

// ------ HTTP endpoint ------

// handleSessionWS upgrades GET /session/{id}/ws and streams hub events
// until the client disconnects.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, hub := s.lookupSession(id)
	if sess == nil || hub == nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, cancel := hub.Watch()
	defer cancel()

	// Sync the late joiner before streaming deltas.
	snap := sess.Snapshot()
	if snap.FEN != "" {
		_ = conn.WriteJSON(Event{Type: "board", FEN: snap.FEN})
	}
	_ = conn.WriteJSON(Event{Type: "score", Score: snap.Score})

	// Reader goroutine: the client sends nothing meaningful, but reading
	// is how we learn about disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
