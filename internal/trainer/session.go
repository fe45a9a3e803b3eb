// internal/trainer/session.go
//
// Session lifecycle for the tactics trainer.
// Responsibilities:
//   - Own the mutable solving state: active puzzle, rules game, solution
//     cursor, hint cursor, coarse state, pending opponent reply timer.
//   - Load puzzles (direct, random, next/prev) and reset the position.
//   - Serialize all access behind one mutex; the reply timer fires on its
//     own goroutine and takes the same lock.
//
// Notes:
//   - Side effects on the feedback sink and board display are collected
//     while the lock is held and flushed after release, so collaborator
//     implementations can never deadlock the session.
//   - Progress reads seed a local score/solved mirror at construction;
//     store write failures later are logged and swallowed, with the mirror
//     keeping the session consistent.

package trainer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bvst/ChessHawk-sub000/internal/progress"
	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
	"github.com/bvst/ChessHawk-sub000/internal/rules"
)

// DefaultOpponentDelay paces the scripted reply so the player sees their
// own move land first. Pure UX pacing, not gameplay-critical.
const DefaultOpponentDelay = 800 * time.Millisecond

// Config wires a session's collaborators. Zero values get safe defaults.
type Config struct {
	PlayerID      string              // owner of the persisted progress
	Puzzles       *puzzle.Repository  // source for random/next/prev loading
	Progress      progress.Store      // nil -> in-memory store
	Sink          FeedbackSink        // nil -> NopSink
	Board         BoardDisplay        // nil -> NopBoard
	OpponentDelay time.Duration       // 0 -> DefaultOpponentDelay
}

// Session drives one player's solving of one puzzle at a time.
type Session struct {
	mu sync.Mutex

	id       string
	playerID string

	puzzle *puzzle.Puzzle
	game   *rules.Game

	state       State
	moveIndex   int // cursor into puzzle.Solution
	hintIndex   int // next hint to reveal, saturating
	lastEvalPly int // history length when the cursor last advanced or reset

	replyTimer *time.Timer
	replySeq   int // bumped on load/reset; stale timers check it and bail

	score          int
	solved         map[string]bool
	lastCompletion *Completion // most recent solve in this session

	repo     *puzzle.Repository
	progress progress.Store
	sink     FeedbackSink
	board    BoardDisplay
	delay    time.Duration
}

// New constructs an idle session and seeds the score/solved mirror from the
// progress store. Store read failures fall back to zero values.
func New(ctx context.Context, cfg Config) *Session {
	s := &Session{
		id:       uuid.NewString(),
		playerID: cfg.PlayerID,
		state:    StateIdle,
		solved:   make(map[string]bool),
		repo:     cfg.Puzzles,
		progress: cfg.Progress,
		sink:     cfg.Sink,
		board:    cfg.Board,
		delay:    cfg.OpponentDelay,
	}
	if s.progress == nil {
		s.progress = progress.NewMemoryStore()
	}
	if s.sink == nil {
		s.sink = NopSink{}
	}
	if s.board == nil {
		s.board = NopBoard{}
	}
	if s.delay <= 0 {
		s.delay = DefaultOpponentDelay
	}

	if p, err := s.progress.Get(ctx, s.playerID); err != nil {
		log.Warn().Str("player", s.playerID).Err(err).Msg("progress read failed, starting from zero")
	} else {
		s.score = p.Score
	}
	if ids, err := s.progress.SolvedIDs(ctx, s.playerID); err != nil {
		log.Warn().Str("player", s.playerID).Err(err).Msg("solved set read failed, starting empty")
	} else {
		for _, id := range ids {
			s.solved[id] = true
		}
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// PlayerID returns the owning player.
func (s *Session) PlayerID() string { return s.playerID }

// State returns the coarse session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Puzzle returns the active puzzle, nil when idle.
func (s *Session) Puzzle() *puzzle.Puzzle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puzzle
}

// Score returns the session's view of the player's cumulative score.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// MoveIndex returns the solution cursor.
func (s *Session) MoveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveIndex
}

// WaitingForOpponent reports whether a scripted reply is pending.
func (s *Session) WaitingForOpponent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateOpponent
}

// LastCompletion returns the record of the most recent solve in this
// session, nil if nothing has been solved yet. The record survives resets
// and puzzle switches until the next solve overwrites it.
func (s *Session) LastCompletion() *Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCompletion
}

// LoadPuzzle makes p the active puzzle and resets all solving state. Any
// pending opponent reply is superseded.
func (s *Session) LoadPuzzle(ctx context.Context, p *puzzle.Puzzle) error {
	s.mu.Lock()
	fx, err := s.loadLocked(ctx, p)
	s.mu.Unlock()
	runAll(fx)
	return err
}

func (s *Session) loadLocked(_ context.Context, p *puzzle.Puzzle) ([]func(), error) {
	s.cancelReplyLocked()

	g, err := rules.NewGame(p.FEN)
	if err != nil {
		// Repository validation makes this unreachable for loaded sets.
		log.Error().Str("puzzle", p.ID).Err(err).Msg("puzzle position rejected by rules engine")
		s.puzzle = nil
		s.game = nil
		s.state = StateIdle
		return []func(){func() {
			s.sink.ShowFeedback("Puzzle data is broken, pick another puzzle.", KindError, 5000)
		}}, fmt.Errorf("load puzzle %s: %w", p.ID, err)
	}

	s.puzzle = p
	s.game = g
	s.moveIndex = 0
	s.hintIndex = 0
	s.lastEvalPly = 0
	s.state = StateAwaiting

	color := g.Turn()
	status := fmt.Sprintf("%s to move. Find the best continuation.", color.Name())
	fen := p.FEN
	score := s.score
	return []func(){func() {
		s.sink.Clear()
		s.board.ClearHighlights()
		s.board.SetOrientation(color)
		s.board.Render(fen)
		s.sink.UpdateStatus(status)
		s.sink.UpdateScore(score)
	}}, nil
}

// LoadRandom loads a uniformly random puzzle matching the optional theme
// and difficulty filters.
func (s *Session) LoadRandom(ctx context.Context, theme string, diff puzzle.Difficulty) (*puzzle.Puzzle, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	p, ok := s.repo.GetRandomFiltered(theme, diff)
	if !ok {
		return nil, fmt.Errorf("%w: theme=%q difficulty=%q", ErrNoMatch, theme, diff)
	}
	return p, s.LoadPuzzle(ctx, p)
}

// LoadNext loads the puzzle after the current one in collection order,
// or a random one when nothing is loaded.
func (s *Session) LoadNext(ctx context.Context) (*puzzle.Puzzle, error) {
	return s.loadNeighbor(ctx, +1)
}

// LoadPrev loads the puzzle before the current one in collection order.
func (s *Session) LoadPrev(ctx context.Context) (*puzzle.Puzzle, error) {
	return s.loadNeighbor(ctx, -1)
}

func (s *Session) loadNeighbor(ctx context.Context, delta int) (*puzzle.Puzzle, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	s.mu.Lock()
	current := s.puzzle
	s.mu.Unlock()
	if current == nil {
		return s.LoadRandom(ctx, "", "")
	}
	var (
		p  *puzzle.Puzzle
		ok bool
	)
	if delta > 0 {
		p, ok = s.repo.Next(current.ID)
	} else {
		p, ok = s.repo.Prev(current.ID)
	}
	if !ok {
		return nil, fmt.Errorf("%w: puzzle %s is not in the loaded collection", ErrNoMatch, current.ID)
	}
	return p, s.LoadPuzzle(ctx, p)
}

// ResetPosition rewinds the board to the puzzle's starting position. This
// is the documented recovery after a wrong move. The hint cursor survives;
// hints already seen stay seen.
func (s *Session) ResetPosition() error {
	s.mu.Lock()
	fx, err := s.resetLocked()
	s.mu.Unlock()
	runAll(fx)
	return err
}

func (s *Session) resetLocked() ([]func(), error) {
	if s.puzzle == nil {
		return s.feedbackFx("No puzzle loaded.", KindWarning, 3000), ErrNoPuzzle
	}
	s.cancelReplyLocked()
	if err := s.game.Reset(); err != nil {
		return nil, err
	}
	s.moveIndex = 0
	s.lastEvalPly = 0
	s.state = StateAwaiting

	color := s.game.Turn()
	status := fmt.Sprintf("Position reset. %s to move.", color.Name())
	fen := s.puzzle.FEN
	return []func(){func() {
		s.sink.Clear()
		s.board.ClearHighlights()
		s.board.Render(fen)
		s.sink.UpdateStatus(status)
	}}, nil
}

// cancelReplyLocked supersedes any pending opponent reply. A timer that
// already fired will observe the bumped sequence and bail.
func (s *Session) cancelReplyLocked() {
	s.replySeq++
	if s.replyTimer != nil {
		s.replyTimer.Stop()
		s.replyTimer = nil
	}
}

// LegalTargets lists destination squares for the piece on the given square.
// Empty while the opponent reply is pending, when no puzzle is active, when
// the puzzle is solved, or when the game is over; drag-start is rejected in
// those windows.
func (s *Session) LegalTargets(square string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.puzzle == nil || s.state != StateAwaiting || s.game.GameOver() {
		return nil, nil
	}
	return s.game.LegalTargets(square)
}

// Snapshot returns a read-only view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		SessionID:          s.id,
		PlayerID:           s.playerID,
		State:              s.state,
		MoveIndex:          s.moveIndex,
		PlayerStep:         puzzle.PlayerStepAt(s.moveIndex),
		HintsUsed:          s.hintIndex,
		WaitingForOpponent: s.state == StateOpponent,
		Score:              s.score,
		SolvedCount:        len(s.solved),
	}
	if s.puzzle != nil {
		snap.Puzzle = s.puzzle
		snap.FEN = s.game.FEN()
		snap.TotalMoves = len(s.puzzle.Solution)
		snap.PlayerSteps = s.puzzle.PlayerSteps()
		snap.HintsTotal = len(s.puzzle.Hints)
		if c, err := rules.TurnFromFEN(s.puzzle.FEN); err == nil {
			snap.Orientation = string(c)
		}
	}
	return snap
}

// feedbackFx builds a single-effect slice showing one feedback message.
func (s *Session) feedbackFx(text string, kind FeedbackKind, durationMs int) []func() {
	return []func(){func() { s.sink.ShowFeedback(text, kind, durationMs) }}
}

func runAll(fx []func()) {
	for _, f := range fx {
		f()
	}
}
