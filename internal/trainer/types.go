// internal/trainer/types.go
//
// Type definitions for the puzzle solving session.
// Defines:
//   - State: coarse lifecycle of a session (idle/awaiting/opponent/solved).
//   - Verdict: outcome of evaluating one player move.
//   - Result, Completion, Snapshot, Hint: values returned to callers and
//     serialized to clients.
//   - FeedbackSink / BoardDisplay: the collaborator contracts the session
//     drives. Both have no-op defaults so the machine runs headless.

package trainer

import (
	"errors"

	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
	"github.com/bvst/ChessHawk-sub000/internal/rules"
)

// State is the coarse lifecycle of a session.
// Possible values:
//   - "idle":           no puzzle loaded (or the puzzle was disabled).
//   - "awaiting_move":  the player is expected to find the next move.
//   - "opponent_moving": a scripted reply is pending on the delay timer;
//     player moves are rejected, not queued.
//   - "solved":         the sequence is complete; load or reset to continue.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting_move"
	StateOpponent State = "opponent_moving"
	StateSolved   State = "solved"
)

// Verdict is the outcome of evaluating one player move.
type Verdict string

const (
	VerdictCorrect Verdict = "correct"
	VerdictWrong   Verdict = "wrong"
	VerdictSolved  Verdict = "solved"
)

// FeedbackKind selects how a feedback message should be presented.
type FeedbackKind string

const (
	KindSuccess FeedbackKind = "success"
	KindError   FeedbackKind = "error"
	KindWarning FeedbackKind = "warning"
	KindInfo    FeedbackKind = "info"
)

// Sentinel errors for the session's public operations. Every error path
// also emits a matching feedback message, so headless callers and UI
// clients see the same story.
var (
	ErrNoPuzzle        = errors.New("no puzzle loaded")
	ErrNoMovesPlayed   = errors.New("no move to check")
	ErrOpponentPending = errors.New("opponent reply pending")
	ErrAlreadySolved   = errors.New("puzzle already solved")
	ErrNoHints         = errors.New("no hint available")
	ErrNoRepository    = errors.New("no puzzle repository configured")
	ErrNoMatch         = errors.New("no matching puzzle")
)

// Result reports the evaluation of a single move.
type Result struct {
	Verdict            Verdict      `json:"verdict"`
	Move               string       `json:"move,omitempty"`     // canonical SAN as played
	Expected           string       `json:"expected,omitempty"` // set on wrong moves
	MoveIndex          int          `json:"moveIndex"`
	TotalMoves         int          `json:"totalMoves"`
	PlayerStep         int          `json:"playerStep"`
	PlayerSteps        int          `json:"playerSteps"`
	FEN                string       `json:"fen"`
	WaitingForOpponent bool         `json:"waitingForOpponent"`
	Message            string       `json:"message,omitempty"`
	Completion         *Completion  `json:"completion,omitempty"`
}

// Completion carries the scoring side effect of a solved puzzle.
type Completion struct {
	PuzzleID    string `json:"puzzleId"`
	Points      int    `json:"points"`
	Score       int    `json:"score"`
	FirstSolve  bool   `json:"firstSolve"`
	SolvedCount int    `json:"solvedCount"`
	HintsUsed   int    `json:"hintsUsed"` // hints consumed before this solve
}

// Hint is one progressive hint reveal.
type Hint struct {
	Text   string `json:"text"`
	Number int    `json:"number"` // 1-based position of the hint shown
	Total  int    `json:"total"`
}

// Snapshot is a read-only view of the session for status endpoints.
// Puzzle solution and hints never serialize (their fields are json-hidden),
// so handing the puzzle to a client does not leak the answer.
type Snapshot struct {
	SessionID          string         `json:"sessionId"`
	PlayerID           string         `json:"playerId"`
	Puzzle             *puzzle.Puzzle `json:"puzzle,omitempty"`
	FEN                string         `json:"fen,omitempty"`
	Orientation        string         `json:"orientation,omitempty"`
	State              State          `json:"state"`
	MoveIndex          int            `json:"moveIndex"`
	TotalMoves         int            `json:"totalMoves,omitempty"`
	PlayerStep         int            `json:"playerStep"`
	PlayerSteps        int            `json:"playerSteps,omitempty"`
	HintsUsed          int            `json:"hintsUsed"`
	HintsTotal         int            `json:"hintsTotal"`
	WaitingForOpponent bool           `json:"waitingForOpponent"`
	Score              int            `json:"score"`
	SolvedCount        int            `json:"solvedCount"`
}

// ------ collaborator contracts ------

// FeedbackSink receives the textual side effects of the state machine.
// Implementations must not call back into the session.
type FeedbackSink interface {
	ShowFeedback(text string, kind FeedbackKind, durationMs int)
	UpdateStatus(text string)
	RenderSolution(lines []string)
	UpdateScore(score int)
	Clear()
}

// BoardDisplay receives position updates for a visual board.
// Implementations must not call back into the session.
type BoardDisplay interface {
	Render(fen string)
	SetOrientation(color rules.Color)
	HighlightSquares(squares []string)
	ClearHighlights()
}

// NopSink discards all feedback. Useful for headless sessions and tests.
type NopSink struct{}

func (NopSink) ShowFeedback(string, FeedbackKind, int) {}
func (NopSink) UpdateStatus(string)                    {}
func (NopSink) RenderSolution([]string)                {}
func (NopSink) UpdateScore(int)                        {}
func (NopSink) Clear()                                 {}

// NopBoard discards all board updates.
type NopBoard struct{}

func (NopBoard) Render(string)             {}
func (NopBoard) SetOrientation(rules.Color) {}
func (NopBoard) HighlightSquares([]string) {}
func (NopBoard) ClearHighlights()          {}
