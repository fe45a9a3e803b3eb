// internal/rules/rules.go
//
// Adapter over the github.com/notnil/chess rules engine.
// Responsibilities:
//   - Load a position from FEN and apply SAN moves with full legality checking.
//   - Expose the fixed capability surface the trainer depends on: move
//     application, turn, move history, legal-target enumeration, game-over
//     queries, current FEN.
//   - Normalize SAN tokens so engine-produced notation and puzzle data
//     compare reliably ("Nxf7+" vs "Nxf7", "0-0" vs "O-O").
//
// Notes:
//   - Version differences in the underlying library are resolved here, once;
//     callers never touch notnil/chess types directly.
//   - A Game is not safe for concurrent use; the owning session serializes
//     access.

package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/notnil/chess"
)

// Sentinel errors for the rules capability.
var (
	// ErrInvalidFEN indicates a malformed or unloadable FEN string.
	ErrInvalidFEN = errors.New("invalid FEN")

	// ErrIllegalMove indicates a move the engine rejects in the current position.
	ErrIllegalMove = errors.New("illegal move")

	// ErrBadSquare indicates a square reference outside a1..h8.
	ErrBadSquare = errors.New("invalid square")
)

// Color is the side to move, in the wire form the board client uses.
type Color string

const (
	White Color = "w"
	Black Color = "b"
)

// Name returns the long form of the color ("White"/"Black").
func (c Color) Name() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// Game wraps one rules-engine game rooted at a fixed starting position.
type Game struct {
	start string      // FEN the game was created from
	g     *chess.Game // engine state
}

// NewGame loads a position from FEN.
func NewGame(fen string) (*Game, error) {
	fen = strings.TrimSpace(fen)
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return &Game{start: fen, g: chess.NewGame(opt)}, nil
}

// StartFEN returns the FEN the game was created from.
func (x *Game) StartFEN() string { return x.start }

// FEN returns the current position.
func (x *Game) FEN() string { return x.g.FEN() }

// Turn reports the side to move.
func (x *Game) Turn() Color {
	if x.g.Position().Turn() == chess.White {
		return White
	}
	return Black
}

// Move applies a SAN move. The token is tried as given and, if the engine
// rejects it, once more in normalized form. Returns ErrIllegalMove when the
// move is not legal in the current position.
func (x *Game) Move(san string) error {
	san = strings.TrimSpace(san)
	if san == "" {
		return fmt.Errorf("%w: empty move", ErrIllegalMove)
	}
	if err := x.g.MoveStr(san); err == nil {
		return nil
	}
	if norm := NormalizeSAN(san); norm != san {
		if err := x.g.MoveStr(norm); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrIllegalMove, san)
}

// History returns the SAN of every move played so far, in order.
func (x *Game) History() []string {
	moves := x.g.Moves()
	if len(moves) == 0 {
		return nil
	}
	// Positions() holds one entry more than Moves(); entry i is the position
	// the i-th move was played from, which SAN encoding needs.
	positions := x.g.Positions()
	notation := chess.AlgebraicNotation{}
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = notation.Encode(positions[i], m)
	}
	return out
}

// LastMove returns the SAN of the most recent move, if any.
func (x *Game) LastMove() (string, bool) {
	h := x.History()
	if len(h) == 0 {
		return "", false
	}
	return h[len(h)-1], true
}

// Ply returns the number of half-moves played since the starting position.
func (x *Game) Ply() int { return len(x.g.Moves()) }

// LegalTargets lists the destination squares of all legal moves from the
// given square ("e2" → ["e3","e4"]). Unknown or empty squares yield no
// targets; a malformed square reference is an error.
func (x *Game) LegalTargets(square string) ([]string, error) {
	sq, err := parseSquare(square)
	if err != nil {
		return nil, err
	}
	seen := make(map[chess.Square]struct{})
	var out []string
	for _, m := range x.g.ValidMoves() {
		if m.S1() != sq {
			continue
		}
		if _, ok := seen[m.S2()]; ok {
			continue // promotion variants share a target square
		}
		seen[m.S2()] = struct{}{}
		out = append(out, m.S2().String())
	}
	sort.Strings(out)
	return out, nil
}

// GameOver reports whether the game has a decided outcome.
func (x *Game) GameOver() bool { return x.g.Outcome() != chess.NoOutcome }

// Outcome returns the PGN-style result string ("*", "1-0", "0-1", "1/2-1/2").
func (x *Game) Outcome() string { return x.g.Outcome().String() }

// IsCheckmate reports whether the current position is checkmate.
func (x *Game) IsCheckmate() bool { return x.g.Position().Status() == chess.Checkmate }

// IsStalemate reports whether the current position is stalemate.
func (x *Game) IsStalemate() bool { return x.g.Position().Status() == chess.Stalemate }

// Reset rewinds the game to its starting position.
func (x *Game) Reset() error {
	fresh, err := NewGame(x.start)
	if err != nil {
		return err
	}
	x.g = fresh.g
	return nil
}

// parseSquare converts "e4" into the engine's square index.
func parseSquare(s string) (chess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, fmt.Errorf("%w: %q", ErrBadSquare, s)
	}
	return chess.Square(int(s[1]-'1')*8 + int(s[0]-'a')), nil
}
