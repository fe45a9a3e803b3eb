// internal/trainer/solution.go
//
// Hint reveal and full-solution reveal.
// Hints advance a saturating cursor: once the last hint is reached, every
// further request returns it again. Revealing the full solution is a pure
// "give up" affordance and never touches solving state or score.

package trainer

import (
	"fmt"

	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
	"github.com/bvst/ChessHawk-sub000/internal/rules"
)

// ShowHint reveals the next progressive hint.
func (s *Session) ShowHint() (Hint, error) {
	s.mu.Lock()
	h, fx, err := s.hintLocked()
	s.mu.Unlock()
	runAll(fx)
	return h, err
}

func (s *Session) hintLocked() (Hint, []func(), error) {
	if s.puzzle == nil {
		return Hint{}, s.feedbackFx("No puzzle loaded.", KindWarning, 3000), ErrNoPuzzle
	}
	hints := s.puzzle.Hints
	if len(hints) == 0 {
		return Hint{}, s.feedbackFx("No hint available for this puzzle.", KindInfo, 3000), ErrNoHints
	}

	idx := s.hintIndex
	if idx >= len(hints) {
		idx = len(hints) - 1
	}
	if s.hintIndex < len(hints) {
		s.hintIndex++
	}

	h := Hint{Text: hints[idx], Number: idx + 1, Total: len(hints)}
	msg := fmt.Sprintf("Hint %d/%d: %s", h.Number, h.Total, h.Text)
	return h, s.feedbackFx(msg, KindInfo, 4000), nil
}

// ShowSolution renders the full numbered solution. The solving state is
// untouched; the player can keep going after peeking.
func (s *Session) ShowSolution() ([]string, error) {
	s.mu.Lock()
	if s.puzzle == nil {
		fx := s.feedbackFx("No puzzle loaded.", KindWarning, 3000)
		s.mu.Unlock()
		runAll(fx)
		return nil, ErrNoPuzzle
	}
	lines := FormatSolution(s.puzzle)
	s.mu.Unlock()

	s.sink.RenderSolution(lines)
	return lines, nil
}

// FormatSolution renders a solution with standard move numbering. The
// starting number and the "N." / "N..." pairing come from the puzzle's
// FEN: a black-to-move puzzle opens with the "N..." form.
func FormatSolution(p *puzzle.Puzzle) []string {
	moveNo := 1
	if n, err := rules.FullmoveNumber(p.FEN); err == nil {
		moveNo = n
	}
	blackToMove := false
	if c, err := rules.TurnFromFEN(p.FEN); err == nil {
		blackToMove = c == rules.Black
	}

	lines := make([]string, 0, len(p.Solution))
	for _, m := range p.Solution {
		if blackToMove {
			lines = append(lines, fmt.Sprintf("%d... %s", moveNo, m))
			moveNo++
		} else {
			lines = append(lines, fmt.Sprintf("%d. %s", moveNo, m))
		}
		blackToMove = !blackToMove
	}
	return lines
}
