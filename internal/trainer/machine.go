// internal/trainer/machine.go
//
// Move evaluation for the tactics trainer.
// Responsibilities:
//   - Apply player moves through the rules engine and judge them against
//     the puzzle's solution sequence.
//   - Wrong move: cursor back to zero, board left on the wrong position,
//     recovery is an explicit position reset.
//   - Correct move: advance; either schedule the scripted opponent reply
//     on the delay timer or complete the puzzle.
//   - Completion: award points through the progress store (replays pay out
//     again; the solved set gains the id at most once).
//
// Notes:
//   - lastEvalPly records how much of the move history has been judged, so
//     a second check of the same move can never re-run against the advanced
//     cursor and misfire a wrong-move reset.
//   - A scripted reply the engine rejects is corrupt puzzle data. The
//     puzzle is disabled loudly rather than leaving the session half-valid.

package trainer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
	"github.com/bvst/ChessHawk-sub000/internal/rules"
)

// PlayMove applies one player move and judges it against the solution.
// Illegal SAN leaves the machine untouched. Moves are rejected while the
// opponent reply is pending and after the puzzle is solved.
func (s *Session) PlayMove(ctx context.Context, san string) (Result, error) {
	s.mu.Lock()
	res, fx, err := s.playMoveLocked(ctx, san)
	s.mu.Unlock()
	runAll(fx)
	return res, err
}

func (s *Session) playMoveLocked(ctx context.Context, san string) (Result, []func(), error) {
	if s.puzzle == nil {
		return Result{}, s.feedbackFx("No puzzle loaded.", KindWarning, 3000), ErrNoPuzzle
	}
	switch s.state {
	case StateSolved:
		return Result{}, s.feedbackFx("Already solved. Load the next puzzle or reset to replay.", KindInfo, 3000), ErrAlreadySolved
	case StateOpponent:
		return Result{}, s.feedbackFx("Wait for the opponent's reply.", KindWarning, 2000), ErrOpponentPending
	}

	if err := s.game.Move(san); err != nil {
		fx := s.feedbackFx(fmt.Sprintf("Illegal move: %s.", san), KindError, 3000)
		return Result{}, fx, fmt.Errorf("play %q: %w", san, err)
	}
	played, _ := s.game.LastMove()
	s.lastEvalPly = s.game.Ply()
	return s.evaluateLocked(ctx, played)
}

// CheckSolution is the standalone check affordance: it judges the most
// recent move if it has not been judged yet.
func (s *Session) CheckSolution(ctx context.Context) (Result, error) {
	s.mu.Lock()
	res, fx, err := s.checkLocked(ctx)
	s.mu.Unlock()
	runAll(fx)
	return res, err
}

func (s *Session) checkLocked(ctx context.Context) (Result, []func(), error) {
	if s.puzzle == nil {
		return Result{}, s.feedbackFx("No puzzle loaded.", KindWarning, 3000), ErrNoPuzzle
	}
	switch s.state {
	case StateSolved:
		return Result{}, s.feedbackFx("Already solved. Load the next puzzle or reset to replay.", KindInfo, 3000), ErrAlreadySolved
	case StateOpponent:
		return Result{}, s.feedbackFx("Wait for the opponent's reply.", KindWarning, 2000), ErrOpponentPending
	}
	if s.game.Ply() == 0 {
		return Result{}, s.feedbackFx("You must make a move first.", KindWarning, 3000), ErrNoMovesPlayed
	}
	if s.game.Ply() == s.lastEvalPly {
		return Result{}, s.feedbackFx("That move was already checked. Make a new move.", KindInfo, 3000), ErrNoMovesPlayed
	}
	played, _ := s.game.LastMove()
	s.lastEvalPly = s.game.Ply()
	return s.evaluateLocked(ctx, played)
}

// evaluateLocked judges one played move against solution[moveIndex] and
// advances the machine. Caller holds the lock and has applied the move.
func (s *Session) evaluateLocked(ctx context.Context, played string) (Result, []func(), error) {
	p := s.puzzle
	expected := p.Solution[s.moveIndex]

	res := Result{
		Move:        played,
		TotalMoves:  len(p.Solution),
		PlayerSteps: p.PlayerSteps(),
		FEN:         s.game.FEN(),
	}

	if !rules.SameMove(played, expected) {
		// Wrong move: the whole sequence restarts. The board keeps the
		// wrong position until the player resets it.
		s.moveIndex = 0
		res.Verdict = VerdictWrong
		res.Expected = expected
		res.MoveIndex = 0
		res.PlayerStep = 0
		res.Message = fmt.Sprintf("Wrong move. Expected %s, you played %s. Reset the position and start over.", expected, played)
		msg := res.Message
		return res, []func(){func() {
			s.sink.ShowFeedback(msg, KindError, 5000)
			s.sink.UpdateStatus("Wrong move. Reset the position to try again.")
		}}, nil
	}

	s.moveIndex++
	if s.moveIndex == len(p.Solution) {
		return s.completeLocked(ctx, res)
	}

	// Next entry is the scripted opponent reply; play it after the pacing
	// delay. Player input is rejected until it lands.
	s.state = StateOpponent
	seq := s.replySeq
	s.replyTimer = time.AfterFunc(s.delay, func() { s.playReply(seq) })

	res.Verdict = VerdictCorrect
	res.MoveIndex = s.moveIndex
	res.PlayerStep = puzzle.PlayerStepAt(s.moveIndex)
	res.WaitingForOpponent = true
	res.Message = fmt.Sprintf("Correct! %s is right.", played)
	msg := res.Message
	fen := res.FEN
	return res, []func(){func() {
		s.board.Render(fen)
		s.sink.ShowFeedback(msg, KindSuccess, 2500)
		s.sink.UpdateStatus("Waiting for the opponent's reply...")
	}}, nil
}

// playReply runs on the timer goroutine and plays the scripted opponent
// move. A stale generation or a superseded state makes it a no-op.
func (s *Session) playReply(seq int) {
	s.mu.Lock()
	fx := s.playReplyLocked(seq)
	s.mu.Unlock()
	runAll(fx)
}

func (s *Session) playReplyLocked(seq int) []func() {
	if seq != s.replySeq || s.state != StateOpponent || s.puzzle == nil {
		return nil
	}
	s.replyTimer = nil

	reply := s.puzzle.Solution[s.moveIndex]
	if err := s.game.Move(reply); err != nil {
		// Corrupt solution data. Load-time validation makes this
		// unreachable for repository puzzles; disable the puzzle loudly.
		id := s.puzzle.ID
		log.Error().Str("puzzle", id).Int("moveIndex", s.moveIndex).
			Str("move", reply).Err(err).
			Msg("scripted opponent reply rejected by rules engine")
		s.puzzle = nil
		s.game = nil
		s.state = StateIdle
		return []func(){func() {
			s.sink.ShowFeedback(fmt.Sprintf("Puzzle %s has broken solution data and was disabled.", id), KindError, 6000)
			s.sink.UpdateStatus("Load another puzzle.")
		}}
	}

	played, _ := s.game.LastMove()
	s.moveIndex++
	s.lastEvalPly = s.game.Ply()
	s.state = StateAwaiting

	fen := s.game.FEN()
	seeking := puzzle.PlayerStepAt(s.moveIndex) + 1
	status := fmt.Sprintf("Opponent played %s. Your move (%d of %d).", played, seeking, s.puzzle.PlayerSteps())
	note := fmt.Sprintf("Opponent replied %s.", played)
	return []func(){func() {
		s.board.Render(fen)
		s.sink.ShowFeedback(note, KindInfo, 2500)
		s.sink.UpdateStatus(status)
	}}
}

// completeLocked runs the single completion side effect: points are always
// awarded, the solved set gains the id at most once, and the session locks
// into the solved state until a reset or a new puzzle.
func (s *Session) completeLocked(ctx context.Context, res Result) (Result, []func(), error) {
	p := s.puzzle
	points := p.Points
	hintsUsed := s.hintIndex

	first := !s.solved[p.ID]
	if prog, storeFirst, err := s.progress.RecordSolve(ctx, s.playerID, p.ID, points); err != nil {
		// Fire-and-forget persistence: keep the session consistent from
		// the local mirror and move on.
		log.Error().Str("player", s.playerID).Str("puzzle", p.ID).Err(err).Msg("progress write failed")
		s.score += points
	} else {
		s.score = prog.Score
		first = storeFirst
	}
	s.solved[p.ID] = true

	s.moveIndex = 0
	s.hintIndex = 0
	s.state = StateSolved

	var msg string
	if first {
		msg = fmt.Sprintf("Solved! +%d points. Total score: %d.", points, s.score)
	} else {
		msg = fmt.Sprintf("Solved again. +%d points, already on your solved list. Total score: %d.", points, s.score)
	}

	res.Verdict = VerdictSolved
	res.MoveIndex = 0
	res.PlayerStep = p.PlayerSteps()
	res.Message = msg
	res.Completion = &Completion{
		PuzzleID:    p.ID,
		Points:      points,
		Score:       s.score,
		FirstSolve:  first,
		SolvedCount: len(s.solved),
		HintsUsed:   hintsUsed,
	}
	s.lastCompletion = res.Completion

	score := s.score
	fen := res.FEN
	return res, []func(){func() {
		s.board.Render(fen)
		s.sink.ShowFeedback(msg, KindSuccess, 6000)
		s.sink.UpdateScore(score)
		s.sink.UpdateStatus("Puzzle solved. Load the next one when ready.")
	}}, nil
}
