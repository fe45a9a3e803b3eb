package trainer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
	"github.com/bvst/ChessHawk-sub000/internal/trainer"
)

func TestHintSaturation(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, trainer.Config{})
	if err := s.LoadPuzzle(ctx, onePuzzle()); err != nil {
		t.Fatal(err)
	}

	h, err := s.ShowHint()
	if err != nil {
		t.Fatalf("ShowHint: %v", err)
	}
	if h.Text != "Open lines for the queen." || h.Number != 1 || h.Total != 2 {
		t.Errorf("first hint = %+v", h)
	}

	h, err = s.ShowHint()
	if err != nil {
		t.Fatalf("ShowHint: %v", err)
	}
	if h.Number != 2 {
		t.Errorf("second hint = %+v", h)
	}

	// Past the end the last hint repeats forever; never an error, never a
	// wrap back to the first.
	for i := 0; i < 3; i++ {
		h, err = s.ShowHint()
		if err != nil {
			t.Fatalf("saturated ShowHint: %v", err)
		}
		if h.Text != "Push a center pawn." || h.Number != 2 {
			t.Errorf("saturated hint = %+v", h)
		}
	}
	if got := s.Snapshot().HintsUsed; got != 2 {
		t.Errorf("HintsUsed = %d, want 2", got)
	}
}

func TestHintWithoutHints(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	s := newSession(t, trainer.Config{Sink: sink})
	if err := s.LoadPuzzle(ctx, forkPuzzle()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ShowHint(); !errors.Is(err, trainer.ErrNoHints) {
		t.Errorf("ShowHint on hintless puzzle: %v, want ErrNoHints", err)
	}
	if !sink.sawFeedback("No hint available") {
		t.Error("missing-hint feedback not shown")
	}

	idle := newSession(t, trainer.Config{})
	if _, err := idle.ShowHint(); !errors.Is(err, trainer.ErrNoPuzzle) {
		t.Errorf("ShowHint on idle session: %v, want ErrNoPuzzle", err)
	}
}

func TestFormatSolutionNumbering(t *testing.T) {
	cases := []struct {
		name string
		p    *puzzle.Puzzle
		want []string
	}{
		{
			name: "white to move mid-game",
			p: &puzzle.Puzzle{
				FEN:      "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4",
				Solution: []string{"Qxf7#"},
			},
			want: []string{"4. Qxf7#"},
		},
		{
			name: "black to move opens with dots",
			p: &puzzle.Puzzle{
				FEN:      "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq g3 0 2",
				Solution: []string{"Qh4#"},
			},
			want: []string{"2... Qh4#"},
		},
		{
			name: "alternating pairs",
			p: &puzzle.Puzzle{
				FEN:      forkFEN,
				Solution: []string{"Nc7+", "Kd8", "Nxa8"},
			},
			want: []string{"1. Nc7+", "1... Kd8", "2. Nxa8"},
		},
		{
			name: "black first multi-move",
			p: &puzzle.Puzzle{
				FEN:      "6k1/5ppp/8/8/8/8/r4PPP/4R1K1 b - - 0 30",
				Solution: []string{"Ra1", "Rxa1"},
			},
			want: []string{"30... Ra1", "31. Rxa1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, trainer.FormatSolution(tc.p)); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShowSolutionIsReadOnly(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	s := newSession(t, trainer.Config{Sink: sink})
	if err := s.LoadPuzzle(ctx, onePuzzle()); err != nil {
		t.Fatal(err)
	}

	lines, err := s.ShowSolution()
	if err != nil {
		t.Fatalf("ShowSolution: %v", err)
	}
	if diff := cmp.Diff([]string{"1. e4"}, lines); diff != "" {
		t.Errorf("solution lines (-want +got):\n%s", diff)
	}
	if len(sink.solutions) != 1 {
		t.Errorf("solution rendered %d times, want 1", len(sink.solutions))
	}

	// Peeking is free: state, cursor and score are untouched, and the
	// puzzle can still be solved for full points.
	snap := s.Snapshot()
	if snap.State != trainer.StateAwaiting || snap.MoveIndex != 0 || snap.Score != 0 {
		t.Errorf("ShowSolution mutated the session: %+v", snap)
	}
	res, err := s.PlayMove(ctx, "e4")
	if err != nil {
		t.Fatal(err)
	}
	if res.Verdict != trainer.VerdictSolved || res.Completion.Points != 10 {
		t.Errorf("solve after peek = %+v", res)
	}

	idle := newSession(t, trainer.Config{})
	if _, err := idle.ShowSolution(); !errors.Is(err, trainer.ErrNoPuzzle) {
		t.Errorf("ShowSolution on idle session: %v, want ErrNoPuzzle", err)
	}
}
