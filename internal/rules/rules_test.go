package rules

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position after 1.e4 e5 2.Qh5 Nc6 3.Bc4 Nf6, white mates with Qxf7#.
const scholarsFEN = "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4"

func TestNewGameRejectsBadFEN(t *testing.T) {
	for _, fen := range []string{"", "not a position", "8/8/8/8/8/8/8 w - - 0 1"} {
		if _, err := NewGame(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Errorf("NewGame(%q) error = %v, want ErrInvalidFEN", fen, err)
		}
	}
}

func TestMoveAppliesLegalSAN(t *testing.T) {
	g, err := NewGame(startFEN)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if got := g.Turn(); got != White {
		t.Fatalf("turn = %v, want white", got)
	}
	if err := g.Move("e4"); err != nil {
		t.Fatalf("Move(e4): %v", err)
	}
	if got := g.Turn(); got != Black {
		t.Fatalf("turn after e4 = %v, want black", got)
	}
	last, ok := g.LastMove()
	if !ok || last != "e4" {
		t.Fatalf("LastMove = %q, %v; want e4, true", last, ok)
	}
}

func TestMoveRejectsIllegalSAN(t *testing.T) {
	g, err := NewGame(startFEN)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	for _, san := range []string{"e5", "Ke2", "Qh5", "xyzzy", ""} {
		if err := g.Move(san); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("Move(%q) error = %v, want ErrIllegalMove", san, err)
		}
	}
	if g.Ply() != 0 {
		t.Fatalf("rejected moves must not advance the game, ply = %d", g.Ply())
	}
}

func TestMoveAcceptsDecoratedSANAndDetectsMate(t *testing.T) {
	g, err := NewGame(scholarsFEN)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.Move("Qxf7#"); err != nil {
		t.Fatalf("Move(Qxf7#): %v", err)
	}
	if !g.IsCheckmate() {
		t.Error("expected checkmate after Qxf7#")
	}
	if !g.GameOver() {
		t.Error("expected game over after mate")
	}
	if got := g.Outcome(); got != "1-0" {
		t.Errorf("outcome = %q, want 1-0", got)
	}
}

func TestStalemateDetection(t *testing.T) {
	// Qf7 leaves the black king unchecked with no legal move.
	g, err := NewGame("7k/8/6K1/8/8/1Q6/8/8 w - - 0 1")
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.Move("Qf7"); err != nil {
		t.Fatalf("Move(Qf7): %v", err)
	}
	if !g.IsStalemate() {
		t.Error("expected stalemate after Qf7")
	}
	if g.IsCheckmate() {
		t.Error("stalemate misreported as mate")
	}
	if !g.GameOver() {
		t.Error("stalemate must end the game")
	}
	if got := g.Outcome(); got != "1/2-1/2" {
		t.Errorf("outcome = %q, want 1/2-1/2", got)
	}
}

func TestHistoryRecordsSAN(t *testing.T) {
	g, err := NewGame(startFEN)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	for _, san := range []string{"e4", "e5", "Nf3"} {
		if err := g.Move(san); err != nil {
			t.Fatalf("Move(%s): %v", san, err)
		}
	}
	want := []string{"e4", "e5", "Nf3"}
	if diff := cmp.Diff(want, g.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if g.Ply() != 3 {
		t.Errorf("ply = %d, want 3", g.Ply())
	}
}

func TestLegalTargets(t *testing.T) {
	g, err := NewGame(startFEN)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	cases := []struct {
		square string
		want   []string
	}{
		{"e2", []string{"e3", "e4"}},
		{"g1", []string{"f3", "h3"}},
		{"e4", nil}, // empty square
		{"e8", nil}, // opponent piece, not to move
	}
	for _, tc := range cases {
		got, err := g.LegalTargets(tc.square)
		if err != nil {
			t.Fatalf("LegalTargets(%s): %v", tc.square, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("targets from %s mismatch (-want +got):\n%s", tc.square, diff)
		}
	}
	if _, err := g.LegalTargets("z9"); !errors.Is(err, ErrBadSquare) {
		t.Errorf("LegalTargets(z9) error = %v, want ErrBadSquare", err)
	}
}

func TestResetRewindsToStart(t *testing.T) {
	g, err := NewGame(startFEN)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.Move("e4"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if err := g.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if g.Ply() != 0 {
		t.Errorf("ply after reset = %d, want 0", g.Ply())
	}
	if got := g.FEN(); got != startFEN {
		t.Errorf("FEN after reset = %q, want start position", got)
	}
	if got := g.StartFEN(); got != startFEN {
		t.Errorf("StartFEN = %q, want the construction FEN", got)
	}
}

func TestNormalizeSAN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Nxf7+", "Nxf7"},
		{"Qh4#", "Qh4"},
		{"Bxf7+!", "Bxf7"},
		{"e8=Q+", "e8=Q"},
		{"0-0", "O-O"},
		{"0-0-0", "O-O-O"},
		{"o-o", "O-O"},
		{" e4 ", "e4"},
		{"Rd8", "Rd8"},
	}
	for _, tc := range cases {
		if got := NormalizeSAN(tc.in); got != tc.want {
			t.Errorf("NormalizeSAN(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if !SameMove("Nxf7+", "Nxf7") || SameMove("Nxf7", "Nxe7") {
		t.Error("SameMove comparison broken")
	}
}

func TestFENFieldHelpers(t *testing.T) {
	if turn, err := TurnFromFEN(scholarsFEN); err != nil || turn != White {
		t.Errorf("TurnFromFEN = %v, %v; want white", turn, err)
	}
	if turn, err := TurnFromFEN("8/8/8/8/8/8/8/8 b - - 0 42"); err != nil || turn != Black {
		t.Errorf("TurnFromFEN(black) = %v, %v; want black", turn, err)
	}
	if _, err := TurnFromFEN("nonsense"); err == nil {
		t.Error("TurnFromFEN accepted a FEN without a side-to-move field")
	}
	if n, err := FullmoveNumber(scholarsFEN); err != nil || n != 4 {
		t.Errorf("FullmoveNumber = %d, %v; want 4", n, err)
	}
	if n, err := FullmoveNumber("8/8/8/8/8/8/8/8 w"); err != nil || n != 1 {
		t.Errorf("FullmoveNumber without counters = %d, %v; want default 1", n, err)
	}
}
