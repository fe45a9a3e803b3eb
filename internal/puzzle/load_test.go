package puzzle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bvst/ChessHawk-sub000/assets"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestDecodeBuiltinCollection(t *testing.T) {
	col, err := Decode(assets.BuiltinPuzzles())
	if err != nil {
		t.Fatalf("builtin collection failed to decode: %v", err)
	}
	// Every shipped puzzle must survive validation; a skipped builtin
	// puzzle is a broken build, not a runtime condition.
	if got := len(col.Puzzles); got != 8 {
		t.Fatalf("builtin puzzles = %d, want 8 (some were skipped as invalid)", got)
	}
	for _, p := range col.Puzzles {
		if p.Points <= 0 {
			t.Errorf("puzzle %s has no points", p.ID)
		}
		if p.Difficulty == "" {
			t.Errorf("puzzle %s has no difficulty", p.ID)
		}
		if len(p.Solution)%2 == 0 {
			t.Errorf("puzzle %s solution ends on an opponent move", p.ID)
		}
	}
}

func TestDecodeAcceptsProblemsKey(t *testing.T) {
	data := []byte(`{"problems":[{"id":"p1","fen":"` + startFEN + `","solution":["e4"],"rating":1000}]}`)
	col, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(col.Puzzles) != 1 || col.Puzzles[0].ID != "p1" {
		t.Fatalf("unexpected collection: %+v", col.Puzzles)
	}
}

func TestDecodeNormalizesStructuredSolution(t *testing.T) {
	data := []byte(`{"puzzles":[{
		"id": "structured",
		"fen": "` + startFEN + `",
		"solution": [
			{"move": "e4", "explanation": "Grab the center.", "opponentResponse": "e5"},
			{"move": "Nf3", "explanation": "Develop with tempo."}
		],
		"category": "opening",
		"rating": 1500
	}]}`)
	col, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := col.Puzzles[0]
	if diff := cmp.Diff([]string{"e4", "e5", "Nf3"}, p.Solution); diff != "" {
		t.Errorf("normalized solution mismatch (-want +got):\n%s", diff)
	}
	// Step explanations become progressive hints when the record has none.
	if diff := cmp.Diff([]string{"Grab the center.", "Develop with tempo."}, p.Hints); diff != "" {
		t.Errorf("hints mismatch (-want +got):\n%s", diff)
	}
	if p.Theme != "opening" {
		t.Errorf("category alias not honored, theme = %q", p.Theme)
	}
	if p.Difficulty != Intermediate || p.Points != 15 {
		t.Errorf("derivation: difficulty=%s points=%d, want intermediate/15", p.Difficulty, p.Points)
	}
}

func TestDecodeSkipsInvalidPuzzles(t *testing.T) {
	data := []byte(`{"puzzles":[
		{"id": "good", "fen": "` + startFEN + `", "solution": ["e4"], "rating": 900},
		{"id": "illegal-move", "fen": "` + startFEN + `", "solution": ["e5"]},
		{"id": "ends-on-opponent", "fen": "` + startFEN + `", "solution": ["e4", "e5"]},
		{"id": "", "fen": "` + startFEN + `", "solution": ["e4"]},
		{"id": "no-fen", "solution": ["e4"]},
		{"id": "good", "fen": "` + startFEN + `", "solution": ["d4"]},
		{"id": "bad-difficulty", "fen": "` + startFEN + `", "solution": ["e4"], "difficulty": "impossible"}
	]}`)
	col, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(col.Puzzles) != 1 || col.Puzzles[0].ID != "good" {
		t.Fatalf("want only the single valid puzzle, got %d", len(col.Puzzles))
	}
}

func TestDecodeRejectsBrokenDocuments(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"no arrays", `{"version":"1"}`},
		{"empty array", `{"puzzles":[]}`},
		{"all invalid", `{"puzzles":[{"id":"x","fen":"junk","solution":["e4"]}]}`},
		{"solution wrong type", `{"puzzles":[{"id":"x","fen":"` + startFEN + `","solution":"e4"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decode([]byte(tc.data)); !errors.Is(err, ErrInvalidCollection) {
				t.Errorf("Decode error = %v, want ErrInvalidCollection", err)
			}
		})
	}
}

func TestDerivationTables(t *testing.T) {
	cases := []struct {
		rating int
		diff   Difficulty
		points int
	}{
		{0, Beginner, 10},
		{1199, Beginner, 10},
		{1200, Intermediate, 15},
		{1599, Intermediate, 15},
		{1600, Advanced, 20},
		{1999, Advanced, 20},
		{2000, Expert, 25},
		{2800, Expert, 25},
	}
	for _, tc := range cases {
		if got := DifficultyForRating(tc.rating); got != tc.diff {
			t.Errorf("DifficultyForRating(%d) = %s, want %s", tc.rating, got, tc.diff)
		}
		if got := PointsForRating(tc.rating); got != tc.points {
			t.Errorf("PointsForRating(%d) = %d, want %d", tc.rating, got, tc.points)
		}
	}
}

func TestLoadFallsBackToBuiltin(t *testing.T) {
	builtin := assets.BuiltinPuzzles()

	// Missing file.
	repo, err := Load(filepath.Join(t.TempDir(), "nope.json"), builtin)
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if repo.Source() != "builtin" || repo.Count() == 0 {
		t.Fatalf("want builtin fallback, got source=%q count=%d", repo.Source(), repo.Count())
	}

	// Corrupt file.
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"puzzles": 17}`), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, err = Load(bad, builtin)
	if err != nil {
		t.Fatalf("Load with corrupt file: %v", err)
	}
	if repo.Source() != "builtin" {
		t.Fatalf("want builtin fallback for corrupt file, got %q", repo.Source())
	}

	// Valid file wins over builtin.
	good := filepath.Join(t.TempDir(), "good.json")
	doc := `{"puzzles":[{"id":"only","fen":"` + startFEN + `","solution":["e4"],"rating":1000}]}`
	if err := os.WriteFile(good, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	repo, err = Load(good, builtin)
	if err != nil {
		t.Fatalf("Load with good file: %v", err)
	}
	if repo.Source() != good || repo.Count() != 1 {
		t.Fatalf("want file-backed repo, got source=%q count=%d", repo.Source(), repo.Count())
	}

	// No path at all → builtin.
	repo, err = Load("", builtin)
	if err != nil {
		t.Fatalf("Load without path: %v", err)
	}
	if repo.Source() != "builtin" {
		t.Fatalf("want builtin source, got %q", repo.Source())
	}
}
