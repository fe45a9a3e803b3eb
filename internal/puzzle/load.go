// internal/puzzle/load.go
//
// Decoding, normalization and validation of puzzle collections.
//
// Collection document (JSON):
//   { "version": "...", "totalPuzzles": n, "themes": [...],
//     "puzzles": [ <puzzle>, ... ] }
// A "problems" key is accepted in place of "puzzles" for older exports;
// version/totalPuzzles/themes are informational only.
//
// Each puzzle record carries a solution in one of two shapes:
//   - flat:       "solution": ["Ng5", "d6", "Nxf7"]
//   - structured: "solution": [{"move": "Ng5", "explanation": "...",
//                               "opponentResponse": "d6"}, ...]
// The structured shape is normalized to the flat one here; its explanations
// become progressive hints when the record has none of its own.
//
// Every record is validated before it is accepted: required fields, strict
// player/opponent alternation (must end on a player move), and a full replay
// of the solution against the rules engine from the record's FEN. Records
// that fail validation are logged loudly and skipped: a corrupt puzzle is
// disabled, never half-loaded.

package puzzle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bvst/ChessHawk-sub000/internal/rules"
)

// ErrInvalidCollection indicates the collection document itself is unusable
// (bad JSON, missing puzzle array, or no valid puzzles at all).
var ErrInvalidCollection = errors.New("invalid puzzle collection")

// Collection is a decoded, validated puzzle set.
type Collection struct {
	Version string
	Themes  []string
	Puzzles []*Puzzle
}

// collectionDoc mirrors the wire shape of a collection file.
type collectionDoc struct {
	Version      string          `json:"version"`
	TotalPuzzles int             `json:"totalPuzzles"`
	Themes       []string        `json:"themes"`
	Puzzles      []puzzleDoc     `json:"puzzles"`
	Problems     []puzzleDoc     `json:"problems"`
}

// puzzleDoc mirrors the wire shape of one puzzle record.
type puzzleDoc struct {
	ID          string          `json:"id"`
	FEN         string          `json:"fen"`
	Solution    json.RawMessage `json:"solution"`
	Hint        string          `json:"hint"`
	Hints       []string        `json:"hints"`
	Theme       string          `json:"theme"`
	Category    string          `json:"category"` // older exports use "category"
	Difficulty  string          `json:"difficulty"`
	Rating      int             `json:"rating"`
	Points      int             `json:"points"`
	Description string          `json:"description"`
}

// solutionStep is the structured per-step solution variant.
type solutionStep struct {
	Move             string `json:"move"`
	Explanation      string `json:"explanation"`
	OpponentResponse string `json:"opponentResponse"`
}

// Decode parses and validates a collection document. Invalid puzzles are
// skipped with an error log; Decode fails only when the document itself is
// broken or not a single puzzle survives validation.
func Decode(data []byte) (*Collection, error) {
	var doc collectionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCollection, err)
	}
	records := doc.Puzzles
	if len(records) == 0 {
		records = doc.Problems
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no puzzles array", ErrInvalidCollection)
	}

	col := &Collection{Version: doc.Version, Themes: doc.Themes}
	seen := make(map[string]struct{}, len(records))
	for i, rec := range records {
		p, err := normalize(rec)
		if err == nil {
			if _, dup := seen[p.ID]; dup {
				err = fmt.Errorf("duplicate puzzle id %q", p.ID)
			} else if err = Validate(p); err == nil {
				seen[p.ID] = struct{}{}
				col.Puzzles = append(col.Puzzles, p)
				continue
			}
		}
		log.Error().Int("index", i).Str("id", rec.ID).Err(err).
			Msg("skipping invalid puzzle")
	}
	if len(col.Puzzles) == 0 {
		return nil, fmt.Errorf("%w: no valid puzzles", ErrInvalidCollection)
	}
	return col, nil
}

// normalize converts a wire record into the canonical Puzzle shape, deriving
// difficulty and points from the rating when the record omits them.
func normalize(rec puzzleDoc) (*Puzzle, error) {
	moves, explanations, err := normalizeSolution(rec.Solution)
	if err != nil {
		return nil, err
	}

	hints := rec.Hints
	if len(hints) == 0 && rec.Hint != "" {
		hints = []string{rec.Hint}
	}
	if len(hints) == 0 && len(explanations) > 0 {
		hints = explanations
	}

	theme := rec.Theme
	if theme == "" {
		theme = rec.Category
	}

	diff, ok := ParseDifficulty(rec.Difficulty)
	if !ok {
		if rec.Difficulty != "" {
			return nil, fmt.Errorf("unknown difficulty %q", rec.Difficulty)
		}
		diff = DifficultyForRating(rec.Rating)
	}

	points := rec.Points
	if points <= 0 {
		points = PointsForRating(rec.Rating)
	}

	return &Puzzle{
		ID:          rec.ID,
		FEN:         rec.FEN,
		Solution:    moves,
		Hints:       hints,
		Theme:       theme,
		Difficulty:  diff,
		Rating:      rec.Rating,
		Points:      points,
		Description: rec.Description,
	}, nil
}

// normalizeSolution accepts either solution shape and returns the flat SAN
// sequence plus any per-step explanations (in player-move order).
func normalizeSolution(raw json.RawMessage) (moves, explanations []string, err error) {
	if len(raw) == 0 {
		return nil, nil, errors.New("missing solution")
	}
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil, nil
	}
	var steps []solutionStep
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, nil, errors.New("solution is neither a SAN array nor a step array")
	}
	for _, st := range steps {
		if st.Move == "" {
			return nil, nil, errors.New("solution step missing move")
		}
		moves = append(moves, st.Move)
		if st.Explanation != "" {
			explanations = append(explanations, st.Explanation)
		}
		if st.OpponentResponse != "" {
			moves = append(moves, st.OpponentResponse)
		}
	}
	return moves, explanations, nil
}

// Validate checks a puzzle's structural invariants and replays its solution
// against the rules engine from the puzzle's FEN. Every token must be legal
// in sequence and the sequence must end on a player move.
func Validate(p *Puzzle) error {
	switch {
	case p.ID == "":
		return errors.New("missing id")
	case p.FEN == "":
		return errors.New("missing fen")
	case len(p.Solution) == 0:
		return errors.New("empty solution")
	case len(p.Solution)%2 == 0:
		return errors.New("solution ends on an opponent move")
	}
	g, err := rules.NewGame(p.FEN)
	if err != nil {
		return err
	}
	for i, san := range p.Solution {
		if san == "" {
			return fmt.Errorf("empty move at index %d", i)
		}
		if err := g.Move(san); err != nil {
			return fmt.Errorf("move %d (%s): %w", i, san, err)
		}
	}
	return nil
}
