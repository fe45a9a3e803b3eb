// internal/puzzle/puzzle.go
//
// Core type definitions for tactics puzzles.
// Defines:
//   - Puzzle: one tactics problem (starting position, expected solution,
//     hints, rating metadata).
//   - Difficulty: coarse category derived from rating at load time.
//
// Solution shape (canonical):
//   - Flat SAN string slice in strict alternation: even indexes are the
//     player's required moves, odd indexes are the scripted opponent reply.
//   - A solution always ends on a player move.
// The loader normalizes the structured per-step variant into this shape, so
// solve-time code only ever sees the flat form.

package puzzle

// Difficulty buckets a puzzle by rating.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
)

// Rating thresholds between difficulty buckets.
const (
	ratingIntermediate = 1200
	ratingAdvanced     = 1600
	ratingExpert       = 2000
)

// DifficultyForRating buckets a rating: <1200 beginner, <1600 intermediate,
// <2000 advanced, expert above.
func DifficultyForRating(rating int) Difficulty {
	switch {
	case rating < ratingIntermediate:
		return Beginner
	case rating < ratingAdvanced:
		return Intermediate
	case rating < ratingExpert:
		return Advanced
	default:
		return Expert
	}
}

// PointsForRating maps a rating to a reward value with a monotonic step
// function over the same thresholds as DifficultyForRating.
func PointsForRating(rating int) int {
	switch {
	case rating < ratingIntermediate:
		return 10
	case rating < ratingAdvanced:
		return 15
	case rating < ratingExpert:
		return 20
	default:
		return 25
	}
}

// ParseDifficulty validates a difficulty label from puzzle data.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case Beginner, Intermediate, Advanced, Expert:
		return Difficulty(s), true
	}
	return "", false
}

// Puzzle is one tactics problem. Immutable once loaded; sessions hold
// read-only references and the repository owns the backing slice.
type Puzzle struct {
	ID          string     `json:"id"`
	FEN         string     `json:"fen"`
	Solution    []string   `json:"-"` // never serialized to clients
	Hints       []string   `json:"-"` // revealed one at a time via the API
	Theme       string     `json:"theme,omitempty"` // tactical motif: fork, pin, mate, ...
	Difficulty  Difficulty `json:"difficulty"`
	Rating      int        `json:"rating"`
	Points      int        `json:"points"`
	Description string     `json:"description,omitempty"`
}

// PlayerSteps is the number of moves the player must find.
func (p *Puzzle) PlayerSteps() int { return (len(p.Solution) + 1) / 2 }

// PlayerStepAt converts the solution cursor (number of moves consumed so
// far) into the count of player moves completed.
func PlayerStepAt(moveIndex int) int { return (moveIndex + 1) / 2 }

// IsOpponentIndex reports whether solution index i holds a scripted opponent
// reply rather than a player move.
func IsOpponentIndex(i int) bool { return i%2 == 1 }
