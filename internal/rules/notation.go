// internal/rules/notation.go
//
// SAN normalization and FEN field helpers shared by the loader and trainer.

package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeSAN canonicalizes a SAN token for comparison:
//   - zero-style castling becomes letter-style ("0-0" → "O-O"),
//   - check/mate markers and annotation glyphs are stripped ("Nxf7+!" → "Nxf7").
//
// The move itself is untouched; two tokens that normalize equal denote the
// same move whenever both are valid SAN for the same position.
func NormalizeSAN(san string) string {
	s := strings.TrimSpace(san)
	if s == "0-0-0" || s == "o-o-o" {
		s = "O-O-O"
	} else if s == "0-0" || s == "o-o" {
		s = "O-O"
	}
	for len(s) > 0 {
		switch s[len(s)-1] {
		case '+', '#', '!', '?':
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}

// SameMove reports whether two SAN tokens denote the same move after
// normalization.
func SameMove(a, b string) bool { return NormalizeSAN(a) == NormalizeSAN(b) }

// TurnFromFEN extracts the side-to-move field of a FEN string.
func TurnFromFEN(fen string) (Color, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: missing side to move", ErrInvalidFEN)
	}
	switch fields[1] {
	case "w":
		return White, nil
	case "b":
		return Black, nil
	}
	return "", fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
}

// FullmoveNumber extracts the fullmove counter of a FEN string. FENs that
// omit the trailing counters (some exported puzzle sets do) default to 1.
func FullmoveNumber(fen string) (int, error) {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		if len(fields) < 2 {
			return 0, fmt.Errorf("%w: too few fields", ErrInvalidFEN)
		}
		return 1, nil
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: fullmove %q", ErrInvalidFEN, fields[5])
	}
	return n, nil
}
