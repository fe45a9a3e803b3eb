// assets/embed.go
//
// Embedded data files. puzzles.json is the built-in fallback puzzle
// collection: a small, known-good set that keeps the trainer usable when no
// external collection is configured or the configured one fails to load.

package assets

import (
	"embed"
)

//go:embed puzzles.json
var FS embed.FS

// BuiltinPuzzles returns the raw embedded fallback collection.
func BuiltinPuzzles() []byte {
	data, err := FS.ReadFile("puzzles.json")
	if err != nil {
		// The file is compiled into the binary; a read failure is a broken build.
		panic("assets: embedded puzzles.json missing: " + err.Error())
	}
	return data
}
