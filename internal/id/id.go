package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// scratch names are short; they only disambiguate concurrent runs
// against the same directory.
const scratchLength = 10

// Scratch creates a short unique suffix for temporary sibling files,
// e.g. "chaptify-V1StGXR8_Z".
//
// NanoIDs are URL- and filename-friendly and compact, which matters for
// paths that end up in ffmpeg command lines.
func Scratch(prefix string) (string, error) {
	id, err := gonanoid.New(scratchLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustScratch is like Scratch but panics if ID generation fails.
// Use only where failure should crash the program.
func MustScratch(prefix string) string {
	id, err := Scratch(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
