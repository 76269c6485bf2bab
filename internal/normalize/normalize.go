// Package normalize provides canonical string forms for identity matching.
//
// Catalog metadata and embedded tags disagree on case, punctuation,
// diacritics and author name order. All comparisons in the matcher happen
// on the folded forms produced here.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches one or more non-alphanumeric characters.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches runs of whitespace.
	whitespace = regexp.MustCompile(`\s+`)
)

// Sanitize removes null bytes from strings. Some audio metadata parsers
// include null terminators in tag values.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}

// Fold converts a string to its canonical comparison form:
// unicode-decomposed, ASCII-only, lowercase, punctuation stripped,
// whitespace collapsed.
//
//	"Howl's Moving Castle"  -> "howls moving castle"
//	"José  Saramago"        -> "jose saramago"
func Fold(s string) string {
	// Normalize unicode (decompose accented characters).
	s = norm.NFKD.String(Sanitize(s))

	// Remove combining marks and other non-ASCII characters.
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) || r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)

	// Replace punctuation with spaces, then collapse.
	s = nonAlphanumeric.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// AuthorKey converts an author name to an order-insensitive canonical key
// by sorting the folded name tokens. "Diana Wynne Jones", "Jones, Diana
// Wynne" and "JONES Diana Wynne" all produce the same key.
func AuthorKey(s string) string {
	folded := Fold(s)
	if folded == "" {
		return ""
	}
	tokens := strings.Fields(folded)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// SplitAuthors splits a multi-author credit into individual names.
// Handles "A & B", "A and B" and semicolon lists. Commas are left alone
// because "Last, First" is a name-order variant, not a list separator;
// AuthorKey makes the two forms compare equal anyway.
func SplitAuthors(s string) []string {
	replaced := strings.NewReplacer(" & ", ";", " and ", ";").Replace(s)
	parts := strings.Split(replaced, ";")

	authors := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			authors = append(authors, p)
		}
	}
	return authors
}
