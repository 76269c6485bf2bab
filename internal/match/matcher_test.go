package match

import (
	"testing"

	"github.com/chaptifyapp/chaptify/internal/catalog/spotify"
	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/identity"
	"github.com/chaptifyapp/chaptify/internal/logger"
)

func newMatcher() *Matcher {
	return New(logger.Discard().Logger)
}

func TestSelect_ExactTitleWins(t *testing.T) {
	candidates := []spotify.Work{
		{ID: "w1", Title: "Howl's Moving Castle", Authors: []string{"Diana Wynne Jones"}},
		{ID: "w2", Title: "Castle in the Air", Authors: []string{"Diana Wynne Jones"}},
	}
	key := identity.Key{Author: "Diana Wynne Jones", Title: "Howl's Moving Castle"}

	work, err := newMatcher().Select(key, candidates)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if work.ID != "w1" {
		t.Errorf("selected %q, want w1", work.ID)
	}
}

func TestSelect_AuthorIsAHardFilter(t *testing.T) {
	// Same title, wrong author: excluded, not down-ranked.
	candidates := []spotify.Work{
		{ID: "w1", Title: "Dune", Authors: []string{"Somebody Else"}},
	}
	key := identity.Key{Author: "Frank Herbert", Title: "Dune"}

	_, err := newMatcher().Select(key, candidates)
	if !errors.Is(err, errors.ErrNoMatch) {
		t.Fatalf("error = %v, want no-match", err)
	}

	var pipeErr *errors.Error
	if !errors.As(err, &pipeErr) {
		t.Fatal("expected a typed pipeline error")
	}
	rejected, ok := pipeErr.Details.([]Candidate)
	if !ok || len(rejected) != 1 {
		t.Fatalf("details = %#v, want one rejected candidate", pipeErr.Details)
	}
	if rejected[0].Reason != "author mismatch" {
		t.Errorf("reason = %q", rejected[0].Reason)
	}
}

func TestSelect_AuthorOrderVariants(t *testing.T) {
	candidates := []spotify.Work{
		{ID: "w1", Title: "Dune", Authors: []string{"Herbert, Frank"}},
	}
	key := identity.Key{Author: "Frank Herbert", Title: "Dune"}

	work, err := newMatcher().Select(key, candidates)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if work.ID != "w1" {
		t.Errorf("selected %q, want w1", work.ID)
	}
}

func TestSelect_MultiAuthorCredit(t *testing.T) {
	candidates := []spotify.Work{
		{ID: "w1", Title: "The Long Earth", Authors: []string{"Terry Pratchett & Stephen Baxter"}},
	}
	key := identity.Key{Author: "Stephen Baxter", Title: "The Long Earth"}

	work, err := newMatcher().Select(key, candidates)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if work.ID != "w1" {
		t.Errorf("selected %q, want w1", work.ID)
	}
}

func TestSelect_NormalizedTitleComparison(t *testing.T) {
	candidates := []spotify.Work{
		{ID: "w1", Title: "Howls Moving Castle (Unabridged)", Authors: []string{"Diana Wynne Jones"}},
	}
	key := identity.Key{Author: "Diana Wynne Jones", Title: "Howl's Moving Castle"}

	work, err := newMatcher().Select(key, candidates)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if work.ID != "w1" {
		t.Errorf("selected %q, want w1", work.ID)
	}
}

func TestSelect_DurationHintBreaksTie(t *testing.T) {
	candidates := []spotify.Work{
		{ID: "abridged", Title: "Dune", Authors: []string{"Frank Herbert"}, TotalDurationMs: 8 * 3600 * 1000},
		{ID: "unabridged", Title: "Dune", Authors: []string{"Frank Herbert"}, TotalDurationMs: 21 * 3600 * 1000},
	}
	key := identity.Key{
		Author:         "Frank Herbert",
		Title:          "Dune",
		DurationHintMs: 21*3600*1000 + 42,
	}

	work, err := newMatcher().Select(key, candidates)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if work.ID != "unabridged" {
		t.Errorf("selected %q, want unabridged", work.ID)
	}
}

func TestSelect_ProviderOrderWithoutHint(t *testing.T) {
	candidates := []spotify.Work{
		{ID: "first", Title: "Dune", Authors: []string{"Frank Herbert"}},
		{ID: "second", Title: "Dune", Authors: []string{"Frank Herbert"}},
	}
	key := identity.Key{Author: "Frank Herbert", Title: "Dune"}

	work, err := newMatcher().Select(key, candidates)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if work.ID != "first" {
		t.Errorf("selected %q, want provider-first", work.ID)
	}
}

func TestSelect_AmbiguousOnExactDurationTie(t *testing.T) {
	candidates := []spotify.Work{
		{ID: "a", Title: "Dune", Authors: []string{"Frank Herbert"}, TotalDurationMs: 10_000_000},
		{ID: "b", Title: "Dune", Authors: []string{"Frank Herbert"}, TotalDurationMs: 10_000_000},
	}
	key := identity.Key{Author: "Frank Herbert", Title: "Dune", DurationHintMs: 9_000_000}

	_, err := newMatcher().Select(key, candidates)
	if !errors.Is(err, errors.ErrAmbiguousMatch) {
		t.Fatalf("error = %v, want ambiguous", err)
	}

	var pipeErr *errors.Error
	if !errors.As(err, &pipeErr) {
		t.Fatal("expected a typed pipeline error")
	}
	if tied, ok := pipeErr.Details.([]Candidate); !ok || len(tied) != 2 {
		t.Fatalf("details = %#v, want both tied candidates", pipeErr.Details)
	}
}

func TestSelect_EmptyCandidates(t *testing.T) {
	_, err := newMatcher().Select(identity.Key{Author: "a", Title: "t"}, nil)
	if !errors.Is(err, errors.ErrNoMatch) {
		t.Fatalf("error = %v, want no-match", err)
	}
}
