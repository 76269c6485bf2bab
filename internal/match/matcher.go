// Package match selects the catalog work corresponding to an identity key.
//
// Author matching is a hard filter: a candidate credited to somebody else
// is never considered, no matter how well its title scores. Title quality
// ranks the survivors, and the embedded duration hint (when present)
// breaks ties. A tie the hint cannot break is surfaced as ambiguous
// rather than resolved by an arbitrary pick, so a wrong edition is never
// silently embedded.
package match

import (
	"log/slog"
	"strings"

	"github.com/chaptifyapp/chaptify/internal/catalog/spotify"
	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/identity"
	"github.com/chaptifyapp/chaptify/internal/normalize"
)

// Title score levels, highest first.
const (
	scoreExact    = 3
	scorePrefix   = 2
	scoreContains = 1
	scoreNone     = 0
)

// Candidate pairs a work with its match diagnostics, reported back on
// failures so the user can see what was rejected and why.
type Candidate struct {
	Work   spotify.Work `json:"work"`
	Score  int          `json:"score"`
	Reason string       `json:"reason,omitempty"`
}

// Matcher scores catalog candidates against an identity key.
type Matcher struct {
	logger *slog.Logger
}

// New creates a matcher.
func New(logger *slog.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Select picks exactly one work from the candidates for key, or fails
// with a typed no-match/ambiguous error carrying the candidate list.
func (m *Matcher) Select(key identity.Key, candidates []spotify.Work) (spotify.Work, error) {
	if len(candidates) == 0 {
		return spotify.Work{}, errors.NoMatch("catalog returned no candidates for "+key.Author+" - "+key.Title, []Candidate{})
	}

	queryAuthor := normalize.AuthorKey(key.Author)
	queryTitle := normalize.Fold(key.Title)

	var (
		scored   []Candidate
		rejected []Candidate
	)

	for _, work := range candidates {
		if !authorMatches(queryAuthor, work.Authors) {
			rejected = append(rejected, Candidate{
				Work:   work,
				Reason: "author mismatch",
			})
			continue
		}

		score := titleScore(queryTitle, normalize.Fold(work.Title))
		if score == scoreNone {
			rejected = append(rejected, Candidate{
				Work:   work,
				Reason: "title mismatch",
			})
			continue
		}

		scored = append(scored, Candidate{Work: work, Score: score})
	}

	if len(scored) == 0 {
		return spotify.Work{}, errors.NoMatch(
			"no candidate matches author and title for "+key.Author+" - "+key.Title,
			rejected,
		)
	}

	// Keep only the best title score; order within is provider order.
	best := scored[0].Score
	for _, c := range scored[1:] {
		if c.Score > best {
			best = c.Score
		}
	}
	top := scored[:0:0]
	for _, c := range scored {
		if c.Score == best {
			top = append(top, c)
		}
	}

	if len(top) == 1 {
		m.logger.Debug("matched work",
			"work_id", top[0].Work.ID,
			"title", top[0].Work.Title,
			"score", top[0].Score,
		)
		return top[0].Work, nil
	}

	return m.breakTie(key, top)
}

// breakTie resolves multiple candidates with the same title score.
//
// With a usable duration hint, the candidate whose catalog duration sits
// closest wins; two candidates at the exact same distance are ambiguous.
// Without a hint (or when no tied candidate reports a duration), provider
// relevance order is trusted and the first candidate wins.
func (m *Matcher) breakTie(key identity.Key, top []Candidate) (spotify.Work, error) {
	if key.DurationHintMs > 0 {
		withDuration := top[:0:0]
		for _, c := range top {
			if c.Work.TotalDurationMs > 0 {
				withDuration = append(withDuration, c)
			}
		}

		if len(withDuration) > 0 {
			bestIdx := 0
			bestDist := durationDistance(key.DurationHintMs, withDuration[0].Work.TotalDurationMs)
			tied := false
			for i, c := range withDuration[1:] {
				dist := durationDistance(key.DurationHintMs, c.Work.TotalDurationMs)
				switch {
				case dist < bestDist:
					bestIdx, bestDist = i+1, dist
					tied = false
				case dist == bestDist:
					tied = true
				}
			}

			if tied {
				return spotify.Work{}, errors.AmbiguousMatch(
					"multiple candidates tie on duration for "+key.Author+" - "+key.Title,
					top,
				)
			}

			m.logger.Debug("matched work by duration hint",
				"work_id", withDuration[bestIdx].Work.ID,
				"hint_ms", key.DurationHintMs,
				"distance_ms", bestDist,
			)
			return withDuration[bestIdx].Work, nil
		}
	}

	// Provider relevance order is the trusted secondary signal.
	m.logger.Debug("matched work by provider order",
		"work_id", top[0].Work.ID,
		"tied", len(top),
	)
	return top[0].Work, nil
}

// authorMatches reports whether any credited author equals the query
// author under order-insensitive folding ("First Last" vs "Last, First").
func authorMatches(queryKey string, authors []string) bool {
	for _, credit := range authors {
		for _, name := range normalize.SplitAuthors(credit) {
			if normalize.AuthorKey(name) == queryKey {
				return true
			}
		}
	}
	return false
}

// titleScore rates how well a folded candidate title matches the folded
// query title.
func titleScore(query, candidate string) int {
	switch {
	case candidate == "":
		return scoreNone
	case candidate == query:
		return scoreExact
	case strings.HasPrefix(candidate, query) || strings.HasPrefix(query, candidate):
		return scorePrefix
	case strings.Contains(candidate, query) || strings.Contains(query, candidate):
		return scoreContains
	default:
		return scoreNone
	}
}

func durationDistance(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
