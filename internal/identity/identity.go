// Package identity derives a canonical (author, title) key for an
// audiobook file, from embedded tags when present and from the filename
// otherwise.
package identity

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/simonhull/audiometa"

	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/normalize"
)

// Key identifies a work for catalog lookup. Author and Title are trimmed
// display strings; both are guaranteed non-empty under folding.
type Key struct {
	Author string
	Title  string

	// DurationHintMs is the embedded duration when tags were readable,
	// 0 otherwise. Used by the matcher as a tie-break signal.
	DurationHintMs int64
}

// Tags is the subset of embedded metadata the extractor consumes.
type Tags struct {
	Artist   string
	Title    string
	Album    string
	Duration time.Duration
}

// TagReader reads embedded tags from an audio file.
type TagReader func(ctx context.Context, path string) (Tags, error)

// Matches an optional leading "[whatever] " prefix on release filenames.
var bracketPrefix = regexp.MustCompile(`^\[[^\]]*\]\s*`)

// Extractor produces identity keys. Tag read failures degrade to filename
// parsing; only the absence of both sources is an error.
type Extractor struct {
	readTags TagReader
	logger   *slog.Logger
}

// NewExtractor creates an extractor backed by audiometa tag parsing.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{
		readTags: readFileTags,
		logger:   logger,
	}
}

// NewExtractorWithReader creates an extractor with a custom tag reader.
func NewExtractorWithReader(reader TagReader, logger *slog.Logger) *Extractor {
	return &Extractor{
		readTags: reader,
		logger:   logger,
	}
}

// Extract derives the identity key for path.
//
// Embedded tags win when both author and title are usable. Otherwise the
// base filename is parsed as "<author> - <title>", splitting on the first
// " - " only, so titles containing the separator survive intact.
func (e *Extractor) Extract(ctx context.Context, path string) (Key, error) {
	var key Key

	tags, err := e.readTags(ctx, path)
	if err != nil {
		e.logger.Debug("tag read failed, falling back to filename",
			"path", path,
			"error", err,
		)
	} else {
		key = keyFromTags(tags)
	}

	if key.Author == "" || key.Title == "" {
		author, title, ok := parseFilename(path)
		if ok {
			// Tags may have supplied one usable half.
			if key.Author == "" {
				key.Author = author
			}
			if key.Title == "" {
				key.Title = title
			}
		}
	}

	if normalize.Fold(key.Author) == "" || normalize.Fold(key.Title) == "" {
		return Key{}, errors.Identityf("cannot derive author/title for %q from tags or filename", filepath.Base(path))
	}

	return key, nil
}

// keyFromTags builds a partial key from embedded metadata. The title tag
// is preferred; album is the audiobook name in most m4b taggers and serves
// as fallback.
func keyFromTags(tags Tags) Key {
	title := strings.TrimSpace(normalize.Sanitize(tags.Title))
	if title == "" {
		title = strings.TrimSpace(normalize.Sanitize(tags.Album))
	}

	return Key{
		Author:         strings.TrimSpace(normalize.Sanitize(tags.Artist)),
		Title:          title,
		DurationHintMs: tags.Duration.Milliseconds(),
	}
}

// parseFilename extracts (author, title) from "<author> - <title>.<ext>".
func parseFilename(path string) (author, title string, ok bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = bracketPrefix.ReplaceAllString(stem, "")

	// Split on the first separator only.
	author, title, found := strings.Cut(stem, " - ")
	if !found {
		return "", "", false
	}

	author = strings.TrimSpace(author)
	title = strings.TrimSpace(title)
	return author, title, author != "" && title != ""
}

// readFileTags reads embedded tags with audiometa.
func readFileTags(ctx context.Context, path string) (Tags, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return Tags{}, err
	}
	defer file.Close()

	return Tags{
		Artist:   file.Tags.Artist,
		Title:    file.Tags.Title,
		Album:    file.Tags.Album,
		Duration: file.Audio.Duration,
	}, nil
}
