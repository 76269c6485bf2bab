// Package pipeline orchestrates a single chapter-embedding run: extract
// identity, search the catalog, match a work, rescale its chapter
// durations onto the file, and remux the chapter table in.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/chaptifyapp/chaptify/internal/catalog/spotify"
	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/ffmeta"
	"github.com/chaptifyapp/chaptify/internal/identity"
	"github.com/chaptifyapp/chaptify/internal/match"
	"github.com/chaptifyapp/chaptify/internal/timecode"
)

// SkipSuffix marks files this tool already produced. Batch runs ignore
// them so a rescan of the same directory does not chapterize twice.
const SkipSuffix = "_chapterized"

const (
	defaultSearchLimit = 10
	defaultRetries     = 3
	defaultRetryBase   = 250 * time.Millisecond
)

// Catalog is the audiobook catalog surface the pipeline consumes.
type Catalog interface {
	Search(ctx context.Context, key identity.Key, limit int) ([]spotify.Work, error)
	Chapters(ctx context.Context, workID string) ([]spotify.Track, error)
}

// Prober reports a file's container duration.
type Prober interface {
	DurationMs(ctx context.Context, path string) (int64, error)
}

// Remuxer dumps existing metadata and performs the stream-copy rewrite.
type Remuxer interface {
	DumpMetadata(ctx context.Context, path string) (string, error)
	Remux(ctx context.Context, inputPath, outputPath, metadata string, expectedDurationMs int64) error
}

// Options tune a pipeline; the zero value gets usable defaults.
type Options struct {
	SearchLimit    int
	DriftTolerance float64
	DryRun         bool
	KeepOriginal   bool
	// OutputPath forces the destination for a single-file run.
	OutputPath string
	// OutDir redirects outputs into a directory, keeping base names.
	OutDir    string
	Retries   int
	RetryBase time.Duration
}

// Result describes one completed run.
type Result struct {
	Path     string
	Output   string
	Work     spotify.Work
	Markers  []timecode.Marker
	Metadata string
	DryRun   bool
}

// Pipeline runs the full resolve-and-embed flow for one file at a time.
// Safe for concurrent Process calls; each run owns its scratch files.
type Pipeline struct {
	extractor *identity.Extractor
	catalog   Catalog
	matcher   *match.Matcher
	prober    Prober
	remuxer   Remuxer
	logger    *slog.Logger
	opts      Options
}

// New assembles a pipeline from its components.
func New(extractor *identity.Extractor, catalog Catalog, matcher *match.Matcher, prober Prober, remuxer Remuxer, logger *slog.Logger, opts Options) *Pipeline {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}
	if opts.Retries <= 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	return &Pipeline{
		extractor: extractor,
		catalog:   catalog,
		matcher:   matcher,
		prober:    prober,
		remuxer:   remuxer,
		logger:    logger,
		opts:      opts,
	}
}

// Process resolves and embeds chapters for a single file. The first
// failing stage aborts the run; its typed error propagates verbatim.
func (p *Pipeline) Process(ctx context.Context, path string) (*Result, error) {
	log := p.logger.With("path", path)

	key, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	log.Info("identity resolved", "author", key.Author, "title", key.Title)

	works, err := retry(ctx, log, p.opts.Retries, p.opts.RetryBase, "search", func() ([]spotify.Work, error) {
		return p.catalog.Search(ctx, key, p.opts.SearchLimit)
	})
	if err != nil {
		return nil, err
	}

	work, err := p.matcher.Select(key, works)
	if err != nil {
		return nil, err
	}
	log.Info("work matched", "work_id", work.ID, "work_title", work.Title)

	catalogTracks, err := retry(ctx, log, p.opts.Retries, p.opts.RetryBase, "chapters", func() ([]spotify.Track, error) {
		return p.catalog.Chapters(ctx, work.ID)
	})
	if err != nil {
		return nil, err
	}

	actualMs, err := p.prober.DurationMs(ctx, path)
	if err != nil {
		return nil, err
	}

	tracks := make([]timecode.Track, 0, len(catalogTracks))
	for _, t := range catalogTracks {
		tracks = append(tracks, timecode.Track{Name: t.Name, DurationMs: t.DurationMs})
	}
	markers, err := timecode.Resolve(tracks, actualMs, timecode.Options{
		DriftTolerance: p.opts.DriftTolerance,
	})
	if err != nil {
		return nil, err
	}
	log.Info("timecodes resolved", "chapters", len(markers), "duration_ms", actualMs)

	result := &Result{
		Path:    path,
		Output:  p.outputFor(path),
		Work:    work,
		Markers: markers,
		DryRun:  p.opts.DryRun,
	}

	if p.opts.DryRun {
		result.Metadata = ffmeta.File(markers)
		log.Info("dry run, skipping remux")
		return result, nil
	}

	existing, err := p.remuxer.DumpMetadata(ctx, path)
	if err != nil {
		return nil, err
	}
	result.Metadata = ffmeta.Merge(existing, markers)

	if err := p.remuxer.Remux(ctx, path, result.Output, result.Metadata, actualMs); err != nil {
		return nil, err
	}
	return result, nil
}

// outputFor picks the destination for a run. In-place replacement is
// the default; -keep-original redirects to a suffixed sibling.
func (p *Pipeline) outputFor(path string) string {
	if p.opts.OutputPath != "" {
		return p.opts.OutputPath
	}
	if p.opts.OutDir != "" {
		return filepath.Join(p.opts.OutDir, filepath.Base(path))
	}
	if p.opts.KeepOriginal {
		ext := filepath.Ext(path)
		return strings.TrimSuffix(path, ext) + SkipSuffix + ext
	}
	return path
}

// retry runs fn up to attempts times, doubling the backoff each try.
// Only transient errors are retried; typed permanent failures surface
// immediately.
func retry[T any](ctx context.Context, log *slog.Logger, attempts int, base time.Duration, op string, fn func() (T, error)) (T, error) {
	var zero T
	delay := base
	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if attempt >= attempts || !errors.CodeOf(err).Transient() {
			return zero, err
		}
		log.Warn("transient catalog failure, retrying",
			"op", op,
			"attempt", attempt,
			"backoff", delay.String(),
			"error", err.Error())
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
