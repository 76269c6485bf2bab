package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/id"
)

// verifyToleranceMs bounds how far the remuxed duration may drift from
// the source before the output is rejected. Stream copy should be
// near-exact; anything beyond container rounding means a broken write.
const verifyToleranceMs = 2000

// defaultRemuxTimeout bounds a single ffmpeg invocation. Stream copy of
// even very long books finishes in seconds.
const defaultRemuxTimeout = 5 * time.Minute

// Remuxer rewrites a file's chapter table with a lossless stream copy.
type Remuxer struct {
	ffmpegPath string
	prober     *Prober
	run        Runner
	logger     *slog.Logger
	timeout    time.Duration
}

// NewRemuxer creates a remuxer using the given ffmpeg binary path.
func NewRemuxer(ffmpegPath string, prober *Prober, run Runner, logger *slog.Logger) *Remuxer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if run == nil {
		run = ExecRunner{}
	}
	return &Remuxer{
		ffmpegPath: ffmpegPath,
		prober:     prober,
		run:        run,
		logger:     logger,
		timeout:    defaultRemuxTimeout,
	}
}

// SetTimeout overrides the per-invocation ffmpeg timeout.
func (r *Remuxer) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// DumpMetadata extracts the file's current global tags as ffmetadata
// text, so the remux preserves them alongside the new chapter table.
func (r *Remuxer) DumpMetadata(ctx context.Context, path string) (string, error) {
	output, err := r.run.Run(ctx, r.ffmpegPath,
		"-v", "quiet",
		"-i", path,
		"-f", "ffmetadata",
		"-",
	)
	if err != nil {
		return "", errors.Remuxf("dump metadata from %s", path).WithCause(err)
	}
	return string(output), nil
}

// Remux stream-copies inputPath into outputPath with the given
// ffmetadata content as the authoritative metadata and chapter source.
//
// The write goes to a scratch sibling of outputPath; the destination is
// only replaced by rename after the scratch file probes at the expected
// duration. inputPath is never modified, and on any failure outputPath
// is left exactly as it was.
func (r *Remuxer) Remux(ctx context.Context, inputPath, outputPath, metadata string, expectedDurationMs int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	metaPath, cleanupMeta, err := writeScratchFile(filepath.Dir(outputPath), ".ffmetadata", metadata)
	if err != nil {
		return errors.Remux("write metadata file").WithCause(err)
	}
	defer cleanupMeta()

	scratchPath := scratchSibling(outputPath)
	defer os.Remove(scratchPath)

	start := time.Now()
	_, err = r.run.Run(ctx, r.ffmpegPath,
		"-y",
		"-nostdin",
		"-v", "error",
		"-i", inputPath,
		"-i", metaPath,
		"-map_metadata", "1",
		"-map_chapters", "1",
		"-codec", "copy",
		scratchPath,
	)
	if err != nil {
		return errors.Remuxf("remux %s", inputPath).WithCause(err)
	}

	if err := r.verify(ctx, scratchPath, expectedDurationMs); err != nil {
		return err
	}

	if err := os.Rename(scratchPath, outputPath); err != nil {
		return errors.Remuxf("replace %s", outputPath).WithCause(err)
	}

	r.logger.Info("remux complete",
		"input", inputPath,
		"output", outputPath,
		"elapsed", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// verify probes the scratch output and rejects it when the duration is
// off, or when the file is missing or empty.
func (r *Remuxer) verify(ctx context.Context, scratchPath string, expectedDurationMs int64) error {
	info, err := os.Stat(scratchPath)
	if err != nil {
		return errors.Remuxf("output missing after remux").WithCause(err)
	}
	if info.Size() == 0 {
		return errors.Remuxf("output empty after remux")
	}

	gotMs, err := r.prober.DurationMs(ctx, scratchPath)
	if err != nil {
		return err
	}
	drift := gotMs - expectedDurationMs
	if drift < 0 {
		drift = -drift
	}
	if drift > verifyToleranceMs {
		return errors.Remuxf("output duration %dms differs from source %dms by %dms",
			gotMs, expectedDurationMs, drift)
	}
	return nil
}

// scratchSibling builds a unique temporary path next to target, keeping
// the extension so ffmpeg picks the right container.
func scratchSibling(target string) string {
	dir := filepath.Dir(target)
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(filepath.Base(target), ext)
	return filepath.Join(dir, "."+stem+"."+id.MustScratch("chaptify")+ext)
}

// writeScratchFile writes content to a unique file in dir and returns
// its path with a cleanup func.
func writeScratchFile(dir, ext, content string) (string, func(), error) {
	path := filepath.Join(dir, "."+id.MustScratch("chaptify")+ext)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}
