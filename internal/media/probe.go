// Package media wraps the ffmpeg toolchain: duration probing, metadata
// dumping, and the stream-copy remux that embeds chapter markers.
package media

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/chaptifyapp/chaptify/internal/errors"
)

// Runner executes an external command and returns its stdout. Injected
// so tests can run without ffmpeg installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run executes the command, capturing stderr into the error on failure.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, errors.Remuxf("%s: %s", name, string(exitErr.Stderr)).WithCause(err)
		}
		return nil, err
	}
	return output, nil
}

// Prober reads container-level duration with ffprobe.
type Prober struct {
	ffprobePath string
	run         Runner
	logger      *slog.Logger
}

// NewProber creates a prober using the given ffprobe binary path.
func NewProber(ffprobePath string, run Runner, logger *slog.Logger) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if run == nil {
		run = ExecRunner{}
	}
	return &Prober{
		ffprobePath: ffprobePath,
		run:         run,
		logger:      logger,
	}
}

// DurationMs returns the container duration of the file in milliseconds.
func (p *Prober) DurationMs(ctx context.Context, path string) (int64, error) {
	output, err := p.run.Run(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	if err != nil {
		return 0, errors.Remuxf("probe %s", path).WithCause(err)
	}

	var probeData probeOutput
	if err := json.Unmarshal(output, &probeData); err != nil {
		return 0, errors.Remuxf("parse ffprobe output for %s", path).WithCause(err)
	}

	if probeData.Format.Duration == "" {
		return 0, errors.Remuxf("no duration reported for %s", path)
	}
	seconds, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, errors.Remuxf("bad duration %q for %s", probeData.Format.Duration, path).WithCause(err)
	}

	durationMs := int64(seconds * 1000)
	p.logger.Debug("probed duration",
		"path", path,
		"duration", (time.Duration(durationMs) * time.Millisecond).String())
	return durationMs, nil
}

// probeOutput maps the subset of ffprobe JSON we read.
type probeOutput struct {
	Format probeFormat `json:"format"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}
