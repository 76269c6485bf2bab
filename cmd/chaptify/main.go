// Package main provides the entry point for the chaptify CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/chaptifyapp/chaptify/internal/config"
	"github.com/chaptifyapp/chaptify/internal/di"
	"github.com/chaptifyapp/chaptify/internal/di/providers"
	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/logger"
	"github.com/chaptifyapp/chaptify/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	injector := di.NewContainer()
	defer func() {
		_ = injector.Shutdown()
	}()

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		return fail(nil, err)
	}
	log := do.MustInvoke[*logger.Logger](injector)

	// Ctrl-C aborts the current stage; the original file is never left
	// half-written, so interruption is safe at any point.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Exchange credentials up front so auth problems surface before any
	// file work starts.
	catalog := do.MustInvoke[*providers.SpotifyClientHandle](injector)
	if cfg.Spotify.AccessToken == "" {
		if err := catalog.Authenticate(ctx); err != nil {
			return fail(log, err)
		}
	}

	p := do.MustInvoke[*pipeline.Pipeline](injector)

	switch {
	case cfg.Run.File != "":
		return runSingle(ctx, log, p, cfg.Run.File)
	case cfg.Run.List != "":
		paths, err := pipeline.CollectList(cfg.Run.List)
		if err != nil {
			return fail(log, err)
		}
		return runBatch(ctx, log, p, paths, cfg.Pipeline.Parallelism)
	default:
		paths, err := pipeline.CollectDir(cfg.Run.Dir)
		if err != nil {
			return fail(log, err)
		}
		return runBatch(ctx, log, p, paths, cfg.Pipeline.Parallelism)
	}
}

func runSingle(ctx context.Context, log *logger.Logger, p *pipeline.Pipeline, path string) int {
	result, err := p.Process(ctx, path)
	if err != nil {
		return fail(log, err)
	}
	if result.DryRun {
		fmt.Println(result.Metadata)
		return 0
	}
	log.Info("done", "output", result.Output, "chapters", len(result.Markers))
	return 0
}

func runBatch(ctx context.Context, log *logger.Logger, p *pipeline.Pipeline, paths []string, parallelism int) int {
	result, err := p.RunBatch(ctx, paths, parallelism)
	if err != nil {
		return fail(log, err)
	}
	if result.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", result.Failed, result.Failed+result.Processed)
		return 1
	}
	return 0
}

// fail reports the error with its code name and maps it to the
// code-specific exit status.
func fail(log *logger.Logger, err error) int {
	code := errors.CodeOf(err)
	if log != nil {
		log.Error("run failed", "code", string(code), "error", err.Error())
	}
	fmt.Fprintf(os.Stderr, "chaptify: %s: %v\n", code, err)
	return code.ExitCode()
}
