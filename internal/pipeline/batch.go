package pipeline

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chaptifyapp/chaptify/internal/errors"
)

// audioExtensions are the container formats a chapter table can be
// remuxed into losslessly.
var audioExtensions = map[string]bool{
	".m4b": true,
	".m4a": true,
}

// BatchResult aggregates a multi-file run.
type BatchResult struct {
	Processed int
	Failed    int
	Failures  map[string]error
}

// RunBatch processes paths with bounded parallelism. Per-file failures
// are logged and collected; the batch keeps going. Returns an error
// only when the context is cancelled.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string, parallelism int) (*BatchResult, error) {
	if parallelism <= 0 {
		parallelism = 1
	}

	result := &BatchResult{Failures: make(map[string]error)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := p.Process(ctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures[path] = err
				p.logger.Error("file failed",
					"path", path,
					"code", string(errors.CodeOf(err)),
					"error", err.Error())
				return nil
			}
			result.Processed++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	p.logger.Info("batch complete",
		"processed", result.Processed,
		"failed", result.Failed)
	return result, nil
}

// CollectDir lists the audio files in dir, skipping outputs this tool
// already produced. Results are sorted for a stable processing order.
func CollectDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Validation("read directory " + dir).WithCause(err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !audioExtensions[ext] {
			continue
		}
		if strings.HasSuffix(strings.TrimSuffix(name, filepath.Ext(name)), SkipSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, errors.Validation("no audio files found in " + dir)
	}
	return paths, nil
}

// CollectList reads one path per line from a list file, skipping blank
// lines and '#' comments.
func CollectList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Validation("open list file " + path).WithCause(err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Validation("read list file " + path).WithCause(err)
	}
	if len(paths) == 0 {
		return nil, errors.Validation("list file " + path + " names no files")
	}
	return paths, nil
}
