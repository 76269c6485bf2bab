package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaptifyapp/chaptify/internal/catalog/spotify"
	"github.com/chaptifyapp/chaptify/internal/errors"
	"github.com/chaptifyapp/chaptify/internal/identity"
	"github.com/chaptifyapp/chaptify/internal/logger"
	"github.com/chaptifyapp/chaptify/internal/match"
)

type fakeCatalog struct {
	works       []spotify.Work
	tracks      []spotify.Track
	searchErrs  []error
	searchCalls atomic.Int32
}

func (f *fakeCatalog) Search(_ context.Context, _ identity.Key, _ int) ([]spotify.Work, error) {
	call := int(f.searchCalls.Add(1)) - 1
	if call < len(f.searchErrs) && f.searchErrs[call] != nil {
		return nil, f.searchErrs[call]
	}
	return f.works, nil
}

func (f *fakeCatalog) Chapters(_ context.Context, _ string) ([]spotify.Track, error) {
	return f.tracks, nil
}

type fakeProber struct {
	durationMs int64
	err        error
}

func (f *fakeProber) DurationMs(_ context.Context, _ string) (int64, error) {
	return f.durationMs, f.err
}

type fakeRemuxer struct {
	existing  string
	remuxErr  error
	gotInput  string
	gotOutput string
	gotMeta   string
	calls     atomic.Int32
}

func (f *fakeRemuxer) DumpMetadata(_ context.Context, _ string) (string, error) {
	return f.existing, nil
}

func (f *fakeRemuxer) Remux(_ context.Context, input, output, metadata string, _ int64) error {
	f.calls.Add(1)
	f.gotInput = input
	f.gotOutput = output
	f.gotMeta = metadata
	return f.remuxErr
}

func duneWork() spotify.Work {
	return spotify.Work{ID: "abc123", Title: "Dune", Authors: []string{"Frank Herbert"}}
}

func duneTracks() []spotify.Track {
	return []spotify.Track{
		{Index: 0, Name: "Chapter 1", DurationMs: 1800000},
		{Index: 1, Name: "Chapter 2", DurationMs: 1800000},
	}
}

func tagsFor(author, title string) identity.TagReader {
	return func(context.Context, string) (identity.Tags, error) {
		return identity.Tags{Artist: author, Title: title}, nil
	}
}

func newTestPipeline(catalog Catalog, prober Prober, remuxer Remuxer, opts Options) *Pipeline {
	log := logger.Discard().Logger
	opts.RetryBase = 1 // keep retry tests fast
	return New(
		identity.NewExtractorWithReader(tagsFor("Frank Herbert", "Dune"), log),
		catalog,
		match.New(log),
		prober,
		remuxer,
		log,
		opts,
	)
}

func TestProcessEndToEnd(t *testing.T) {
	catalog := &fakeCatalog{works: []spotify.Work{duneWork()}, tracks: duneTracks()}
	remuxer := &fakeRemuxer{existing: ";FFMETADATA1\ntitle=Dune\n"}
	p := newTestPipeline(catalog, &fakeProber{durationMs: 3600000}, remuxer, Options{})

	result, err := p.Process(context.Background(), "/books/dune.m4b")
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.Work.ID)
	require.Len(t, result.Markers, 2)
	assert.Equal(t, int64(0), result.Markers[0].StartMs)
	assert.Equal(t, int64(3600000), result.Markers[1].EndMs)

	assert.Equal(t, int32(1), remuxer.calls.Load())
	assert.Equal(t, "/books/dune.m4b", remuxer.gotInput)
	assert.Equal(t, "/books/dune.m4b", remuxer.gotOutput, "default is in-place replacement")
	assert.Contains(t, remuxer.gotMeta, "title=Dune", "existing tags preserved")
	assert.Contains(t, remuxer.gotMeta, "[CHAPTER]")
}

func TestProcessDryRunSkipsRemux(t *testing.T) {
	catalog := &fakeCatalog{works: []spotify.Work{duneWork()}, tracks: duneTracks()}
	remuxer := &fakeRemuxer{}
	p := newTestPipeline(catalog, &fakeProber{durationMs: 3600000}, remuxer, Options{DryRun: true})

	result, err := p.Process(context.Background(), "/books/dune.m4b")
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Zero(t, remuxer.calls.Load(), "dry run must not remux")
	assert.True(t, strings.HasPrefix(result.Metadata, ";FFMETADATA1\n"))
	assert.Contains(t, result.Metadata, "[CHAPTER]")
}

func TestProcessRetriesTransientSearch(t *testing.T) {
	catalog := &fakeCatalog{
		works:  []spotify.Work{duneWork()},
		tracks: duneTracks(),
		searchErrs: []error{
			errors.CatalogTransient("rate limited"),
			errors.CatalogTransient("server error"),
		},
	}
	remuxer := &fakeRemuxer{}
	p := newTestPipeline(catalog, &fakeProber{durationMs: 3600000}, remuxer, Options{})

	_, err := p.Process(context.Background(), "/books/dune.m4b")
	require.NoError(t, err)
	assert.Equal(t, int32(3), catalog.searchCalls.Load())
}

func TestProcessGivesUpAfterRetryBudget(t *testing.T) {
	transient := errors.CatalogTransient("still rate limited")
	catalog := &fakeCatalog{
		searchErrs: []error{transient, transient, transient},
	}
	p := newTestPipeline(catalog, &fakeProber{durationMs: 3600000}, &fakeRemuxer{}, Options{})

	_, err := p.Process(context.Background(), "/books/dune.m4b")
	require.Error(t, err)
	assert.Equal(t, errors.CodeCatalogTransient, errors.CodeOf(err))
	assert.Equal(t, int32(3), catalog.searchCalls.Load())
}

func TestProcessDoesNotRetryPermanentErrors(t *testing.T) {
	catalog := &fakeCatalog{
		searchErrs: []error{errors.CatalogUnauthorized("token revoked")},
	}
	p := newTestPipeline(catalog, &fakeProber{durationMs: 3600000}, &fakeRemuxer{}, Options{})

	_, err := p.Process(context.Background(), "/books/dune.m4b")
	require.Error(t, err)
	assert.Equal(t, errors.CodeCatalogUnauthorized, errors.CodeOf(err))
	assert.Equal(t, int32(1), catalog.searchCalls.Load())
}

func TestProcessNoMatchAborts(t *testing.T) {
	catalog := &fakeCatalog{
		works: []spotify.Work{{ID: "x", Title: "Dune", Authors: []string{"Someone Else"}}},
	}
	remuxer := &fakeRemuxer{}
	p := newTestPipeline(catalog, &fakeProber{durationMs: 3600000}, remuxer, Options{})

	_, err := p.Process(context.Background(), "/books/dune.m4b")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNoMatch, errors.CodeOf(err))
	assert.Zero(t, remuxer.calls.Load())
}

func TestProcessDriftMismatchAborts(t *testing.T) {
	catalog := &fakeCatalog{works: []spotify.Work{duneWork()}, tracks: duneTracks()}
	remuxer := &fakeRemuxer{}
	// Catalog says 3600s, file is 600s.
	p := newTestPipeline(catalog, &fakeProber{durationMs: 600000}, remuxer, Options{})

	_, err := p.Process(context.Background(), "/books/dune.m4b")
	require.Error(t, err)
	assert.Equal(t, errors.CodeDurationMismatch, errors.CodeOf(err))
	assert.Zero(t, remuxer.calls.Load())
}

func TestOutputForPlacement(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"in-place default", Options{}, "/books/dune.m4b"},
		{"explicit output", Options{OutputPath: "/tmp/out.m4b"}, "/tmp/out.m4b"},
		{"out dir", Options{OutDir: "/done"}, "/done/dune.m4b"},
		{"keep original", Options{KeepOriginal: true}, "/books/dune_chapterized.m4b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(&fakeCatalog{}, &fakeProber{}, &fakeRemuxer{}, tt.opts)
			assert.Equal(t, tt.want, p.outputFor("/books/dune.m4b"))
		})
	}
}

func TestRunBatchCountsFailures(t *testing.T) {
	catalog := &fakeCatalog{works: []spotify.Work{duneWork()}, tracks: duneTracks()}
	prober := &fakeProber{durationMs: 3600000}
	p := newTestPipeline(catalog, prober, &fakeRemuxer{}, Options{DryRun: true})

	// Second pipeline whose prober always fails.
	failing := newTestPipeline(catalog, &fakeProber{err: errors.Remuxf("probe failed")}, &fakeRemuxer{}, Options{DryRun: true})

	result, err := p.RunBatch(context.Background(), []string{"/books/a.m4b", "/books/b.m4b"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 0, result.Failed)

	result, err = failing.RunBatch(context.Background(), []string{"/books/a.m4b", "/books/b.m4b"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Failures, 2)
}

func TestCollectDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.m4b", "a.m4a", "cover.jpg", "done_chapterized.m4b"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	paths, err := CollectDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.m4a"),
		filepath.Join(dir, "b.m4b"),
	}, paths)
}

func TestCollectDirEmpty(t *testing.T) {
	_, err := CollectDir(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestCollectList(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "books.txt")
	content := "# queue\n/books/a.m4b\n\n  /books/b.m4b  \n"
	require.NoError(t, os.WriteFile(list, []byte(content), 0o644))

	paths, err := CollectList(list)
	require.NoError(t, err)
	assert.Equal(t, []string{"/books/a.m4b", "/books/b.m4b"}, paths)
}
