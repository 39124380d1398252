package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fetch"
	"github.com/poiesic/docrag/storage"
	badgerstore "github.com/poiesic/docrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned markdown per URL.
type stubFetcher struct {
	pages   map[string]string
	failFor map[string]error
}

func (f *stubFetcher) Fetch(ctx context.Context, url, sessionID string) (*core.SourcePage, error) {
	if err, ok := f.failFor[url]; ok {
		return nil, err
	}
	markdown, ok := f.pages[url]
	if !ok {
		return nil, errors.New("unknown url")
	}
	return &core.SourcePage{URL: url, Markdown: markdown}, nil
}

// flakyRepository fails the first N upserts, then delegates.
type flakyRepository struct {
	storage.ChunkRepository
	mu        sync.Mutex
	failures  int
	attempted int
}

func (r *flakyRepository) UpsertChunks(ctx context.Context, chunks ...*core.EnrichedChunk) error {
	r.mu.Lock()
	r.attempted++
	fail := r.attempted <= r.failures
	r.mu.Unlock()
	if fail {
		return errors.New("transient store failure")
	}
	return r.ChunkRepository.UpsertChunks(ctx, chunks...)
}

func newTestPipeline(t *testing.T, fetcher fetch.Fetcher, repo storage.ChunkRepository, opts ...Option) *Pipeline {
	t.Helper()

	scheduler, err := fetch.NewScheduler(fetcher, fetch.WithLaunchInterval(0))
	require.NoError(t, err)
	t.Cleanup(scheduler.Release)

	provider := mock.NewMockProvider()
	enricher, err := NewEnricher(provider, 384, WithExtractionDelay(0), WithChunkDelay(0))
	require.NoError(t, err)

	opts = append([]Option{WithStoreRetry(3, time.Millisecond)}, opts...)
	p, err := NewPipeline(scheduler, repo, enricher, opts...)
	require.NoError(t, err)
	return p
}

func newMemoryRepo(t *testing.T) storage.ChunkRepository {
	t.Helper()
	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func TestRun_EndToEnd(t *testing.T) {
	urls := []string{
		"https://example.org/manual/layers/",
		"https://example.org/manual/objects/",
	}
	fetcher := &stubFetcher{pages: map[string]string{
		urls[0]: "# Layers\n\n" + strings.Repeat("Layer documentation text. ", 300),
		urls[1]: "# Objects\n\nObjects are freely positioned.",
	}}

	repo := newMemoryRepo(t)
	p := newTestPipeline(t, fetcher, repo)

	run := p.Run(context.Background(), urls)

	assert.Equal(t, 2, run.SuccessCount)
	assert.Equal(t, 0, run.FailCount)
	assert.Empty(t, run.PerURLErrors)
	assert.Greater(t, run.ChunksStored, 2)

	// Stored chunks are readable, ordered, and carry enrichment.
	chunks, err := repo.GetChunksByURL(context.Background(), urls[0])
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Title)
		assert.Len(t, c.Embedding, 384)
	}
}

func TestRun_FetchFailureIsolated(t *testing.T) {
	good := "https://example.org/manual/layers/"
	bad := "https://example.org/manual/missing/"
	fetcher := &stubFetcher{
		pages:   map[string]string{good: "# Layers\n\nSome content."},
		failFor: map[string]error{bad: errors.New("404 not found")},
	}

	repo := newMemoryRepo(t)
	p := newTestPipeline(t, fetcher, repo)

	run := p.Run(context.Background(), []string{good, bad})

	assert.Equal(t, 1, run.SuccessCount)
	assert.Equal(t, 1, run.FailCount)
	require.Contains(t, run.PerURLErrors, bad)
	assert.Contains(t, run.PerURLErrors[bad].Error(), "404")

	count, err := repo.CountByURL(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRun_EmptyPageRejected(t *testing.T) {
	url := "https://example.org/manual/sessions/"
	fetcher := &stubFetcher{pages: map[string]string{url: ""}}

	repo := newMemoryRepo(t)
	p := newTestPipeline(t, fetcher, repo)

	run := p.Run(context.Background(), []string{url})

	assert.Equal(t, 0, run.SuccessCount)
	assert.Equal(t, 1, run.FailCount)
	require.Contains(t, run.PerURLErrors, url)
	assert.ErrorIs(t, run.PerURLErrors[url], core.ErrEmptyContent)

	count, err := repo.CountByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRun_Reingestion_Idempotent(t *testing.T) {
	url := "https://example.org/manual/export/"
	fetcher := &stubFetcher{pages: map[string]string{
		url: "# Export\n\n" + strings.Repeat("Export formats. ", 600),
	}}

	repo := newMemoryRepo(t)
	p := newTestPipeline(t, fetcher, repo)

	first := p.Run(context.Background(), []string{url})
	require.Equal(t, 1, first.SuccessCount)

	countAfterFirst, err := repo.CountByURL(context.Background(), url)
	require.NoError(t, err)
	require.Greater(t, countAfterFirst, 1)

	second := p.Run(context.Background(), []string{url})
	require.Equal(t, 1, second.SuccessCount)

	countAfterSecond, err := repo.CountByURL(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, countAfterFirst, countAfterSecond,
		"re-ingesting the same page must not grow the stored row count")
}

func TestRun_StoreRetrySucceeds(t *testing.T) {
	url := "https://example.org/manual/objects/"
	fetcher := &stubFetcher{pages: map[string]string{
		url: "# Objects\n\nShort page.",
	}}

	repo := &flakyRepository{ChunkRepository: newMemoryRepo(t), failures: 2}
	p := newTestPipeline(t, fetcher, repo)

	run := p.Run(context.Background(), []string{url})

	assert.Equal(t, 1, run.SuccessCount)
	assert.Equal(t, 1, run.ChunksStored)
	assert.Empty(t, run.PerURLErrors)
}

func TestRun_StoreFailureRecorded(t *testing.T) {
	url := "https://example.org/manual/objects/"
	fetcher := &stubFetcher{pages: map[string]string{
		url: "# Objects\n\nShort page.",
	}}

	// More failures than retry attempts: the chunk is never stored.
	repo := &flakyRepository{ChunkRepository: newMemoryRepo(t), failures: 100}
	p := newTestPipeline(t, fetcher, repo)

	run := p.Run(context.Background(), []string{url})

	assert.Equal(t, 0, run.SuccessCount)
	assert.Equal(t, 1, run.FailCount)
	assert.Zero(t, run.ChunksStored)
	require.Contains(t, run.PerURLErrors, url)
	assert.Contains(t, run.PerURLErrors[url].Error(), "transient store failure")
}

func TestRun_EnrichmentFallbacksStillStored(t *testing.T) {
	url := "https://example.org/manual/automapping/"
	fetcher := &stubFetcher{pages: map[string]string{
		url: "# Automapping\n\nRules for automatic tile placement.",
	}}

	provider := mock.NewMockProvider().(*mock.MockProvider)
	provider.GetMockExtractor().ExtractMetadataFunc = func(ctx context.Context, u, content string) (*ai.ChunkMetadata, error) {
		return nil, errors.New("rate limited")
	}
	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("rate limited")
	}

	scheduler, err := fetch.NewScheduler(fetcher, fetch.WithLaunchInterval(0))
	require.NoError(t, err)
	t.Cleanup(scheduler.Release)

	enricher, err := NewEnricher(provider, 16, WithExtractionDelay(0), WithChunkDelay(0))
	require.NoError(t, err)

	repo := newMemoryRepo(t)
	p, err := NewPipeline(scheduler, repo, enricher, WithStoreRetry(1, time.Millisecond))
	require.NoError(t, err)

	run := p.Run(context.Background(), []string{url})

	// Both capabilities failed, yet the page still counts as ingested.
	assert.Equal(t, 1, run.SuccessCount)
	assert.Equal(t, 1, run.ChunksStored)

	chunks, err := repo.GetChunksByURL(context.Background(), url)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Processing Error: automapping", chunks[0].Title)
	assert.Equal(t, ai.ErrorCategory, chunks[0].Metadata["category"])
	require.Len(t, chunks[0].Embedding, 16)
	for _, v := range chunks[0].Embedding {
		assert.Zero(t, v)
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	repo := newMemoryRepo(t)
	provider := mock.NewMockProvider()
	enricher, err := NewEnricher(provider, 384)
	require.NoError(t, err)

	scheduler, err := fetch.NewScheduler(&stubFetcher{}, fetch.WithLaunchInterval(0))
	require.NoError(t, err)
	t.Cleanup(scheduler.Release)

	_, err = NewPipeline(nil, repo, enricher)
	assert.ErrorIs(t, err, ErrSchedulerRequired)

	_, err = NewPipeline(scheduler, nil, enricher)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewPipeline(scheduler, repo, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	_, err = NewPipeline(scheduler, repo, enricher, WithTargetChunkSize(-1))
	assert.Error(t, err)
}
