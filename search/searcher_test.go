package search

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/docrag/ai/mock"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
	badgerstore "github.com/poiesic/docrag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(t *testing.T) (*Searcher, storage.ChunkRepository, *mock.MockProvider) {
	t.Helper()

	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	provider := mock.NewMockProvider().(*mock.MockProvider)
	s, err := NewSearcher(repo, provider)
	require.NoError(t, err)
	return s, repo, provider
}

func storeChunk(t *testing.T, repo storage.ChunkRepository, url string, index int, embedding []float32) {
	t.Helper()
	require.NoError(t, repo.UpsertChunks(context.Background(), &core.EnrichedChunk{
		Chunk: core.Chunk{
			URL:     url,
			Index:   index,
			Content: "chunk content",
		},
		Title:     "Some Chunk",
		Embedding: embedding,
	}))
}

func TestFindSimilar_RanksByScore(t *testing.T) {
	s, repo, provider := newTestSearcher(t)

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	storeChunk(t, repo, "https://example.org/a/", 0, []float32{1, 0, 0})
	storeChunk(t, repo, "https://example.org/b/", 0, []float32{0.8, 0.6, 0})
	storeChunk(t, repo, "https://example.org/c/", 0, []float32{0, 1, 0})

	results, err := s.FindSimilar(context.Background(), "tile layers", 10)
	require.NoError(t, err)
	require.Len(t, results, 2, "orthogonal chunk must fall below the threshold")

	assert.Equal(t, "https://example.org/a/", results[0].Chunk.URL)
	assert.Equal(t, "https://example.org/b/", results[1].Chunk.URL)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestFindSimilar_RespectsMaxHits(t *testing.T) {
	s, repo, provider := newTestSearcher(t)

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}

	for i := 0; i < 6; i++ {
		storeChunk(t, repo, "https://example.org/a/", i, []float32{1, 0, 0})
	}

	results, err := s.FindSimilar(context.Background(), "query", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestFindSimilar_EmptyQuery(t *testing.T) {
	s, _, _ := newTestSearcher(t)

	_, err := s.FindSimilar(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestFindSimilar_InvalidLimit(t *testing.T) {
	s, _, _ := newTestSearcher(t)

	_, err := s.FindSimilar(context.Background(), "query", 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestFindSimilar_EmbedderError(t *testing.T) {
	s, _, provider := newTestSearcher(t)

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("service down")
	}

	_, err := s.FindSimilar(context.Background(), "query", 5)
	assert.Error(t, err)
}

func TestNewSearcher_Validation(t *testing.T) {
	provider := mock.NewMockProvider()

	_, err := NewSearcher(nil, provider)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	repo, backend, err := badgerstore.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	_, err = NewSearcher(repo, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}
