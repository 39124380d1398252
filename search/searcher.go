// Package search provides query-side similarity retrieval over stored
// documentation chunks.
package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// DefaultMinSimilarity filters out weak matches. Chunks carrying the
// zero-vector enrichment fallback always score below this.
const DefaultMinSimilarity = 0.5

// Searcher embeds a query and ranks stored chunks by vector similarity.
type Searcher struct {
	chunkRepository storage.ChunkRepository
	embedder        ai.Embedder
	minSimilarity   float32
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithMinSimilarity overrides the similarity threshold.
func WithMinSimilarity(threshold float32) Option {
	return func(s *Searcher) error {
		s.minSimilarity = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(chunkRepository storage.ChunkRepository, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		chunkRepository: chunkRepository,
		embedder:        provider.Embedder(),
		minSimilarity:   DefaultMinSimilarity,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// FindSimilar searches for chunks relevant to the query.
// Returns up to maxHits results, ranked by similarity descending.
func (s *Searcher) FindSimilar(ctx context.Context, query string, maxHits int) ([]*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	results, err := s.chunkRepository.FindSimilar(ctx, embedding, s.minSimilarity, maxHits)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}

	s.logger.Debug("search complete", "query", query, "hits", len(results))
	return results, nil
}
