package storage

import (
	"context"

	"github.com/poiesic/docrag/core"
)

// Repository provides common storage operations shared by all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// FindSimilar finds stored chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkRepository provides operations for managing enriched chunks.
type ChunkRepository interface {
	Repository

	// UpsertChunks writes one or more enriched chunks.
	// Each chunk is keyed by its (URL, Index) identity: writing a chunk that
	// already exists replaces it in place, never duplicating rows.
	UpsertChunks(ctx context.Context, chunks ...*core.EnrichedChunk) error

	// GetChunk retrieves a single chunk by its content-derived ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.EnrichedChunk, error)

	// GetChunksByURL retrieves all chunks for a page, ordered by chunk index.
	GetChunksByURL(ctx context.Context, url string) ([]*core.EnrichedChunk, error)

	// CountByURL returns the number of stored chunks for a page.
	CountByURL(ctx context.Context, url string) (int, error)

	// CountsByURL returns the stored chunk count for every known page.
	CountsByURL(ctx context.Context) (map[string]int, error)

	// DeleteByURL removes all chunks for a page.
	// Returns the number of chunks removed.
	DeleteByURL(ctx context.Context, url string) (int, error)
}
