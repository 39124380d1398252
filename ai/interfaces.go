package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MetadataExtractor generates a title, summary and categorical metadata for a
// documentation chunk. Implementations must be thread-safe for concurrent use.
type MetadataExtractor interface {
	// ExtractMetadata analyzes a chunk of documentation text in the context of
	// its source URL and returns a generated title, summary and metadata object.
	// Returns an error if the completion call fails or the response is missing
	// required fields; callers decide whether to degrade to a fallback.
	ExtractMetadata(ctx context.Context, url, content string) (*ChunkMetadata, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and MetadataExtractor instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// MetadataExtractor returns the chunk metadata service.
	// The returned MetadataExtractor is safe for concurrent use.
	MetadataExtractor() MetadataExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
