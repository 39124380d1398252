package core

import (
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored entities.
// It is generated using content-based hashing so identical keys map to the
// same record.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourcePage is a fetched documentation page normalized to markdown.
// It is the input to chunking and is never persisted itself.
type SourcePage struct {
	URL      string
	Markdown string
}

// Chunk is a contiguous slice of a page's markdown text.
// Index is the 0-based position within the page's chunk sequence; the pair
// (URL, Index) is unique.
type Chunk struct {
	URL     string
	Index   int
	Content string
}

// Key returns the canonical "(url,index)" tuple for the chunk.
// This is used for generating deterministic IDs.
func (c *Chunk) Key() string {
	return fmt.Sprintf("(%s,%d)", c.URL, c.Index)
}

// ChunkID returns the storage ID for the chunk, derived from its (URL, Index)
// key so that re-ingesting the same chunk upserts in place.
func (c *Chunk) ChunkID() ID {
	return IDFromContent(c.Key())
}

// EnrichedChunk is a Chunk plus the generated title, summary, categorical
// metadata and embedding vector. The embedding always has the configured
// dimensionality; enrichment failures substitute a zero vector rather than
// leaving it absent.
type EnrichedChunk struct {
	Chunk
	Title     string
	Summary   string
	Metadata  map[string]any
	Embedding []float32
}

// IngestionRun aggregates the outcome of one orchestration pass.
// It exists only for the duration of the run and is not persisted.
type IngestionRun struct {
	SuccessCount int
	FailCount    int
	ChunksStored int
	PerURLErrors map[string]error
}

// SearchResult represents a similarity search hit with its relevance score.
type SearchResult struct {
	Chunk *EnrichedChunk
	Score float32
}
