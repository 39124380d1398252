// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/core"
	"golang.org/x/time/rate"
)

const (
	// DefaultExtractionDelay spaces metadata-extraction calls to respect
	// completion-provider rate limits.
	DefaultExtractionDelay = time.Second

	// DefaultChunkDelay spaces successive chunk enrichments.
	DefaultChunkDelay = 500 * time.Millisecond
)

// Enricher attaches generated metadata and an embedding to chunks.
// Enrichment never fails: every remote-call failure degrades to a fallback
// value, so the result is always persistable.
type Enricher struct {
	extractor  ai.MetadataExtractor
	embedder   ai.Embedder
	dimensions int

	extractLimiter *rate.Limiter
	chunkLimiter   *rate.Limiter
	logger         *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithExtractionDelay sets the minimum spacing between metadata-extraction
// calls. Zero or negative disables the delay.
func WithExtractionDelay(d time.Duration) EnricherOption {
	return func(e *Enricher) {
		e.extractLimiter = newDelayLimiter(d)
	}
}

// WithChunkDelay sets the minimum spacing between successive chunk
// enrichments. Zero or negative disables the delay.
func WithChunkDelay(d time.Duration) EnricherOption {
	return func(e *Enricher) {
		e.chunkLimiter = newDelayLimiter(d)
	}
}

// WithEnricherLogger sets a custom logger.
func WithEnricherLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func newDelayLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// NewEnricher creates an enricher using the provider's extractor and
// embedder. dimensions is the embedding provider's configured
// dimensionality, used to size the zero-vector fallback.
func NewEnricher(provider ai.AIProvider, dimensions int, opts ...EnricherOption) (*Enricher, error) {
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	e := &Enricher{
		extractor:      provider.MetadataExtractor(),
		embedder:       provider.Embedder(),
		dimensions:     dimensions,
		extractLimiter: newDelayLimiter(DefaultExtractionDelay),
		chunkLimiter:   newDelayLimiter(DefaultChunkDelay),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Enrich produces the EnrichedChunk for one chunk. The metadata and
// embedding calls run concurrently; a failure in either degrades to its
// fallback. Pacing waits are skipped once ctx is cancelled, but the calls
// themselves still run so an in-progress page drains with valid records.
func (e *Enricher) Enrich(ctx context.Context, chunk *core.Chunk) *core.EnrichedChunk {
	// Inter-chunk pacing. A cancelled context just stops the waiting.
	_ = e.chunkLimiter.Wait(ctx)

	var (
		wg        sync.WaitGroup
		meta      *ai.ChunkMetadata
		embedding []float32
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		meta = e.extractMetadata(ctx, chunk)
	}()
	go func() {
		defer wg.Done()
		embedding = e.embed(ctx, chunk)
	}()
	wg.Wait()

	enriched := &core.EnrichedChunk{
		Chunk:     *chunk,
		Title:     meta.Title,
		Summary:   meta.Summary,
		Metadata:  meta.Metadata,
		Embedding: embedding,
	}

	// Final guard: a provider that returns the wrong dimensionality is
	// treated like an embedding failure.
	if err := core.ValidateEnrichedChunk(enriched, e.dimensions); err != nil {
		e.logger.Warn("enriched chunk failed validation, using zero vector",
			"url", chunk.URL, "index", chunk.Index, "err", err)
		enriched.Embedding = make([]float32, e.dimensions)
	}

	return enriched
}

func (e *Enricher) extractMetadata(ctx context.Context, chunk *core.Chunk) *ai.ChunkMetadata {
	_ = e.extractLimiter.Wait(ctx)

	meta, err := e.extractor.ExtractMetadata(ctx, chunk.URL, chunk.Content)
	if err != nil {
		e.logger.Warn("metadata extraction failed, using placeholder",
			"url", chunk.URL, "index", chunk.Index, "err", err)
		return fallbackMetadata(chunk.URL, err)
	}
	return meta
}

func (e *Enricher) embed(ctx context.Context, chunk *core.Chunk) []float32 {
	vector, err := e.embedder.EmbedText(ctx, chunk.Content)
	if err != nil {
		e.logger.Warn("embedding failed, using zero vector",
			"url", chunk.URL, "index", chunk.Index, "err", err)
		return make([]float32, e.dimensions)
	}
	return vector
}

// fallbackMetadata builds the labeled error placeholder persisted when
// metadata extraction fails. The erroring chunk stays visible and queryable
// instead of silently vanishing.
func fallbackMetadata(url string, cause error) *ai.ChunkMetadata {
	return &ai.ChunkMetadata{
		Title:   "Processing Error: " + urlSection(url),
		Summary: "Failed to process content: " + cause.Error(),
		Metadata: map[string]any{
			"category":     ai.ErrorCategory,
			"features":     []any{},
			"file_formats": []any{},
			"version_info": nil,
			"error":        cause.Error(),
		},
	}
}

// urlSection returns the last non-empty path segment of a URL.
func urlSection(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if trimmed == "" {
		return url
	}
	return trimmed
}
