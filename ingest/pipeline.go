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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docrag/chunk"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fetch"
	"github.com/poiesic/docrag/storage"
)

const (
	// DefaultStoreAttempts is the number of tries for one chunk upsert.
	DefaultStoreAttempts = 3

	// DefaultStoreBackoff is the base delay between store retries.
	DefaultStoreBackoff = 250 * time.Millisecond
)

// Pipeline sequences the ingestion stages: fetch scheduling, chunking,
// enrichment, and persistence. It owns all transient state of a run; the
// chunk repository is the sole writer of durable state.
type Pipeline struct {
	scheduler       *fetch.Scheduler
	chunkRepository storage.ChunkRepository
	enricher        *Enricher

	targetChunkSize int
	storeAttempts   int
	storeBackoff    time.Duration
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithTargetChunkSize sets the chunker's size budget in bytes.
func WithTargetChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return fmt.Errorf("target chunk size must be positive, got %d", size)
		}
		p.targetChunkSize = size
		return nil
	}
}

// WithStoreRetry sets the attempt count and base backoff for chunk upserts.
func WithStoreRetry(attempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.storeAttempts = attempts
		p.storeBackoff = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	scheduler *fetch.Scheduler,
	chunkRepository storage.ChunkRepository,
	enricher *Enricher,
	opts ...Option,
) (*Pipeline, error) {
	if scheduler == nil {
		return nil, ErrSchedulerRequired
	}
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if enricher == nil {
		return nil, ErrAIProviderRequired
	}

	p := &Pipeline{
		scheduler:       scheduler,
		chunkRepository: chunkRepository,
		enricher:        enricher,
		targetChunkSize: chunk.DefaultTargetSize,
		storeAttempts:   DefaultStoreAttempts,
		storeBackoff:    DefaultStoreBackoff,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Run ingests the given URLs and reports aggregate statistics. No failure is
// fatal: fetch errors are isolated per URL, enrichment always yields a
// persistable record, and store errors are retried then recorded. The
// returned run is always complete.
func (p *Pipeline) Run(ctx context.Context, urls []string) *core.IngestionRun {
	run := &core.IngestionRun{
		PerURLErrors: make(map[string]error),
	}

	report := p.scheduler.FetchAll(ctx, urls)

	for _, result := range report.Results {
		if result.Err != nil {
			run.FailCount++
			run.PerURLErrors[result.URL] = result.Err
			continue
		}

		// The Fetcher interface does not guarantee non-empty pages.
		if err := core.ValidatePage(result.Page); err != nil {
			run.FailCount++
			run.PerURLErrors[result.URL] = err
			continue
		}

		stored, err := p.processPage(ctx, result.Page)
		run.ChunksStored += stored
		if err != nil {
			run.FailCount++
			run.PerURLErrors[result.URL] = err
			continue
		}
		run.SuccessCount++
	}

	p.logger.Info("ingestion run complete",
		"urls", len(urls),
		"succeeded", run.SuccessCount,
		"failed", run.FailCount,
		"chunks_stored", run.ChunksStored)

	return run
}

// processPage chunks, enriches, and stores one fetched page. Returns the
// number of chunks stored and the accumulated store errors, if any.
func (p *Pipeline) processPage(ctx context.Context, page *core.SourcePage) (int, error) {
	chunks := chunk.ForPage(page, p.targetChunkSize)
	p.logger.Debug("processing page", "url", page.URL, "chunks", len(chunks))

	stored := 0
	var errs []error

	for i := range chunks {
		enriched := p.enricher.Enrich(ctx, &chunks[i])

		err := RetryWithBackoff(ctx, func() error {
			return p.chunkRepository.UpsertChunks(ctx, enriched)
		}, p.storeAttempts, p.storeBackoff)
		if err != nil {
			p.logger.Error("failed to store chunk",
				"url", page.URL, "index", enriched.Index, "err", err)
			errs = append(errs, fmt.Errorf("chunk %d: %w", enriched.Index, err))
			continue
		}
		stored++
	}

	return stored, errors.Join(errs...)
}
