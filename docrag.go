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


// Package docrag wires the documentation ingestion and retrieval components
// behind a single Database facade with an explicit lifecycle: construct at
// process start, Close on exit.
package docrag

import (
	"log/slog"

	"github.com/poiesic/docrag/ai"
	"github.com/poiesic/docrag/ai/openai"
	"github.com/poiesic/docrag/fetch"
	"github.com/poiesic/docrag/ingest"
	"github.com/poiesic/docrag/search"
	"github.com/poiesic/docrag/storage"
	"github.com/poiesic/docrag/storage/badger"
)

// Database aggregates the storage backend, chunk repository, and AI provider.
type Database struct {
	backend   *badger.Backend
	chunkRepo storage.ChunkRepository
	provider  ai.AIProvider
	aiConfig  *ai.Config
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
}

// WithAIConfig supplies the AI service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// NewDatabase opens the chunk store at filePath and connects the AI provider.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		chunkRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:   backend,
		chunkRepo: chunkRepo,
		provider:  provider,
		aiConfig:  options.aiConfig,
		logger:    slog.Default(),
	}, nil
}

// Close shuts down the AI provider, repository, and storage backend.
func (db *Database) Close() error {
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.chunkRepo.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// ChunkRepository exposes the chunk store.
func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunkRepo
}

// NewIngestionPipeline builds a pipeline over the given fetch scheduler,
// using the database's repository and AI provider. The enricher sizes its
// zero-vector fallback from the configured embedding dimensionality;
// enricherOpts tune its pacing (nil keeps the defaults).
func (db *Database) NewIngestionPipeline(scheduler *fetch.Scheduler, enricherOpts []ingest.EnricherOption, opts ...ingest.Option) (*ingest.Pipeline, error) {
	enricher, err := ingest.NewEnricher(db.provider, db.aiConfig.EmbeddingDimensions, enricherOpts...)
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(scheduler, db.chunkRepo, enricher, opts...)
}

// NewSearcher builds a query-side searcher over the stored chunks.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.chunkRepo, db.provider, opts...)
}
