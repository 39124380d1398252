package docrag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/fetch"
	"github.com/poiesic/docrag/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.ChunkRepository())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A file path instead of a directory.
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, db)

	err = db.Close()
	assert.NoError(t, err)
}

type noopFetcher struct{}

func (noopFetcher) Fetch(ctx context.Context, url, sessionID string) (*core.SourcePage, error) {
	return &core.SourcePage{URL: url, Markdown: "# Page"}, nil
}

func TestDatabase_FactoryMethods(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		scheduler, err := fetch.NewScheduler(noopFetcher{})
		require.NoError(t, err)
		defer scheduler.Release()

		pipeline, err := db.NewIngestionPipeline(scheduler, nil)
		require.NoError(t, err)
		require.NotNil(t, pipeline)
	})

	t.Run("pipeline accepts enricher pacing options", func(t *testing.T) {
		scheduler, err := fetch.NewScheduler(noopFetcher{})
		require.NoError(t, err)
		defer scheduler.Release()

		pipeline, err := db.NewIngestionPipeline(scheduler,
			[]ingest.EnricherOption{
				ingest.WithExtractionDelay(0),
				ingest.WithChunkDelay(0),
			},
			ingest.WithTargetChunkSize(1000),
		)
		require.NoError(t, err)
		require.NotNil(t, pipeline)
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := db.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})
}
