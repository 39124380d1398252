package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docrag/core"
	"github.com/poiesic/docrag/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &ChunkRepository{backend: backend}, nil
}

// Close is a no-op; the backend owns the database lifecycle.
func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertChunks writes enriched chunks keyed by their (URL, Index) identity.
// The key is content-derived, so writing the same chunk twice replaces it in
// place. A per-page index entry is maintained alongside each record.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks ...*core.EnrichedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := core.ValidateChunk(&chunk.Chunk); err != nil {
				return err
			}

			value, err := storage.MarshalEnrichedChunk(chunk)
			if err != nil {
				return err
			}

			id := chunk.ChunkID()
			if err := tx.Set(makeChunkKey(id), value); err != nil {
				return err
			}
			if err := tx.Set(makeChunkURLKey(chunk.URL, chunk.Index), marshalID(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.EnrichedChunk, error) {
	var chunk *core.EnrichedChunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			chunk, err = storage.UnmarshalEnrichedChunk(val)
			return err
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetChunksByURL retrieves all chunks for a page, ordered by chunk index.
func (r *ChunkRepository) GetChunksByURL(ctx context.Context, url string) ([]*core.EnrichedChunk, error) {
	var chunks []*core.EnrichedChunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := r.chunkIDsForURL(tx, url)
		if err != nil {
			return err
		}

		for _, id := range ids {
			item, err := tx.Get(makeChunkKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Dangling index entry; skip rather than fail the read.
					continue
				}
				return err
			}
			var chunk *core.EnrichedChunk
			if err := item.Value(func(val []byte) error {
				chunk, err = storage.UnmarshalEnrichedChunk(val)
				return err
			}); err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// CountByURL returns the number of stored chunks for a page.
func (r *ChunkRepository) CountByURL(ctx context.Context, url string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkURLKey(url)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)

	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountsByURL returns the stored chunk count for every known page.
// Scans all chunk records; the corpus is a documentation catalog, not a
// high-cardinality store.
func (r *ChunkRepository) CountsByURL(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				chunk, err := storage.UnmarshalEnrichedChunk(val)
				if err != nil {
					return err
				}
				counts[chunk.URL]++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return counts, nil
}

// DeleteByURL removes all chunks for a page, index entries included.
// Returns the number of chunks removed.
func (r *ChunkRepository) DeleteByURL(ctx context.Context, url string) (int, error) {
	removed := 0

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		type indexEntry struct {
			key []byte
			id  core.ID
		}
		var entries []indexEntry

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkURLKey(url)
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := item.KeyCopy(nil)
			err := item.Value(func(val []byte) error {
				id, err := unmarshalID(val)
				if err != nil {
					return err
				}
				entries = append(entries, indexEntry{key: key, id: id})
				return nil
			})
			if err != nil {
				iter.Close()
				return err
			}
		}
		iter.Close()

		for _, e := range entries {
			if err := tx.Delete(makeChunkKey(e.id)); err != nil {
				return err
			}
			if err := tx.Delete(e.key); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return removed, nil
}

// chunkIDsForURL reads the per-page index in chunk-index order.
func (r *ChunkRepository) chunkIDsForURL(tx *badger.Txn, url string) ([]core.ID, error) {
	var ids []core.ID

	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialChunkURLKey(url)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		err := iter.Item().Value(func(val []byte) error {
			id, err := unmarshalID(val)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}
