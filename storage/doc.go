// Package storage defines persistence interfaces and serialization for
// enriched documentation chunks.
//
// The ChunkRepository interface is the single writer of durable state.
// Writes are idempotent upserts keyed by the chunk's (URL, Index) identity,
// so re-ingesting a page never duplicates rows. Implementations live in
// subpackages (storage/badger).
package storage
