// Package ingest orchestrates the documentation ingestion pipeline:
// scheduled page fetching, structural chunking, per-chunk enrichment with
// fallback policy, and idempotent persistence.
//
// No error inside the pipeline is fatal to a run. Fetch failures are
// isolated per URL, enrichment failures degrade to labeled placeholder
// metadata or a zero-vector embedding, and store failures are retried then
// recorded. A run always completes and reports aggregate counts.
package ingest
