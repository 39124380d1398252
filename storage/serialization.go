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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/docrag/core"
)

// chunkRecord is the stored wire form of an EnrichedChunk. The metadata
// field is free-form JSON, so records are serialized as JSON rather than a
// fixed binary schema.
type chunkRecord struct {
	URL         string         `json:"url"`
	ChunkNumber int            `json:"chunk_number"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata"`
	Embedding   []float32      `json:"embedding"`
}

// MarshalEnrichedChunk serializes an EnrichedChunk to bytes.
func MarshalEnrichedChunk(chunk *core.EnrichedChunk) ([]byte, error) {
	record := chunkRecord{
		URL:         chunk.URL,
		ChunkNumber: chunk.Index,
		Title:       chunk.Title,
		Summary:     chunk.Summary,
		Content:     chunk.Content,
		Metadata:    chunk.Metadata,
		Embedding:   chunk.Embedding,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalEnrichedChunk deserializes an EnrichedChunk from bytes.
func UnmarshalEnrichedChunk(data []byte) (*core.EnrichedChunk, error) {
	var record chunkRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &core.EnrichedChunk{
		Chunk: core.Chunk{
			URL:     record.URL,
			Index:   record.ChunkNumber,
			Content: record.Content,
		},
		Title:     record.Title,
		Summary:   record.Summary,
		Metadata:  record.Metadata,
		Embedding: record.Embedding,
	}, nil
}
