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


package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - URL must not be empty
//   - Content must not be empty
//   - Index must not be negative
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyURL)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeIndex)
	}

	return nil
}

// ValidateEnrichedChunk validates an EnrichedChunk against the configured
// embedding dimensionality.
//
// NOT validated (degraded values are persistable by design of the enrichment
// fallback policy):
//   - Title and Summary (error placeholders are valid)
//   - Metadata contents
func ValidateEnrichedChunk(chunk *EnrichedChunk, dimensions int) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if err := ValidateChunk(&chunk.Chunk); err != nil {
		return err
	}

	if len(chunk.Embedding) != dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrBadEmbedding, len(chunk.Embedding), dimensions)
	}

	return nil
}

// ValidatePage validates a SourcePage before chunking.
func ValidatePage(page *SourcePage) error {
	if page == nil {
		return fmt.Errorf("%w: page is nil", ErrInvalidPage)
	}

	if page.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPage, ErrEmptyURL)
	}

	if page.Markdown == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPage, ErrEmptyContent)
	}

	return nil
}
