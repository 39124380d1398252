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


// Package chunk splits normalized markdown documents into ordered,
// structurally coherent text chunks.
//
// The splitter is a deterministic single-pass greedy scan. Within each window
// it prefers, in order: markdown section headings, fenced code-block
// delimiters, blank-line paragraph breaks, then sentence terminators. A split
// candidate is only accepted if it lies past 30% of the window, which keeps
// structural markers near the window start from producing degenerate tiny
// chunks. When no candidate qualifies the window is cut hard at the target
// size.
package chunk

import (
	"strings"

	"github.com/poiesic/docrag/core"
)

// DefaultTargetSize is the default chunk size budget in bytes.
const DefaultTargetSize = 4000

// minSplitFraction is the fraction of the window a split point must lie past.
const minSplitFraction = 0.3

// Split divides text into ordered chunks of at most targetSize bytes,
// respecting document structure. Every returned chunk is trimmed of
// surrounding whitespace and non-empty; non-empty input yields at least one
// chunk. A targetSize <= 0 falls back to DefaultTargetSize.
func Split(text string, targetSize int) []string {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	var chunks []string
	start := 0
	textLength := len(text)
	floor := int(float64(targetSize) * minSplitFraction)

	for start < textLength {
		end := start + targetSize

		if end >= textLength {
			// The remainder is the final chunk.
			if tail := strings.TrimSpace(text[start:]); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		window := text[start:end]
		if offset, ok := findSplit(window, floor); ok {
			end = start + offset
		}

		if c := strings.TrimSpace(text[start:end]); c != "" {
			chunks = append(chunks, c)
		}

		start = end
	}

	return chunks
}

// findSplit locates the best structural split offset within the window.
// Strategies are tried in priority order; a candidate is accepted only when
// its offset lies past the floor. Returns false when no candidate qualifies,
// in which case the caller cuts hard at the window end.
func findSplit(window string, floor int) (int, bool) {
	// Section-level split: last markdown heading boundary.
	if p := max(strings.LastIndex(window, "\n## "), strings.LastIndex(window, "\n# ")); p > floor {
		return p, true
	}

	// Fenced code-block delimiter, so code samples are not cut mid-block.
	if p := strings.LastIndex(window, "```"); p > floor {
		return p, true
	}

	// Blank-line paragraph break.
	if p := strings.LastIndex(window, "\n\n"); p > floor {
		return p, true
	}

	// Sentence terminator; the period stays with the preceding sentence.
	if p := strings.LastIndex(window, ". "); p > floor {
		return p + 1, true
	}

	return 0, false
}

// ForPage splits a page's markdown and wraps the result in core.Chunk values
// with monotonically increasing indices starting at 0.
func ForPage(page *core.SourcePage, targetSize int) []core.Chunk {
	parts := Split(page.Markdown, targetSize)
	chunks := make([]core.Chunk, len(parts))
	for i, content := range parts {
		chunks[i] = core.Chunk{
			URL:     page.URL,
			Index:   i,
			Content: content,
		}
	}
	return chunks
}
