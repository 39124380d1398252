package mock

import (
	"context"
	"strings"

	"github.com/poiesic/docrag/ai"
)

// MockMetadataExtractor is a test double for ai.MetadataExtractor.
// It allows custom behavior injection via function fields.
type MockMetadataExtractor struct {
	// ExtractMetadataFunc is called by ExtractMetadata if set.
	// If nil, uses default heading-based behavior.
	ExtractMetadataFunc func(ctx context.Context, url, content string) (*ai.ChunkMetadata, error)

	callCount int
}

// NewMockMetadataExtractor creates a mock extractor with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockMetadataExtractor() *MockMetadataExtractor {
	return &MockMetadataExtractor{}
}

// ExtractMetadata generates simple mock metadata.
// Default behavior: the title is the chunk's first markdown heading (or the
// first few words), the summary is the first line, and the metadata carries a
// fixed "Documentation" category.
func (m *MockMetadataExtractor) ExtractMetadata(ctx context.Context, url, content string) (*ai.ChunkMetadata, error) {
	m.callCount++

	if m.ExtractMetadataFunc != nil {
		return m.ExtractMetadataFunc(ctx, url, content)
	}

	title := ""
	summary := ""
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if title == "" && strings.HasPrefix(trimmed, "#") {
			title = strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
			continue
		}
		if summary == "" {
			summary = trimmed
		}
		if title != "" && summary != "" {
			break
		}
	}

	if title == "" {
		words := strings.Fields(content)
		if len(words) > 5 {
			words = words[:5]
		}
		title = strings.Join(words, " ")
	}

	return &ai.ChunkMetadata{
		Title:   title,
		Summary: summary,
		Metadata: map[string]any{
			"category":     "Documentation",
			"features":     []any{},
			"file_formats": []any{},
			"version_info": nil,
		},
	}, nil
}

// CallCount returns the number of times ExtractMetadata was called.
func (m *MockMetadataExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockMetadataExtractor) Reset() {
	m.callCount = 0
	m.ExtractMetadataFunc = nil
}
