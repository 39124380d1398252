package ai

// ChunkMetadata is the structured result of metadata extraction for one chunk.
type ChunkMetadata struct {
	// Title is the main topic or section title of the chunk.
	Title string `json:"title"`

	// Summary is a concise summary of the chunk's key points.
	Summary string `json:"summary"`

	// Metadata holds additional categorical information about the chunk.
	// Expected keys include "category", "features", "file_formats" and
	// "version_info", but the object is free-form JSON.
	Metadata map[string]any `json:"metadata"`
}

// ErrorCategory is the metadata category assigned to chunks whose metadata
// extraction failed. Erroring chunks stay visible and queryable instead of
// silently vanishing from the store.
const ErrorCategory = "Error"
