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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docrag/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// MetadataExtractor implements ai.MetadataExtractor using OpenAI-compatible chat APIs.
type MetadataExtractor struct {
	client       llms.Model
	systemPrompt string
	logger       *slog.Logger
}

// newMetadataExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newMetadataExtractor(config *ai.Config) (*MetadataExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat completion
	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	systemPrompt := config.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = extractionPrompt
	}

	return &MetadataExtractor{
		client:       client,
		systemPrompt: systemPrompt,
		logger:       slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewMetadataExtractor creates a new metadata extractor using the provided configuration.
//
// Returns ai.MetadataExtractor interface to enforce abstraction.
func NewMetadataExtractor(config *ai.Config) (ai.MetadataExtractor, error) {
	return newMetadataExtractor(config)
}

// ExtractMetadata generates a title, summary and metadata object for a chunk
// using an LLM in JSON mode. The response must contain the title, summary and
// metadata keys; anything else is an error the caller may degrade from.
func (e *MetadataExtractor) ExtractMetadata(ctx context.Context, url, content string) (*ai.ChunkMetadata, error) {
	messages := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(e.systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildUserPrompt(url, content)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result ai.ChunkMetadata
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, messages, llms.WithTemperature(0.3), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "url", url, "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			return nil, fmt.Errorf("no choices returned from model")
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		if err := parseExtraction(responseText, &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"url", url,
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "url", url, "err", lastErr)
		return nil, lastErr
	}

	return &result, nil
}

// parseExtraction unmarshals an extraction response and verifies that the
// title, summary and metadata keys are all present.
func parseExtraction(text string, out *ai.ChunkMetadata) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return err
	}

	for _, key := range []string{"title", "summary", "metadata"} {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("missing required key %q in extraction response", key)
		}
	}

	return json.Unmarshal([]byte(text), out)
}
