package openai

import "fmt"

// extractionPrompt is the default instruction for chunk metadata extraction.
// It can be replaced wholesale through ai.Config.SystemPrompt; the prompt is
// configuration, not branching logic.
const extractionPrompt = `You are an AI that extracts titles and summaries from documentation chunks.
For the given documentation chunk, extract or generate:
1. A clear, descriptive title that reflects the main topic
2. A concise summary of the key points
3. Additional metadata about the content

Format your response as a JSON object with these exact keys:
{
    "title": "The main topic or section title",
    "summary": "A clear summary of the main points",
    "metadata": {
        "category": "Documentation category (e.g. Manual, Reference)",
        "features": ["List of product features mentioned"],
        "file_formats": ["Any file formats discussed"],
        "version_info": "Any version-specific information"
    }
}

Output ONLY valid JSON. Do not include any preamble, explanation, greeting,
or acknowledgment. Start your response directly with the opening brace { and
end with the closing brace }.`

// buildUserPrompt formats the per-chunk user message.
func buildUserPrompt(url, content string) string {
	return fmt.Sprintf("URL: %s\n\nContent:\n%s", url, content)
}
