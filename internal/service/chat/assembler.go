package chat

import (
	"fmt"
	"strings"

	"github.com/avatarlabs/chatbot-backend/internal/model/chat"
)

// The assembler is a structural composer: it merges already-bounded
// history and passages with the current message and never re-measures
// budgets. Every function here is pure so identical inputs always
// yield byte-identical contexts.

var baseInstructions = []string{
	"You are a helpful AI assistant for an enterprise chatbot application.",
	"Provide accurate, helpful responses based on the conversation context and any provided reference materials.",
	"Be concise but thorough in your responses.",
	"Use markdown formatting for better readability (headers, lists, bold, etc.).",
}

// Assemble builds the generation context from capped history (oldest
// first), ranked passages, and the trimmed user message.
func Assemble(history []chat.Turn, passages []chat.RetrievedPassage, message string, metadata map[string]any) chat.GenerationContext {
	return chat.GenerationContext{
		System:  SystemInstructions(FormatPassages(passages), metadata),
		History: history,
		Message: message,
	}
}

// FormatPassages renders passages in rank order, each tagged with its
// locator so the generator can emit matching citations. Empty input
// yields an empty block.
func FormatPassages(passages []chat.RetrievedPassage) string {
	if len(passages) == 0 {
		return ""
	}

	parts := make([]string, 0, len(passages)+2)
	parts = append(parts, "--- Retrieved Context ---")
	for i, passage := range passages {
		locator := passage.URL
		if locator == "" {
			locator = passage.ID
		}
		parts = append(parts, fmt.Sprintf("Passage %d: %s [%s]\n%s", i+1, passage.Title, locator, passage.Content))
	}
	parts = append(parts, "--- End of Context ---")

	return strings.Join(parts, "\n\n")
}

// SystemInstructions composes the system prompt from the base
// instructions, an optional retrieved-context block, and an optional
// language hint carried in the request metadata.
func SystemInstructions(contextBlock string, metadata map[string]any) string {
	instructions := make([]string, 0, len(baseInstructions)+3)
	instructions = append(instructions, baseInstructions...)

	if contextBlock != "" {
		instructions = append(instructions,
			"Below is context information that may be relevant to the user's query. "+
				"Use this information to provide more accurate and grounded responses.")
		instructions = append(instructions, contextBlock)
	}

	if lang, ok := metadata["lang"].(string); ok && lang != "" && lang != "en" {
		instructions = append(instructions, fmt.Sprintf("Respond in %s if possible.", lang))
	}

	return strings.Join(instructions, "\n\n")
}
