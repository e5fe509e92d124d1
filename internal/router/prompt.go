package router

import (
	"fmt"
	"strings"

	"github.com/rcliao/second-mind/internal/model"
)

// retryDirective is appended to the system prompt for the single retry.
const retryDirective = "\n\nIMPORTANT: You must respond with ONLY valid JSON. No other text."

var intentDescriptions = map[model.Intent]string{
	model.IntentQuestion:      "The user is asking a question that requires context from memory files to answer well.",
	model.IntentStore:         "The user wants to save something (an idea, note, bookmark, essay concept).",
	model.IntentTask:          "The user wants to plan or execute something that requires multiple steps (trip planning, research).",
	model.IntentSearch:        "The user wants to find something they previously saved or bookmarked.",
	model.IntentStatus:        "The user wants to check on ongoing tasks or system status.",
	model.IntentMemoryInspect: "The user wants to view or edit their memory files directly.",
}

func buildSystemPrompt(manifest []model.ManifestEntry, cfg Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a command router for a personal intelligence system called %s. ", cfg.AssistantName)
	b.WriteString("Your job is to analyze the user's input and determine:\n")
	b.WriteString("1. The intent (what they want to do)\n")
	b.WriteString("2. Which memory files are needed to fulfill the request\n\n")

	b.WriteString("Available intents:\n")
	for _, in := range model.AllIntents {
		fmt.Fprintf(&b, "- %q: %s\n", in, intentDescriptions[in])
	}

	b.WriteString("\nAvailable memory files:\n")
	if len(manifest) == 0 {
		b.WriteString("(none)\n")
	}
	for _, e := range manifest {
		fmt.Fprintf(&b, "- %s: %s\n", e.Filename, e.Description)
	}

	b.WriteString("\nRules:\n")
	if cfg.CoreIdentityFile != "" {
		fmt.Fprintf(&b, "- For \"question\" and \"task\" intents, ALWAYS include %s in memoryFilesNeeded.\n", cfg.CoreIdentityFile)
	}
	b.WriteString("- Select only the memory files that are relevant to the request, and only from the list above.\n")
	b.WriteString("- For \"store\" intent, include the memory file(s) where the stored content would be referenced.\n")
	b.WriteString("- For \"memory_inspect\" intent, memoryFilesNeeded can be empty. If the user mentions a specific file by name (e.g. \"Show me Reading.md\", \"Open my reading notes\"), include {\"targetFile\": \"Filename.md\"} in actionDetails matching the closest memory file name.\n")
	b.WriteString("- For \"status\" intent, memoryFilesNeeded can be empty.\n")
	b.WriteString("- For \"search\" intent, include memory files that might provide context for ranking results.\n\n")

	b.WriteString("Respond with ONLY a JSON object with exactly the fields intent, memoryFilesNeeded and actionDetails, in this format (no markdown, no code fences):\n")
	example := `{"intent": "question", "memoryFilesNeeded": [], "actionDetails": {}}`
	if cfg.CoreIdentityFile != "" {
		example = fmt.Sprintf(`{"intent": "question", "memoryFilesNeeded": [%q], "actionDetails": {}}`, cfg.CoreIdentityFile)
	}
	b.WriteString(example)

	return b.String()
}
