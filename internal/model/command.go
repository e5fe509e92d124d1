package model

// Intent is the classified purpose of a user command.
type Intent string

const (
	IntentQuestion      Intent = "question"
	IntentStore         Intent = "store"
	IntentTask          Intent = "task"
	IntentSearch        Intent = "search"
	IntentStatus        Intent = "status"
	IntentMemoryInspect Intent = "memory_inspect"
)

// ValidIntents are the allowed command intents.
var ValidIntents = map[Intent]bool{
	IntentQuestion:      true,
	IntentStore:         true,
	IntentTask:          true,
	IntentSearch:        true,
	IntentStatus:        true,
	IntentMemoryInspect: true,
}

// AllIntents lists the intents in the order they are presented to the classifier.
var AllIntents = []Intent{
	IntentQuestion,
	IntentStore,
	IntentTask,
	IntentSearch,
	IntentStatus,
	IntentMemoryInspect,
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ActionTargetFile is the actionDetails key naming the file a memory_inspect
// command refers to.
const ActionTargetFile = "targetFile"

// RouterResult is the outcome of classifying a command.
type RouterResult struct {
	Intent            Intent         `json:"intent"`
	MemoryFilesNeeded []string       `json:"memoryFilesNeeded"`
	ActionDetails     map[string]any `json:"actionDetails"`
}

// ChatMessage is one prior turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CommandResponse is the externally visible result of a dispatched command.
type CommandResponse struct {
	Intent          Intent         `json:"intent"`
	MemoryFilesUsed []string       `json:"memoryFilesUsed"`
	Response        string         `json:"response"`
	ActionDetails   map[string]any `json:"actionDetails,omitempty"`
}
