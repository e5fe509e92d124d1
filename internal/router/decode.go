package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rcliao/second-mind/internal/model"
)

var errNoJSONObject = errors.New("no JSON object in classifier output")

var resultSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"intent", "memoryFilesNeeded"},
	Properties: map[string]*jsonschema.Schema{
		"intent": {
			Type: "string",
			Enum: intentEnum(),
		},
		"memoryFilesNeeded": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
		"actionDetails": {
			Types: []string{"object", "null"},
		},
	},
}

var resolvedSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	return resultSchema.Resolve(&jsonschema.ResolveOptions{})
})

func intentEnum() []any {
	enum := make([]any, 0, len(model.AllIntents))
	for _, in := range model.AllIntents {
		enum = append(enum, string(in))
	}
	return enum
}

// decode extracts, validates and decodes a classifier reply. Any error means
// the reply is malformed.
func decode(text string) (model.RouterResult, error) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return model.RouterResult{}, errNoJSONObject
	}

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return model.RouterResult{}, fmt.Errorf("parse classifier output: %w", err)
	}

	rs, err := resolvedSchema()
	if err != nil {
		return model.RouterResult{}, fmt.Errorf("resolve router schema: %w", err)
	}
	if err := rs.Validate(instance); err != nil {
		return model.RouterResult{}, fmt.Errorf("invalid classifier output: %w", err)
	}

	var out model.RouterResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return model.RouterResult{}, fmt.Errorf("decode classifier output: %w", err)
	}
	if !model.ValidIntents[out.Intent] {
		return model.RouterResult{}, fmt.Errorf("invalid intent %q", out.Intent)
	}
	if out.MemoryFilesNeeded == nil {
		out.MemoryFilesNeeded = []string{}
	}
	if out.ActionDetails == nil {
		out.ActionDetails = map[string]any{}
	}
	return out, nil
}

// extractJSONObject returns the first balanced {...} substring of text.
// Braces inside JSON strings are ignored.
func extractJSONObject(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end, ok := matchBrace(text, start); ok {
			return text[start : end+1], true
		}
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
