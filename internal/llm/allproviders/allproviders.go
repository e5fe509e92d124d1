// Package allproviders registers every built-in llm provider.
package allproviders

import (
	_ "github.com/rcliao/second-mind/internal/llm/anthropic"
	_ "github.com/rcliao/second-mind/internal/llm/gemini"
	_ "github.com/rcliao/second-mind/internal/llm/openai"
)
