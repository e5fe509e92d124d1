// Package composer answers commands from the memory files the router selected.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/second-mind/internal/llm"
	"github.com/rcliao/second-mind/internal/model"
)

// User-facing fallback messages. Answer returns exactly one of these on failure.
const (
	MsgMemoryUnavailable = "I'm having trouble accessing my memory right now. Please try again."
	MsgTimeout           = "The request took too long. Please try again with a shorter question."
	MsgGenerationFailed  = "Something went wrong while processing your question. Please try again."
	MsgEmptyResponse     = "I wasn't able to generate a response. Please try again."
)

// ContentFetcher loads memory file contents in one batched lookup.
type ContentFetcher interface {
	FetchContents(ctx context.Context, filenames []string) ([]model.FileContent, error)
}

// Config configures a Composer.
type Config struct {
	Model     string
	MaxTokens int
	// Timeout bounds the generation call's wall-clock time.
	Timeout       time.Duration
	AssistantName string
	Owner         string
}

// DefaultConfig returns the default composer configuration.
func DefaultConfig() Config {
	return Config{
		Model:         "claude-sonnet-4-5-20250929",
		MaxTokens:     2048,
		Timeout:       30 * time.Second,
		AssistantName: "Second Mind",
		Owner:         "Gaurav",
	}
}

// Composer builds a context prompt from memory files and asks the
// generation model to answer.
type Composer struct {
	fetcher ContentFetcher
	gen     llm.Generator
	cfg     Config
	logger  *zap.Logger
}

// New creates a Composer. A nil logger disables logging.
func New(fetcher ContentFetcher, gen llm.Generator, cfg Config, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{fetcher: fetcher, gen: gen, cfg: cfg, logger: logger.Named("composer")}
}

// Answer returns user-displayable text for command. It never returns an
// empty string; failures are reported through the Msg* constants.
func (c *Composer) Answer(ctx context.Context, command string, filenames []string, history []model.ChatMessage) string {
	files, err := c.fetcher.FetchContents(ctx, filenames)
	if err != nil {
		c.logger.Error("fetch memory files failed",
			zap.String("op", "answer"), zap.Strings("files", filenames), zap.Error(err))
		return MsgMemoryUnavailable
	}

	req := &llm.Request{
		Model:     c.cfg.Model,
		System:    buildSystemPrompt(files, c.cfg),
		Messages:  buildMessages(history, command),
		MaxTokens: c.cfg.MaxTokens,
	}

	text, err := c.generate(ctx, req)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.logger.Warn("generation timed out",
			zap.String("op", "answer"), zap.Duration("timeout", c.cfg.Timeout))
		return MsgTimeout
	case err != nil:
		c.logger.Error("generation failed", zap.String("op", "answer"), zap.Error(err))
		return MsgGenerationFailed
	case strings.TrimSpace(text) == "":
		c.logger.Warn("generation returned no text", zap.String("op", "answer"))
		return MsgEmptyResponse
	}
	return text
}

type result struct {
	text string
	err  error
}

// generate waits for the backend at most cfg.Timeout. A reply arriving after
// the deadline is discarded.
func (c *Composer) generate(ctx context.Context, req *llm.Request) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		text, err := c.gen.Generate(ctx, req)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return "", fmt.Errorf("generate: %w", ctx.Err())
		}
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("generate: %w", ctx.Err())
	}
}

func buildMessages(history []model.ChatMessage, command string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: command})
}

func buildSystemPrompt(files []model.FileContent, cfg Config) string {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		sections = append(sections, fmt.Sprintf("--- %s ---\n%s", f.Filename, f.Content))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a personal intelligence system for %s. ", cfg.AssistantName, cfg.Owner)
	fmt.Fprintf(&b, "You maintain a deep understanding of %s: their preferences, context, taste, history, plans and ideas. ", cfg.Owner)
	b.WriteString("Use that understanding to respond to terse, high-intent messages without requiring paragraphs of context-setting.\n\n")

	fmt.Fprintf(&b, "Below are the relevant memory files that contain context about %s. ", cfg.Owner)
	b.WriteString("Use this context naturally in your responses without explicitly referencing the files themselves. ")
	b.WriteString("Respond as if you already know this information, because you do.\n\n")

	b.WriteString(strings.Join(sections, "\n\n"))

	b.WriteString("\n\nGuidelines:\n")
	fmt.Fprintf(&b, "- Be concise and direct. %s prefers fewer words, not more.\n", cfg.Owner)
	b.WriteString("- Format responses in markdown when it improves readability.\n")
	b.WriteString("- When making recommendations, explain your reasoning briefly.\n")
	b.WriteString("- Draw connections between different pieces of context when relevant.\n")
	b.WriteString("- If you don't have enough context to answer well, say so honestly.")

	return b.String()
}
