// Package openai provides a Generator for OpenAI-compatible chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/rcliao/second-mind/internal/llm"
)

const providerName = "openai"

func init() {
	llm.RegisterProvider(llm.ProviderOpenAI, New)
}

var _ llm.Generator = (*Provider)(nil)

// Provider implements llm.Generator on top of openai-go.
type Provider struct {
	client openai.Client
}

// New creates a provider. BaseURL may point at any OpenAI-compatible server.
func New(cfg llm.Config) (llm.Generator, error) {
	if cfg.APIKey == "" {
		return nil, llm.ErrNoAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Provider{client: openai.NewClient(opts...)}, nil
}

// Generate sends one chat completion request and returns the first choice.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: convertMessages(req),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", llm.NewAPIError(providerName, apiErr.StatusCode, apiErr.Error())
		}
		return "", fmt.Errorf("%s: request failed: %w", providerName, err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func convertMessages(req *llm.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	return messages
}
