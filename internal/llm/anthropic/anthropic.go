// Package anthropic provides a Generator for Anthropic's Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/rcliao/second-mind/internal/llm"
)

const (
	providerName        = "anthropic"
	defaultBaseURL      = "https://api.anthropic.com"
	defaultMessagesPath = "/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	defaultMaxTokens    = 4096
)

func init() {
	llm.RegisterProvider(llm.ProviderAnthropic, New)
}

var _ llm.Generator = (*Provider)(nil)

// Provider implements llm.Generator for Anthropic Claude.
type Provider struct {
	client *resty.Client
}

// New creates a new Anthropic provider.
func New(cfg llm.Config) (llm.Generator, error) {
	if cfg.APIKey == "" {
		return nil, llm.ErrNoAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	// No transport retries: the router owns the only retry policy.
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", anthropicAPIVersion)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Provider{client: client}, nil
}

// Generate sends one Messages API request and returns the concatenated text blocks.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	body, err := buildRequestBody(req)
	if err != nil {
		return "", err
	}

	var out messagesResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post(defaultMessagesPath)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", providerName, err)
	}
	if resp.IsError() {
		return "", llm.NewAPIError(providerName, resp.StatusCode(), resp.String())
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func buildRequestBody(req *llm.Request) (*messagesRequest, error) {
	messages := make([]message, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant:
			messages = append(messages, message{Role: string(m.Role), Content: m.Content})
		}
	}

	// Anthropic requires at least one user message
	if len(messages) == 0 {
		return nil, fmt.Errorf("%s: at least one user message is required", providerName)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &messagesRequest{
		Model:     req.Model,
		System:    req.System,
		Messages:  messages,
		MaxTokens: maxTokens,
	}, nil
}

// API request/response types

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
}
