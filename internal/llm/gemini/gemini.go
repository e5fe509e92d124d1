// Package gemini provides a Generator for Google's Gemini API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/rcliao/second-mind/internal/llm"
)

const providerName = "gemini"

func init() {
	llm.RegisterProvider(llm.ProviderGemini, New)
}

var _ llm.Generator = (*Provider)(nil)

// Provider implements llm.Generator using the genai SDK.
type Provider struct {
	client *genai.Client
}

// New creates a new Gemini provider. Per-call deadlines come from the
// context passed to Generate.
func New(cfg llm.Config) (llm.Generator, error) {
	if cfg.APIKey == "" {
		return nil, llm.ErrNoAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("%s: create client: %w", providerName, err)
	}
	return &Provider{client: client}, nil
}

// Generate calls GenerateContent and returns the response text.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (string, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%s: generate failed: %w", providerName, err)
	}
	return resp.Text(), nil
}
