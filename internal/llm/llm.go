// Package llm defines the text-generation backend used for routing and answering.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

var (
	// ErrNoAPIKey is returned when a provider is configured without credentials.
	ErrNoAPIKey = errors.New("llm: API key is required")
	// ErrUnknownProvider is returned by New for an unregistered provider name.
	ErrUnknownProvider = errors.New("llm: unknown provider")
)

// Message is one turn sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Request is a single non-streaming generation call.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
}

// Generator produces text from a prompt. Implementations must honour ctx
// cancellation; callers rely on it to bound wall-clock time.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req *Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req *Request) (string, error) {
	return f(ctx, req)
}

// Config configures a provider client.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	// Timeout is a transport-level ceiling. Per-call deadlines come from ctx.
	Timeout time.Duration
}

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// NewAPIError creates an APIError.
func NewAPIError(provider string, statusCode int, body string) *APIError {
	return &APIError{Provider: provider, StatusCode: statusCode, Body: body}
}

// Factory constructs a provider from configuration.
type Factory func(cfg Config) (Generator, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// RegisterProvider makes a provider available to New. Providers call it from init.
func RegisterProvider(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Providers lists the registered provider names.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the configured provider.
func New(cfg Config) (Generator, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Provider]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	return f(cfg)
}
