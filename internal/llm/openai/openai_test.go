package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/second-mind/internal/llm"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(llm.Config{})
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer srv.Close()

	p, err := New(llm.Config{APIKey: "test-key", BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	text, err := p.Generate(context.Background(), &llm.Request{
		Model:  "gpt-4o",
		System: "persona",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "a"},
			{Role: llm.RoleAssistant, Content: "b"},
			{Role: llm.RoleUser, Content: "c"},
		},
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", text)

	assert.Equal(t, "gpt-4o", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])
}

func TestConvertMessages_NoSystem(t *testing.T) {
	t.Parallel()

	msgs := convertMessages(&llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "x"}}})
	assert.Len(t, msgs, 1)
}
