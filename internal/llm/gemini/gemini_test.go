package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/second-mind/internal/llm"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := New(llm.Config{})
	assert.ErrorIs(t, err, llm.ErrNoAPIKey)
}
