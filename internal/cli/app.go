package cli

import (
	"github.com/rcliao/second-mind/internal/composer"
	"github.com/rcliao/second-mind/internal/config"
	"github.com/rcliao/second-mind/internal/dispatch"
	"github.com/rcliao/second-mind/internal/llm"
	_ "github.com/rcliao/second-mind/internal/llm/allproviders"
	"github.com/rcliao/second-mind/internal/router"
	"github.com/rcliao/second-mind/internal/store"
)

// newGenerator builds the generation backend. Tests replace it.
var newGenerator = func(c *config.Config) (llm.Generator, error) {
	return llm.New(llm.Config{
		Provider: c.LLM.Provider,
		APIKey:   c.LLM.APIKey,
		BaseURL:  c.LLM.BaseURL,
	})
}

// newDispatcher wires the router and composer over s.
func newDispatcher(c *config.Config, s *store.SQLiteStore) (*dispatch.Dispatcher, error) {
	gen, err := newGenerator(c)
	if err != nil {
		return nil, err
	}

	r := router.New(gen, router.Config{
		Model:            c.Router.Model,
		MaxTokens:        c.Router.MaxTokens,
		Timeout:          c.Router.Timeout,
		CoreIdentityFile: c.Router.CoreIdentityFile,
		AssistantName:    c.Assistant.Name,
	}, logger)

	comp := composer.New(s, gen, composer.Config{
		Model:         c.Generation.Model,
		MaxTokens:     c.Generation.MaxTokens,
		Timeout:       c.Generation.Timeout,
		AssistantName: c.Assistant.Name,
		Owner:         c.Assistant.Owner,
	}, logger)

	return dispatch.New(s, r, comp,
		dispatch.WithMaxExchanges(c.History.MaxExchanges),
		dispatch.WithLogger(logger)), nil
}
