// Package llmtest provides a scripted llm.Generator for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/rcliao/second-mind/internal/llm"
)

// Response is one scripted reply.
type Response struct {
	Text string
	Err  error
	// Hang blocks until the call's context is done and returns its error.
	Hang bool
}

// Text scripts a successful reply.
func Text(s string) Response { return Response{Text: s} }

// Error scripts a failed call.
func Error(err error) Response { return Response{Err: err} }

// Hang scripts a call that never completes on its own.
func Hang() Response { return Response{Hang: true} }

// Generator replays responses in order, repeating the last one once exhausted.
type Generator struct {
	mu        sync.Mutex
	responses []Response
	requests  []llm.Request
}

var _ llm.Generator = (*Generator)(nil)

// New creates a Generator that replays responses.
func New(responses ...Response) *Generator {
	return &Generator{responses: responses}
}

func (g *Generator) Generate(ctx context.Context, req *llm.Request) (string, error) {
	g.mu.Lock()
	idx := len(g.requests)
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	g.requests = append(g.requests, cp)
	var r Response
	switch {
	case idx < len(g.responses):
		r = g.responses[idx]
	case len(g.responses) > 0:
		r = g.responses[len(g.responses)-1]
	}
	g.mu.Unlock()

	if r.Hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return r.Text, r.Err
}

// Calls returns the number of Generate invocations.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Requests returns copies of every request received.
func (g *Generator) Requests() []llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.Request(nil), g.requests...)
}

// LastRequest returns the most recent request, or nil.
func (g *Generator) LastRequest() *llm.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.requests) == 0 {
		return nil
	}
	r := g.requests[len(g.requests)-1]
	return &r
}
