package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/second-mind/internal/llm/llmtest"
	"github.com/rcliao/second-mind/internal/model"
)

var testManifest = []model.ManifestEntry{
	{Filename: "Gaurav.md", Description: "Core identity, family, work"},
	{Filename: "Reading.md", Description: "Books read, reading list"},
	{Filename: "Taste.md", Description: "Books, films, music, art"},
	{Filename: "Travel.md", Description: "Destinations, hotels, airlines"},
	{Filename: "Ideas.md", Description: "Essay seeds, story concepts"},
}

func newTestRouter(gen *llmtest.Generator) *Router {
	cfg := DefaultConfig()
	cfg.Timeout = 0
	return New(gen, cfg, nil)
}

func TestRoute_ValidFirstResponse(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(llmtest.Text(`{"intent":"question","memoryFilesNeeded":["Gaurav.md","Reading.md"],"actionDetails":{}}`))
	r := newTestRouter(gen)

	got := r.Route(context.Background(), "what should I read next?", []model.ManifestEntry{
		{Filename: "Gaurav.md", Description: "identity"},
		{Filename: "Reading.md", Description: "books"},
	})

	assert.Equal(t, 1, gen.Calls())
	assert.Equal(t, model.IntentQuestion, got.Intent)
	assert.Equal(t, []string{"Gaurav.md", "Reading.md"}, got.MemoryFilesNeeded)
	assert.Equal(t, map[string]any{}, got.ActionDetails)
}

func TestRoute_RequestShape(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(llmtest.Text(`{"intent":"status","memoryFilesNeeded":[],"actionDetails":{}}`))
	cfg := DefaultConfig()
	cfg.Model = "small-model"
	cfg.MaxTokens = 128
	r := New(gen, cfg, nil)

	r.Route(context.Background(), "how are things?", testManifest)

	req := gen.LastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "small-model", req.Model)
	assert.Equal(t, 128, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "how are things?", req.Messages[0].Content)
	assert.EqualValues(t, "user", req.Messages[0].Role)
}

func TestRoute_PersistentlyMalformedRetriesOnce(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(llmtest.Text("I think this is a question about books."))
	r := newTestRouter(gen)

	got := r.Route(context.Background(), "what should I read?", testManifest)

	assert.Equal(t, 2, gen.Calls())
	assert.Equal(t, model.IntentQuestion, got.Intent)
	assert.Equal(t, model.Filenames(testManifest), got.MemoryFilesNeeded)
	assert.Empty(t, got.ActionDetails)

	reqs := gen.Requests()
	assert.NotContains(t, reqs[0].System, "You must respond with ONLY valid JSON")
	assert.True(t, strings.HasSuffix(reqs[1].System, retryDirective))
	assert.Equal(t, reqs[0].Messages, reqs[1].Messages)
}

func TestRoute_RetryRecovers(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(
		llmtest.Text("sure! here you go"),
		llmtest.Text(`{"intent":"store","memoryFilesNeeded":["Ideas.md"],"actionDetails":{}}`),
	)
	r := newTestRouter(gen)

	got := r.Route(context.Background(), "save this essay idea", testManifest)

	assert.Equal(t, 2, gen.Calls())
	assert.Equal(t, model.IntentStore, got.Intent)
	assert.Equal(t, []string{"Ideas.md"}, got.MemoryFilesNeeded)
}

func TestRoute_BackendErrorFallsBack(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(llmtest.Error(errors.New("connection refused")))
	r := newTestRouter(gen)

	got := r.Route(context.Background(), "anything", testManifest)

	assert.Equal(t, 1, gen.Calls())
	assert.Equal(t, model.IntentQuestion, got.Intent)
	assert.Equal(t, model.Filenames(testManifest), got.MemoryFilesNeeded)
	assert.NotNil(t, got.ActionDetails)
}

func TestRoute_RetryBackendErrorFallsBack(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(
		llmtest.Text("not json"),
		llmtest.Error(errors.New("overloaded")),
	)
	r := newTestRouter(gen)

	got := r.Route(context.Background(), "anything", testManifest)

	assert.Equal(t, 2, gen.Calls())
	assert.Equal(t, model.IntentQuestion, got.Intent)
	assert.Equal(t, model.Filenames(testManifest), got.MemoryFilesNeeded)
}

func TestRoute_FallbackOnEmptyManifest(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(llmtest.Error(errors.New("down")))
	r := newTestRouter(gen)

	got := r.Route(context.Background(), "hello", nil)

	assert.Equal(t, model.IntentQuestion, got.Intent)
	assert.NotNil(t, got.MemoryFilesNeeded)
	assert.Empty(t, got.MemoryFilesNeeded)
}

func TestRoute_ClassificationTimeoutFallsBack(t *testing.T) {
	t.Parallel()

	gen := llmtest.New(llmtest.Hang())
	cfg := DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	r := New(gen, cfg, nil)

	got := r.Route(context.Background(), "hello", testManifest)

	assert.Equal(t, 1, gen.Calls())
	assert.Equal(t, model.IntentQuestion, got.Intent)
	assert.Len(t, got.MemoryFilesNeeded, len(testManifest))
}

func TestRoute_EnforcesCoreIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		reply  string
		intent model.Intent
		want   []string
	}{
		{
			name:   "question without core file",
			reply:  `{"intent":"question","memoryFilesNeeded":["Reading.md"],"actionDetails":{}}`,
			intent: model.IntentQuestion,
			want:   []string{"Gaurav.md", "Reading.md"},
		},
		{
			name:   "task with empty files",
			reply:  `{"intent":"task","memoryFilesNeeded":[],"actionDetails":{}}`,
			intent: model.IntentTask,
			want:   []string{"Gaurav.md"},
		},
		{
			name:   "question already including core file",
			reply:  `{"intent":"question","memoryFilesNeeded":["Travel.md","Gaurav.md"],"actionDetails":{}}`,
			intent: model.IntentQuestion,
			want:   []string{"Travel.md", "Gaurav.md"},
		},
		{
			name:   "store is left alone",
			reply:  `{"intent":"store","memoryFilesNeeded":["Ideas.md"],"actionDetails":{}}`,
			intent: model.IntentStore,
			want:   []string{"Ideas.md"},
		},
		{
			name:   "status may be empty",
			reply:  `{"intent":"status","memoryFilesNeeded":[],"actionDetails":{}}`,
			intent: model.IntentStatus,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestRouter(llmtest.New(llmtest.Text(tt.reply)))
			got := r.Route(context.Background(), "cmd", testManifest)
			assert.Equal(t, tt.intent, got.Intent)
			assert.Equal(t, tt.want, got.MemoryFilesNeeded)
		})
	}
}

func TestRoute_CoreIdentityNotInventedWhenAbsentFromManifest(t *testing.T) {
	t.Parallel()

	r := newTestRouter(llmtest.New(llmtest.Text(`{"intent":"question","memoryFilesNeeded":["Reading.md"],"actionDetails":{}}`)))
	got := r.Route(context.Background(), "cmd", []model.ManifestEntry{{Filename: "Reading.md", Description: "books"}})

	assert.Equal(t, []string{"Reading.md"}, got.MemoryFilesNeeded)
}

func TestRoute_UnknownFilenamesPassThrough(t *testing.T) {
	t.Parallel()

	r := newTestRouter(llmtest.New(llmtest.Text(`{"intent":"search","memoryFilesNeeded":["Bookmarks.md"],"actionDetails":{}}`)))
	got := r.Route(context.Background(), "find that article", testManifest)

	assert.Equal(t, model.IntentSearch, got.Intent)
	assert.Equal(t, []string{"Bookmarks.md"}, got.MemoryFilesNeeded)
}

func TestRoute_MemoryInspect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  map[string]any
	}{
		{
			name:  "no target",
			reply: `{"intent":"memory_inspect","memoryFilesNeeded":[],"actionDetails":{}}`,
			want:  map[string]any{},
		},
		{
			name:  "exact target",
			reply: `{"intent":"memory_inspect","memoryFilesNeeded":[],"actionDetails":{"targetFile":"Travel.md"}}`,
			want:  map[string]any{"targetFile": "Travel.md"},
		},
		{
			name:  "case mismatch",
			reply: `{"intent":"memory_inspect","memoryFilesNeeded":[],"actionDetails":{"targetFile":"travel.MD"}}`,
			want:  map[string]any{"targetFile": "Travel.md"},
		},
		{
			name:  "near miss",
			reply: `{"intent":"memory_inspect","memoryFilesNeeded":[],"actionDetails":{"targetFile":"reading"}}`,
			want:  map[string]any{"targetFile": "Reading.md"},
		},
		{
			name:  "no match dropped",
			reply: `{"intent":"memory_inspect","memoryFilesNeeded":[],"actionDetails":{"targetFile":"Zzz.md","mode":"edit"}}`,
			want:  map[string]any{"mode": "edit"},
		},
		{
			name:  "null details",
			reply: `{"intent":"memory_inspect","memoryFilesNeeded":[],"actionDetails":null}`,
			want:  map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := llmtest.New(llmtest.Text(tt.reply))
			got := newTestRouter(gen).Route(context.Background(), "/memory", testManifest)
			assert.Equal(t, 1, gen.Calls())
			assert.Equal(t, model.IntentMemoryInspect, got.Intent)
			assert.Equal(t, tt.want, got.ActionDetails)
		})
	}
}

func TestRoute_IntentAlwaysValid(t *testing.T) {
	t.Parallel()

	replies := []string{
		"",
		"{",
		"}{",
		"null",
		`[]`,
		`{"intent":"delete_everything","memoryFilesNeeded":[]}`,
		`{"intent":"QUESTION","memoryFilesNeeded":[]}`,
		`{"intent":42,"memoryFilesNeeded":[]}`,
		`{"intent":"question","memoryFilesNeeded":"Gaurav.md"}`,
		`{"intent":"question","memoryFilesNeeded":[1,2]}`,
		`{"intent":"question"}`,
		`{"intent":"question","memoryFilesNeeded":[],"actionDetails":"x"}`,
		"```json\n{\"intent\":\"search\",\"memoryFilesNeeded\":[]}\n```",
		`Sure: {"intent":"task","memoryFilesNeeded":["Travel.md"],"actionDetails":{"note":"a } brace"}} done`,
	}

	for _, reply := range replies {
		gen := llmtest.New(llmtest.Text(reply))
		got := newTestRouter(gen).Route(context.Background(), "cmd", testManifest)
		assert.True(t, model.ValidIntents[got.Intent], "reply %q produced intent %q", reply, got.Intent)
		assert.NotNil(t, got.MemoryFilesNeeded, "reply %q", reply)
		assert.NotNil(t, got.ActionDetails, "reply %q", reply)
		assert.LessOrEqual(t, gen.Calls(), 2, "reply %q", reply)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildSystemPrompt(testManifest, DefaultConfig())

	for _, in := range model.AllIntents {
		assert.Contains(t, prompt, `"`+string(in)+`"`)
	}
	for _, e := range testManifest {
		assert.Contains(t, prompt, "- "+e.Filename+": "+e.Description)
	}
	assert.Contains(t, prompt, `For "question" and "task" intents, ALWAYS include Gaurav.md in memoryFilesNeeded.`)
	assert.Contains(t, prompt, "targetFile")
	assert.Contains(t, prompt, "Second Mind")
	assert.Contains(t, prompt, "Respond with ONLY a JSON object")
}

func TestBuildSystemPrompt_EmptyManifest(t *testing.T) {
	t.Parallel()

	prompt := buildSystemPrompt(nil, DefaultConfig())
	assert.Contains(t, prompt, "Available memory files:\n(none)")
}
