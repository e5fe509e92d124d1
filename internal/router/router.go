// Package router classifies free-text commands into intents and selects the
// memory files needed to act on them.
package router

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/rcliao/second-mind/internal/llm"
	"github.com/rcliao/second-mind/internal/model"
)

// Config configures a Router.
type Config struct {
	// Model is the small, fast model tier used for classification.
	Model     string
	MaxTokens int
	// Timeout bounds each classification call. Zero disables the bound.
	Timeout time.Duration
	// CoreIdentityFile is always included for question and task intents.
	CoreIdentityFile string
	AssistantName    string
}

// DefaultConfig returns the default router configuration.
func DefaultConfig() Config {
	return Config{
		Model:            "claude-haiku-4-5-20251001",
		MaxTokens:        256,
		Timeout:          10 * time.Second,
		CoreIdentityFile: "Gaurav.md",
		AssistantName:    "Second Mind",
	}
}

// Router classifies commands.
type Router struct {
	gen    llm.Generator
	cfg    Config
	logger *zap.Logger
}

// New creates a Router. A nil logger disables logging.
func New(gen llm.Generator, cfg Config, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{gen: gen, cfg: cfg, logger: logger.Named("router")}
}

// Route classifies command against manifest. It never fails: a malformed
// classifier reply is retried once, and any backend error or second malformed
// reply yields a question intent over the whole manifest.
func (r *Router) Route(ctx context.Context, command string, manifest []model.ManifestEntry) model.RouterResult {
	system := buildSystemPrompt(manifest, r.cfg)

	text, err := r.classify(ctx, system, command)
	if err != nil {
		r.logger.Error("classification call failed, using defaults",
			zap.String("op", "route"), zap.Int("attempt", 1), zap.Error(err))
		return defaultResult(manifest)
	}
	result, err := decode(text)
	if err == nil {
		return r.finalize(result, manifest)
	}
	r.logger.Warn("malformed classification, retrying",
		zap.String("op", "route"), zap.Error(err))

	text, err = r.classify(ctx, system+retryDirective, command)
	if err != nil {
		r.logger.Error("classification retry failed, using defaults",
			zap.String("op", "route"), zap.Int("attempt", 2), zap.Error(err))
		return defaultResult(manifest)
	}
	result, err = decode(text)
	if err != nil {
		r.logger.Error("malformed classification after retry, using defaults",
			zap.String("op", "route"), zap.Error(err))
		return defaultResult(manifest)
	}
	return r.finalize(result, manifest)
}

func (r *Router) classify(ctx context.Context, system, command string) (string, error) {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	return r.gen.Generate(ctx, &llm.Request{
		Model:     r.cfg.Model,
		System:    system,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: command}},
		MaxTokens: r.cfg.MaxTokens,
	})
}

// finalize applies the rules the router enforces regardless of what the
// classifier returned. Filenames outside the manifest are passed through.
func (r *Router) finalize(result model.RouterResult, manifest []model.ManifestEntry) model.RouterResult {
	names := model.Filenames(manifest)

	if core := r.cfg.CoreIdentityFile; core != "" &&
		(result.Intent == model.IntentQuestion || result.Intent == model.IntentTask) &&
		slices.Contains(names, core) && !slices.Contains(result.MemoryFilesNeeded, core) {
		result.MemoryFilesNeeded = append([]string{core}, result.MemoryFilesNeeded...)
	}

	if result.Intent == model.IntentMemoryInspect {
		result.ActionDetails = resolveTargetFile(result.ActionDetails, names)
	}

	return result
}

// resolveTargetFile maps a near-miss targetFile onto a manifest filename and
// drops it when nothing matches.
func resolveTargetFile(details map[string]any, names []string) map[string]any {
	raw, ok := details[model.ActionTargetFile]
	if !ok {
		return details
	}

	out := make(map[string]any, len(details))
	for k, v := range details {
		out[k] = v
	}

	target, _ := raw.(string)
	target = strings.TrimSpace(target)
	if match, ok := closestFilename(target, names); ok {
		out[model.ActionTargetFile] = match
	} else {
		delete(out, model.ActionTargetFile)
	}
	return out
}

func closestFilename(target string, names []string) (string, bool) {
	if target == "" {
		return "", false
	}
	if slices.Contains(names, target) {
		return target, true
	}
	for _, n := range names {
		if strings.EqualFold(n, target) {
			return n, true
		}
	}

	pattern := strings.TrimSuffix(target, filepath.Ext(target))
	pattern = strings.ReplaceAll(pattern, " ", "")
	if matches := fuzzy.Find(pattern, names); len(matches) > 0 {
		return matches[0].Str, true
	}
	return "", false
}

func defaultResult(manifest []model.ManifestEntry) model.RouterResult {
	return model.RouterResult{
		Intent:            model.IntentQuestion,
		MemoryFilesNeeded: model.Filenames(manifest),
		ActionDetails:     map[string]any{},
	}
}
