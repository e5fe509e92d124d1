// Package dispatch runs a command through routing and answering.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rcliao/second-mind/internal/model"
)

// ErrManifestUnavailable is returned when the memory manifest cannot be read.
// It is the only error Dispatch returns.
var ErrManifestUnavailable = errors.New("memory manifest unavailable")

// DefaultMaxExchanges is the number of prior user/assistant exchanges kept.
const DefaultMaxExchanges = 10

// ManifestReader lists the available memory files.
type ManifestReader interface {
	Manifest(ctx context.Context) ([]model.ManifestEntry, error)
}

// Router classifies a command.
type Router interface {
	Route(ctx context.Context, command string, manifest []model.ManifestEntry) model.RouterResult
}

// Composer produces answer text.
type Composer interface {
	Answer(ctx context.Context, command string, filenames []string, history []model.ChatMessage) string
}

// Request is a single command with its prior conversation.
type Request struct {
	Command string
	History []model.ChatMessage
}

// Dispatcher sequences manifest read, classification and answering.
type Dispatcher struct {
	manifest     ManifestReader
	router       Router
	composer     Composer
	maxExchanges int
	logger       *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxExchanges bounds the history forwarded to the composer. Values <= 0
// forward no history.
func WithMaxExchanges(n int) Option {
	return func(d *Dispatcher) { d.maxExchanges = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher.
func New(manifest ManifestReader, router Router, composer Composer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		manifest:     manifest,
		router:       router,
		composer:     composer,
		maxExchanges: DefaultMaxExchanges,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.Named("dispatch")
	return d
}

// Dispatch handles one command. memory_inspect commands are answered without
// a generation call; every other intent is answered by the composer.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*model.CommandResponse, error) {
	start := time.Now()
	log := d.logger.With(zap.String("request_id", uuid.NewString()))

	manifest, err := d.manifest.Manifest(ctx)
	if err != nil {
		log.Error("read manifest failed", zap.String("op", "dispatch"), zap.Error(err))
		return nil, ErrManifestUnavailable
	}

	routed := d.router.Route(ctx, req.Command, manifest)
	log.Info("command routed",
		zap.String("intent", string(routed.Intent)),
		zap.Strings("files", routed.MemoryFilesNeeded))

	if routed.Intent == model.IntentMemoryInspect {
		return &model.CommandResponse{
			Intent:          routed.Intent,
			MemoryFilesUsed: []string{},
			Response:        "",
			ActionDetails:   routed.ActionDetails,
		}, nil
	}

	response := d.composer.Answer(ctx, req.Command, routed.MemoryFilesNeeded, d.boundHistory(req.History))
	log.Info("command answered",
		zap.String("intent", string(routed.Intent)),
		zap.Duration("elapsed", time.Since(start)))

	return &model.CommandResponse{
		Intent:          routed.Intent,
		MemoryFilesUsed: routed.MemoryFilesNeeded,
		Response:        response,
	}, nil
}

// boundHistory drops turns with unknown roles or no content and keeps the
// most recent maxExchanges*2 messages.
func (d *Dispatcher) boundHistory(history []model.ChatMessage) []model.ChatMessage {
	if d.maxExchanges <= 0 || len(history) == 0 {
		return nil
	}

	kept := make([]model.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		kept = append(kept, m)
	}

	if limit := d.maxExchanges * 2; len(kept) > limit {
		kept = kept[len(kept)-limit:]
	}
	return kept
}
