// Package server exposes command dispatch and the memory inspector over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rcliao/second-mind/internal/dispatch"
	"github.com/rcliao/second-mind/internal/model"
	"github.com/rcliao/second-mind/internal/store"
)

// Dispatcher handles a single command.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*model.CommandResponse, error)
}

// MemoryStore is the storage surface used by the inspector routes.
type MemoryStore interface {
	List(ctx context.Context) ([]model.MemoryFile, error)
	Get(ctx context.Context, filename string) (*model.MemoryFile, error)
	Update(ctx context.Context, p store.UpdateParams) (*model.MemoryFile, error)
	History(ctx context.Context, filename string) ([]model.MemoryFileVersion, error)
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	dispatcher Dispatcher
	memory     MemoryStore
	opts       Options
	logger     *zap.Logger
}

// New creates a Server.
func New(d Dispatcher, memory MemoryStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{dispatcher: d, memory: memory, opts: opts, logger: logger.Named("server")}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/command", s.handleCommand)
		r.Route("/memory", func(r chi.Router) {
			r.Get("/", s.handleListMemory)
			r.Get("/{filename}", s.handleGetMemory)
			r.Patch("/{filename}", s.handleUpdateMemory)
			r.Get("/{filename}/history", s.handleMemoryHistory)
		})
	})
	return r
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Long enough for classification plus the generation timeout.
		WriteTimeout: 90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server is starting", zap.String("addr", ln.Addr().String()))
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("server is shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	httpServer.SetKeepAlivesEnabled(false)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server closed")
	return nil
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
