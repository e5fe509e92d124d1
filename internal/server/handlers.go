package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rcliao/second-mind/internal/dispatch"
	"github.com/rcliao/second-mind/internal/model"
	"github.com/rcliao/second-mind/internal/store"
)

const (
	maxBodyBytes       = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

// Client-facing error messages. Internal error text is never returned.
const (
	errInvalidJSON     = "Invalid JSON in request body"
	errMessageRequired = "Message is required"
	errUnavailable     = "Service temporarily unavailable"
	errUnexpected      = "An unexpected error occurred"
	errFileNotFound    = "Memory file not found"
	errContentRequired = "Content is required and must be a non-empty string"
	errVersionConflict = "Memory file was modified by another request"
	errLoadMemory      = "Failed to load memory files"
	errUpdateMemory    = "Failed to update memory file"
	errInternal        = "Internal server error"
)

type commandRequest struct {
	Message json.RawMessage `json:"message"`
	History json.RawMessage `json:"history"`
}

type updateRequest struct {
	Content json.RawMessage `json:"content"`
	Version int             `json:"version"`
}

type healthResponse struct {
	Status  string `json:"status"`
	DB      bool   `json:"db"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	raw, ok := readJSON(w, r)
	if !ok {
		return
	}

	var body commandRequest
	_ = json.Unmarshal(raw, &body)

	message, ok := nonEmptyString(body.Message)
	if !ok {
		writeError(w, http.StatusBadRequest, errMessageRequired)
		return
	}

	// A history that is not a list of turns is ignored rather than rejected.
	var history []model.ChatMessage
	if len(body.History) > 0 {
		if err := json.Unmarshal(body.History, &history); err != nil {
			history = nil
		}
	}

	resp, err := s.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Command: strings.TrimSpace(message),
		History: history,
	})
	switch {
	case errors.Is(err, dispatch.ErrManifestUnavailable):
		writeError(w, http.StatusServiceUnavailable, errUnavailable)
		return
	case err != nil:
		s.logger.Error("dispatch failed", zap.String("op", "command"), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errUnexpected)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMemory(w http.ResponseWriter, r *http.Request) {
	files, err := s.memory.List(r.Context())
	if err != nil {
		s.logger.Error("list memory failed", zap.String("op", "list_memory"), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errLoadMemory)
		return
	}
	if files == nil {
		files = []model.MemoryFile{}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	f, err := s.memory.Get(r.Context(), filenameParam(r))
	if err != nil {
		s.writeStoreError(w, "get_memory", err, errInternal)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	raw, ok := readJSON(w, r)
	if !ok {
		return
	}

	var body updateRequest
	if err := json.Unmarshal(raw, &body); err != nil {
		writeError(w, http.StatusBadRequest, errContentRequired)
		return
	}
	content, ok := nonEmptyString(body.Content)
	if !ok {
		writeError(w, http.StatusBadRequest, errContentRequired)
		return
	}

	f, err := s.memory.Update(r.Context(), store.UpdateParams{
		Filename:        filenameParam(r),
		Content:         content,
		ExpectedVersion: body.Version,
	})
	if err != nil {
		s.writeStoreError(w, "update_memory", err, errUpdateMemory)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleMemoryHistory(w http.ResponseWriter, r *http.Request) {
	versions, err := s.memory.History(r.Context(), filenameParam(r))
	if err != nil {
		s.writeStoreError(w, "memory_history", err, errInternal)
		return
	}
	if versions == nil {
		versions = []model.MemoryFileVersion{}
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.memory.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "error", DB: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DB: true})
}

func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, errFileNotFound)
	case errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, errVersionConflict)
	default:
		s.logger.Error("store operation failed", zap.String("op", op), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// readJSON reads a bounded request body and writes a 400 if it is not JSON.
func readJSON(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || !json.Valid(raw) {
		writeError(w, http.StatusBadRequest, errInvalidJSON)
		return nil, false
	}
	return raw, true
}

// nonEmptyString decodes raw as a string. Non-strings and blank strings are
// rejected.
func nonEmptyString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, strings.TrimSpace(s) != ""
}

func filenameParam(r *http.Request) string {
	name := chi.URLParam(r, "filename")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
