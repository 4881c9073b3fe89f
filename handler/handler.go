// Package handler composes the origin gate, rate limiter, chat orchestration,
// and stream translation into one request/response cycle, shared by both
// deployment targets.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"profile-chat/internal/domain"
	"profile-chat/internal/integrations/openrouter"
	"profile-chat/internal/origin"
	"profile-chat/internal/ratelimit"
	"profile-chat/internal/uistream"
	"profile-chat/internal/usecase"
)

// ChatStreamer starts the upstream stream for a question. Implemented by
// usecase.ChatService.
type ChatStreamer interface {
	Stream(ctx context.Context, question string, inbound []domain.ChatMessage) (*openrouter.Stream, error)
}

// Handler serves the chat and health endpoints.
type Handler struct {
	gate    *origin.Gate
	limiter *ratelimit.Limiter
	chat    ChatStreamer
	backend string
	debug   bool

	now func() time.Time
}

// New creates a Handler. backend names the deployment for error payloads and
// the status endpoints; debug widens error payloads with upstream detail.
func New(gate *origin.Gate, limiter *ratelimit.Limiter, chat ChatStreamer, backend string, debug bool) (*Handler, error) {
	if gate == nil {
		return nil, errors.New("handler: origin gate must not be nil")
	}
	if limiter == nil {
		return nil, errors.New("handler: rate limiter must not be nil")
	}
	if chat == nil {
		return nil, errors.New("handler: chat streamer must not be nil")
	}
	if strings.TrimSpace(backend) == "" {
		return nil, errors.New("handler: backend name must not be empty")
	}
	return &Handler{
		gate:    gate,
		limiter: limiter,
		chat:    chat,
		backend: backend,
		debug:   debug,
		now:     time.Now,
	}, nil
}

// Routes builds the router. The origin gate middleware runs before any other
// branching so every response, including errors, carries the cross-origin and
// backend headers.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.gate.Middleware)

	r.Get("/", h.handleIndex)
	r.Get("/healthz", h.handleHealth)
	r.Post("/chat", h.handleChat)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "Not found."})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed."})
	})
	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"service": "profile-chat",
		"backend": h.backend,
		"status":  "ok",
		"endpoints": map[string]string{
			"health": "/healthz",
			"chat":   "/chat",
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "backend": h.backend})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	rate := h.limiter.Check(r.Context(), clientIP(r), now)
	if rate.Limited {
		retryAfter := rate.RetryAfterSeconds(now)
		hdr := w.Header()
		hdr.Set("Retry-After", strconv.Itoa(retryAfter))
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(h.limiter.Max()))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(rate.Remaining))
		hdr.Set("X-RateLimit-Reset", strconv.FormatInt(rate.Reset.UnixMilli(), 10))
		respondJSON(w, http.StatusTooManyRequests, usecase.ErrorBody{
			Error:             "Rate limit exceeded.",
			ErrorCode:         usecase.ErrorWorkerRateLimit,
			Source:            h.backend,
			RetryAfterSeconds: retryAfter,
		})
		return
	}

	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body."})
		return
	}

	inbound := extractMessages(body)
	question := extractQuestion(body, inbound)
	if question == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing question."})
		return
	}

	stream, err := h.chat.Stream(r.Context(), question, inbound)
	if err != nil {
		normalized := usecase.Normalize(err, h.debug)
		if normalized.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(normalized.RetryAfterSeconds))
		}
		respondJSON(w, normalized.HTTPStatus, normalized.Body)
		return
	}
	defer func() { _ = stream.Body.Close() }()

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream; charset=utf-8")
	hdr.Set("Cache-Control", "no-cache, no-transform")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("x-vercel-ai-ui-message-stream", "v1")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// Headers are committed; from here failures surface in-band as stream
	// error events.
	if err := uistream.Pipe(w, stream.Body); err != nil {
		slog.Error("chat stream translation ended with read error",
			"attempts", stream.Attempts, "err", err)
	}
}

// clientIP extracts the caller address from the platform forwarding headers,
// with a stable sentinel when none is present.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return "unknown"
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
