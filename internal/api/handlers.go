// Package api exposes the HTTP surface of the insights assistant.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/saleslens/sales_insights/internal/assist"
	"github.com/saleslens/sales_insights/internal/history"
	"github.com/saleslens/sales_insights/internal/schema"
	"github.com/saleslens/sales_insights/internal/session"
)

// QueryProcessor runs one assistant turn.
type QueryProcessor interface {
	Process(ctx context.Context, userQuery string, partition schema.Partition, conversation *assist.Conversation) assist.Result
}

// Handler serves the chat endpoints.
type Handler struct {
	processor QueryProcessor
	sessions  *session.Manager
	history   *history.Store
	logger    *slog.Logger
}

// NewHandler wires the HTTP surface. history may be nil when prompt history
// is not configured.
func NewHandler(processor QueryProcessor, sessions *session.Manager, store *history.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{processor: processor, sessions: sessions, history: store, logger: logger}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
	r.Post("/api/ai-query", h.AIQuery)
	r.Post("/api/reset-chat", h.ResetChat)
	r.Get("/api/chat-status", h.ChatStatus)
	r.Get("/api/recent-prompts", h.RecentPrompts)
}

type aiQueryRequest struct {
	Query     string `json:"query"`
	AppType   string `json:"app_type"`
	SessionID string `json:"session_id"`
}

type resetChatRequest struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AIQuery runs one turn of the assistant. Pipeline failures still respond
// 200 with success=false; only malformed requests get a 4xx.
func (h *Handler) AIQuery(w http.ResponseWriter, r *http.Request) {
	var req aiQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	partition := schema.NormalizePartition(req.AppType)
	sessionKey := h.sessionKey(req.SessionID, r)

	// The turn lock covers the processor's context reads and its appends,
	// so concurrent requests on one session cannot interleave on the
	// shared conversation.
	conversation, release := h.sessions.Acquire(sessionKey)
	result := h.processor.Process(r.Context(), req.Query, partition, conversation)
	release()

	if h.history != nil {
		if err := h.history.RecordPrompt(clientIP(r), string(partition), req.Query); err != nil {
			h.logger.Warn("prompt history write failed", "error", err)
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// ResetChat drops the session's conversation context.
func (h *Handler) ResetChat(w http.ResponseWriter, r *http.Request) {
	var req resetChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.sessions.Reset(h.sessionKey(req.SessionID, r))
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Chat context cleared",
	})
}

// ChatStatus reports whether the session holds live conversation context.
func (h *Handler) ChatStatus(w http.ResponseWriter, r *http.Request) {
	sessionKey := h.sessionKey(r.URL.Query().Get("session_id"), r)
	respondJSON(w, http.StatusOK, map[string]any{
		"has_context": h.sessions.HasContext(sessionKey),
	})
}

// RecentPrompts returns the client's latest remembered questions for an app
// type, newest first, so the frontend can offer them as suggestions.
func (h *Handler) RecentPrompts(w http.ResponseWriter, r *http.Request) {
	prompts := []history.PromptRecord{}
	if h.history != nil {
		partition := schema.NormalizePartition(r.URL.Query().Get("app_type"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		records, err := h.history.RecentPrompts(clientIP(r), string(partition), limit)
		if err != nil {
			h.logger.Warn("recent prompts read failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not load prompt history")
			return
		}
		prompts = append(prompts, records...)
	}
	respondJSON(w, http.StatusOK, map[string]any{"prompts": prompts})
}

// sessionKey falls back to the client address so cookie-less clients still
// get stable per-user context.
func (h *Handler) sessionKey(sessionID string, r *http.Request) string {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id
	}
	return clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("response encoding failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
