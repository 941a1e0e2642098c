package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/unthinkable/alina-support/internal/app/conversation"
	"github.com/unthinkable/alina-support/internal/domain"
	"github.com/unthinkable/alina-support/internal/observability"
)

const maxBodyBytes = 64 << 10

type Options struct {
	AllowedOrigins []string
}

type Server struct {
	svc  *conversation.Service
	docs []byte
}

func NewServer(svc *conversation.Service, opts Options) http.Handler {
	s := &Server{svc: svc, docs: renderDocs()}
	mux := http.NewServeMux()

	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/docs", s.handleDocs)
	mux.HandleFunc("/", s.handleRoot)

	// ids containing "/" must be sent escaped as %2F
	mux.HandleFunc("DELETE /sessions/{id}", s.handleResetSession)
	mux.HandleFunc("GET /sessions/{id}/messages", s.handleGetHistory)

	return chainMiddlewares(mux,
		withLogging,
		withRequestID,
		withCORS(opts.AllowedOrigins),
	)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type chatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

type chatResponse struct {
	SessionID         string `json:"session_id"`
	Response          string `json:"response"`
	IsEscalated       bool   `json:"is_escalated"`
	EscalationSummary string `json:"escalation_summary,omitempty"`
}

type messageResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

type historyResponse struct {
	SessionID   string            `json:"session_id"`
	IsEscalated bool              `json:"is_escalated"`
	Messages    []messageResponse `json:"messages"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.Chat(r.Context(), conversation.ChatInput{
		SessionID: domain.SessionID(req.SessionID),
		Query:     req.Query,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:         string(out.SessionID),
		Response:          out.Response,
		IsEscalated:       out.IsEscalated,
		EscalationSummary: out.EscalationSummary,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: "Alina Bot Backend"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.docs)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(r.PathValue("id"))
	if err := s.svc.ResetSession(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	id := domain.SessionID(r.PathValue("id"))
	out, err := s.svc.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	msgs := make([]messageResponse, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, messageResponse{
			Role:    string(m.Role),
			Content: m.Content,
			Type:    string(m.Type),
		})
	}

	writeJSON(w, http.StatusOK, historyResponse{
		SessionID:   string(id),
		IsEscalated: out.IsEscalated,
		Messages:    msgs,
	})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery):
		badRequest(w, "Query cannot be empty.")
	case errors.Is(err, domain.ErrInvalidSessionID):
		badRequest(w, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		observability.LoggerFromContext(r.Context()).Error("storage unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "session storage unavailable",
		})
	default:
		internalError(w, r, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
