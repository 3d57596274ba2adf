// Package handlers is the HTTP shell over the chat sessions.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "rpgchat/errors"
	"rpgchat/models"
	"rpgchat/registry"
	"rpgchat/session"
)

// ConversationLister lists the conversations a participant belongs to.
type ConversationLister interface {
	ListConversations(ctx context.Context, participant string) ([]models.Conversation, error)
}

// Handler serves the session API.
type Handler struct {
	sessions      *registry.Registry
	conversations ConversationLister
	identity      session.IdentityProvider
	log           *zap.Logger
}

func New(sessions *registry.Registry, conversations ConversationLister, identity session.IdentityProvider, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		sessions:      sessions,
		conversations: conversations,
		identity:      identity,
		log:           log.Named("http"),
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/sessions", h.CreateSession)
	mux.HandleFunc("/sessions/close", h.CloseSession)
	mux.HandleFunc("/sessions/select", h.SelectConversation)
	mux.HandleFunc("/conversations", h.ListConversations)
	mux.HandleFunc("/conversation/delete", h.DeleteConversation)
	mux.HandleFunc("/message", h.Message)
	mux.HandleFunc("/timeline", h.Timeline)
	mux.HandleFunc("/character", h.CreateCharacter)
	mux.HandleFunc("/character/items", h.AddItem)
	mux.HandleFunc("/character/effects", h.AddEffect)
	mux.HandleFunc("/rules", h.Rules)
	return mux
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error    string            `json:"error"`
	Code     string            `json:"code,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(code apperrors.Code) int {
	switch code {
	case apperrors.CodeValidation:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeConflict, apperrors.CodeInvalidState:
		return http.StatusConflict
	case apperrors.CodeTransientBackend:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError renders err with the status of its code. Unclassified errors
// are logged and hidden from the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		h.log.Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	status := statusFor(appErr.Code)
	if status >= http.StatusInternalServerError {
		h.log.Warn("Request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{
		Error:    appErr.Error(),
		Code:     string(appErr.Code),
		Metadata: appErr.Metadata,
	})
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad request", Code: string(apperrors.CodeValidation)})
		return false
	}
	return true
}

func (h *Handler) lookup(w http.ResponseWriter, id string) (*session.Session, bool) {
	s, ok := h.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found", Code: string(apperrors.CodeNotFound)})
		return nil, false
	}
	return s, true
}
