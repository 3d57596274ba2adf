package handlers

import (
	"net/http"

	apperrors "rpgchat/errors"
	"rpgchat/models"
	"rpgchat/session"
)

type CreateSessionRequest struct {
	Mode models.Mode `json:"mode"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type SessionResponse struct {
	SessionID string      `json:"session_id"`
	Mode      models.Mode `json:"mode"`
}

type SelectRequest struct {
	SessionID      string `json:"session_id"`
	ConversationID string `json:"conversation_id"`
}

type MessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// TimelineResponse is the renderable state of a session.
type TimelineResponse struct {
	ConversationID string                 `json:"conversation_id,omitempty"`
	State          string                 `json:"state"`
	Waiting        bool                   `json:"waiting"`
	Messages       []models.Message       `json:"messages"`
	Character      *models.CharacterSheet `json:"character,omitempty"`
	NeedsCharacter bool                   `json:"needs_character"`
	Adventure      *models.Adventure      `json:"adventure,omitempty"`
	QuestSteps     []models.QuestStep     `json:"quest_steps,omitempty"`
	Choices        []models.PlayerChoice  `json:"choices,omitempty"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req CreateSessionRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	switch req.Mode {
	case "":
		req.Mode = models.ModeChat
	case models.ModeChat, models.ModeAdventure:
	default:
		h.writeError(w, apperrors.WithMetadata(apperrors.CodeValidation, "unknown mode",
			map[string]string{"mode": string(req.Mode)}))
		return
	}

	id, s := h.sessions.Spawn(req.Mode)
	h.log.Info("Session created")
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: id, Mode: s.Mode()})
}

func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req SessionRequest
	if !decode(w, r, &req) {
		return
	}
	if !h.sessions.Delete(req.SessionID) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Session not found", Code: string(apperrors.CodeNotFound)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SelectConversation(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	s, ok := h.lookup(w, req.SessionID)
	if !ok {
		return
	}
	if err := s.Select(r.Context(), req.ConversationID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineOf(s))
}

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	owner, err := h.identity.Identity(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	convs, err := h.conversations.ListConversations(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req SessionRequest
	if !decode(w, r, &req) {
		return
	}
	s, ok := h.lookup(w, req.SessionID)
	if !ok {
		return
	}
	if err := s.Delete(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timelineOf(s))
}

// Message sends the player's text. The reply arrives asynchronously and is
// revealed on the timeline.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req MessageRequest
	if !decode(w, r, &req) {
		return
	}
	s, ok := h.lookup(w, req.SessionID)
	if !ok {
		return
	}
	if err := s.Send(r.Context(), req.Message); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, timelineOf(s))
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	s, ok := h.lookup(w, r.URL.Query().Get("session_id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, timelineOf(s))
}

func timelineOf(s *session.Session) TimelineResponse {
	msgs := s.Messages()
	if msgs == nil {
		msgs = []models.Message{}
	}
	return TimelineResponse{
		ConversationID: s.ConversationID(),
		State:          s.State().String(),
		Waiting:        s.Waiting(),
		Messages:       msgs,
		Character:      s.Character(),
		NeedsCharacter: s.NeedsCharacter(),
		Adventure:      s.Adventure(),
		QuestSteps:     s.QuestSteps(),
		Choices:        s.Choices(),
	}
}
