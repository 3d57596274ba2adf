package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "rpgchat/errors"
	"rpgchat/models"
	"rpgchat/timeline"
)

const titleLength = 40

// Send posts text to the active conversation, creating and selecting a new
// conversation first when none is active. The message appears on the
// timeline immediately and stays there even if the backend call fails.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.New(apperrors.CodeValidation, "message is empty")
	}

	if s.State() == StateUnselected {
		if err := s.startConversation(ctx, text); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeInvalidState, "session is not ready",
			map[string]string{"state": state.String()})
	}
	gen := s.gen
	convID := s.conversationID
	tl := s.tl
	index := tl.AppendUser(text)
	s.waiting = true
	s.state = StateSending
	s.mu.Unlock()

	log := s.log.With(zap.String("conversation_id", convID))
	stored, err := s.backend.CreateMessage(ctx, convID, text)

	s.mu.Lock()
	if !s.currentLocked(gen) {
		s.mu.Unlock()
		return err
	}
	s.state = StateReady
	if err != nil {
		s.waiting = false
		s.mu.Unlock()
		log.Warn("Failed to send message", zap.Error(err))
		return apperrors.Wrap(apperrors.CodeTransientBackend, "send message", err)
	}
	tl.ConfirmUser(index, stored.ID)
	var adventureID, stepID string
	if s.mode == models.ModeAdventure && s.adventure != nil && len(s.steps) > 0 {
		adventureID = s.adventure.ID
		stepID = s.steps[len(s.steps)-1].ID
	}
	s.mu.Unlock()

	log.Debug("Message sent", zap.String("message_id", stored.ID))

	if stepID != "" {
		s.recordChoice(ctx, gen, models.PlayerChoice{
			AdventureID: adventureID,
			StepID:      stepID,
			MessageID:   stored.ID,
			Choice:      text,
			CreatedAt:   time.Now().UTC(),
		})
	}
	return nil
}

func (s *Session) startConversation(ctx context.Context, text string) error {
	owner, err := s.identity.Identity(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTransientBackend, "resolve identity", err)
	}
	now := time.Now().UTC()
	conv, err := s.store.CreateConversation(ctx, models.Conversation{
		Title:        conversationTitle(text),
		Participants: []string{owner},
		Mode:         s.mode,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTransientBackend, "create conversation", err)
	}
	s.log.Info("Conversation created", zap.String("conversation_id", conv.ID), zap.String("owner", owner))
	return s.Select(ctx, conv.ID)
}

func conversationTitle(text string) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) <= titleLength {
		return string(runes)
	}
	return string(runes[:titleLength]) + "..."
}

func (s *Session) recordChoice(ctx context.Context, gen uint64, choice models.PlayerChoice) {
	saved, err := s.store.CreatePlayerChoice(ctx, choice)
	if err != nil {
		s.log.Warn("Failed to record player choice", zap.String("step_id", choice.StepID), zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentLocked(gen) {
		s.choices = append(s.choices, saved)
	}
}

// HandleResponse applies a live reply. Replies for another conversation and
// replies already shown are dropped.
func (s *Session) HandleResponse(resp models.Response) {
	s.mu.Lock()
	if s.tl == nil {
		s.mu.Unlock()
		s.log.Debug("Dropping response with no active conversation", zap.String("response_id", resp.ID))
		return
	}
	tl := s.tl
	gen := s.gen
	index, err := tl.Apply(resp)
	if err != nil {
		s.mu.Unlock()
		s.logDropped(resp, err)
		return
	}
	s.waiting = false
	s.mu.Unlock()

	s.typing.Start(revealer{s: s, tl: tl, responseID: resp.ID}, index, resp.Response)

	if s.mode == models.ModeAdventure {
		s.recordStep(gen, resp)
	}
}

func (s *Session) logDropped(resp models.Response, err error) {
	fields := []zap.Field{
		zap.String("conversation_id", resp.ConversationID),
		zap.String("response_id", resp.ID),
		zap.String("reason", string(apperrors.CodeOf(err))),
	}
	if errors.Is(err, apperrors.ErrStaleEvent) || errors.Is(err, apperrors.ErrDuplicateEvent) {
		s.log.Debug("Dropping response", fields...)
		return
	}
	s.log.Warn("Dropping response", append(fields, zap.Error(err))...)
}

// revealer feeds typing updates for one reply into one timeline. The entry
// is found by response id because a Rebuild during loading can move it.
// Updates for a timeline that is no longer active are ignored.
type revealer struct {
	s          *Session
	tl         *timeline.Timeline
	responseID string
}

func (r revealer) Reveal(_ int, content string, typing bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.tl != r.tl {
		return
	}
	r.tl.RevealResponse(r.responseID, content, typing)
}
