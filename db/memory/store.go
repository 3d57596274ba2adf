// Package memory keeps every record in process memory. It backs tests and
// the STORAGE_BACKEND=memory dev mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

type Store struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
	messages      map[string][]models.StoredMessage
	responses     map[string][]models.Response
	adventures    map[string]models.Adventure
	steps         map[string][]models.QuestStep
	choices       map[string][]models.PlayerChoice
	characters    map[string]*models.CharacterSheet
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[string]models.Conversation),
		messages:      make(map[string][]models.StoredMessage),
		responses:     make(map[string][]models.Response),
		adventures:    make(map[string]models.Adventure),
		steps:         make(map[string][]models.QuestStep),
		choices:       make(map[string][]models.PlayerChoice),
		characters:    make(map[string]*models.CharacterSheet),
	}
}

func notFound(kind, id string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, fmt.Sprintf("%s %q not found", kind, id),
		map[string]string{"kind": kind, "id": id})
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func (s *Store) CreateConversation(ctx context.Context, c models.Conversation) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = newID(c.ID)
	c.CreatedAt = stamp(c.CreatedAt)
	c.UpdatedAt = stamp(c.UpdatedAt)
	c.Participants = append([]string(nil), c.Participants...)
	s.conversations[c.ID] = c
	return c, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, notFound("conversation", id)
	}
	return c, nil
}

// ListConversations returns the conversations participant belongs to, newest
// first.
func (s *Store) ListConversations(ctx context.Context, participant string) ([]models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Conversation
	for _, c := range s.conversations {
		for _, p := range c.Participants {
			if p == participant {
				out = append(out, c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeleteConversation removes the conversation and everything attached to it.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return notFound("conversation", id)
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	delete(s.responses, id)
	delete(s.characters, id)
	if adv, ok := s.adventures[id]; ok {
		delete(s.steps, adv.ID)
		delete(s.choices, adv.ID)
		delete(s.adventures, id)
	}
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, m models.StoredMessage) (models.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[m.ConversationID]; !ok {
		return models.StoredMessage{}, notFound("conversation", m.ConversationID)
	}
	m.ID = newID(m.ID)
	m.CreatedAt = stamp(m.CreatedAt)
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.StoredMessage(nil), s.messages[conversationID]...), nil
}

func (s *Store) SaveResponse(ctx context.Context, r models.Response) (models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[r.ConversationID]; !ok {
		return models.Response{}, notFound("conversation", r.ConversationID)
	}
	r.ID = newID(r.ID)
	r.CreatedAt = stamp(r.CreatedAt)
	s.responses[r.ConversationID] = append(s.responses[r.ConversationID], r)
	return r, nil
}

func (s *Store) ListResponses(ctx context.Context, conversationID string) ([]models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Response(nil), s.responses[conversationID]...), nil
}

func (s *Store) FindAdventure(ctx context.Context, conversationID string) (models.Adventure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.adventures[conversationID]
	if !ok {
		return models.Adventure{}, notFound("adventure", conversationID)
	}
	return a, nil
}

func (s *Store) CreateAdventure(ctx context.Context, a models.Adventure) (models.Adventure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.adventures[a.ConversationID]; ok {
		return models.Adventure{}, apperrors.WithMetadata(apperrors.CodeConflict, "adventure already exists",
			map[string]string{"conversation_id": a.ConversationID})
	}
	a.ID = newID(a.ID)
	a.CreatedAt = stamp(a.CreatedAt)
	a.UpdatedAt = stamp(a.UpdatedAt)
	s.adventures[a.ConversationID] = a
	return a, nil
}

func (s *Store) SetAdventureLastStep(ctx context.Context, adventureID, stepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conv, a := range s.adventures {
		if a.ID == adventureID {
			a.LastStepID = stepID
			a.UpdatedAt = time.Now().UTC()
			s.adventures[conv] = a
			return nil
		}
	}
	return notFound("adventure", adventureID)
}

func (s *Store) CreateQuestStep(ctx context.Context, step models.QuestStep) (models.QuestStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	step.ID = newID(step.ID)
	step.CreatedAt = stamp(step.CreatedAt)
	s.steps[step.AdventureID] = append(s.steps[step.AdventureID], step)
	return step, nil
}

func (s *Store) ListQuestSteps(ctx context.Context, adventureID string) ([]models.QuestStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.QuestStep(nil), s.steps[adventureID]...), nil
}

func (s *Store) CreatePlayerChoice(ctx context.Context, c models.PlayerChoice) (models.PlayerChoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = newID(c.ID)
	c.CreatedAt = stamp(c.CreatedAt)
	s.choices[c.AdventureID] = append(s.choices[c.AdventureID], c)
	return c, nil
}

func (s *Store) ListPlayerChoices(ctx context.Context, adventureID string) ([]models.PlayerChoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PlayerChoice(nil), s.choices[adventureID]...), nil
}

func (s *Store) FindCharacter(ctx context.Context, conversationID string) (*models.CharacterSheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.characters[conversationID]
	if !ok {
		return nil, notFound("character", conversationID)
	}
	return c.Clone(), nil
}

// CreateCharacter stores c. A conversation holds at most one character.
func (s *Store) CreateCharacter(ctx context.Context, c *models.CharacterSheet) (*models.CharacterSheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.characters[c.ConversationID]; ok {
		return nil, apperrors.WithMetadata(apperrors.CodeConflict, "character already exists",
			map[string]string{"conversation_id": c.ConversationID})
	}
	out := c.Clone()
	out.ID = newID(out.ID)
	out.CreatedAt = stamp(out.CreatedAt)
	out.UpdatedAt = stamp(out.UpdatedAt)
	s.characters[out.ConversationID] = out
	return out.Clone(), nil
}

func (s *Store) UpdateCharacter(ctx context.Context, c *models.CharacterSheet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.characters[c.ConversationID]
	if !ok || cur.ID != c.ID {
		return notFound("character", c.ID)
	}
	s.characters[c.ConversationID] = c.Clone()
	return nil
}
