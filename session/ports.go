package session

import (
	"context"

	"rpgchat/models"
)

// MessagingBackend persists user messages and delivers assistant replies.
// Live replies are delivered at least once and unordered across
// conversations.
type MessagingBackend interface {
	CreateMessage(ctx context.Context, conversationID, content string) (models.StoredMessage, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error)
	ListResponses(ctx context.Context, conversationID string) ([]models.Response, error)
	SubscribeResponses(ctx context.Context, handler func(models.Response)) (Subscription, error)
}

// Subscription is a live reply feed.
type Subscription interface {
	Unsubscribe()
}

// Store persists conversation and adventure records. Lookups of missing
// records return an error matching apperrors.ErrNotFound.
type Store interface {
	CreateConversation(ctx context.Context, c models.Conversation) (models.Conversation, error)
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	FindAdventure(ctx context.Context, conversationID string) (models.Adventure, error)
	CreateAdventure(ctx context.Context, a models.Adventure) (models.Adventure, error)
	SetAdventureLastStep(ctx context.Context, adventureID, stepID string) error

	CreateQuestStep(ctx context.Context, s models.QuestStep) (models.QuestStep, error)
	ListQuestSteps(ctx context.Context, adventureID string) ([]models.QuestStep, error)
	CreatePlayerChoice(ctx context.Context, c models.PlayerChoice) (models.PlayerChoice, error)
	ListPlayerChoices(ctx context.Context, adventureID string) ([]models.PlayerChoice, error)

	FindCharacter(ctx context.Context, conversationID string) (*models.CharacterSheet, error)
	CreateCharacter(ctx context.Context, c *models.CharacterSheet) (*models.CharacterSheet, error)
	UpdateCharacter(ctx context.Context, c *models.CharacterSheet) error
}

// IdentityProvider supplies the caller's stable identity.
type IdentityProvider interface {
	Identity(ctx context.Context) (string, error)
}

// StaticIdentity is an IdentityProvider that always returns itself.
type StaticIdentity string

// Identity implements IdentityProvider.
func (s StaticIdentity) Identity(context.Context) (string, error) {
	return string(s), nil
}
