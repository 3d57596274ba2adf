package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

func TestDeleteConversationCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	conv, err := s.CreateConversation(ctx, models.Conversation{Title: "t", Participants: []string{"p"}})
	require.NoError(t, err)
	_, err = s.SaveMessage(ctx, models.StoredMessage{ConversationID: conv.ID, Content: "hi"})
	require.NoError(t, err)
	adv, err := s.CreateAdventure(ctx, models.Adventure{ConversationID: conv.ID})
	require.NoError(t, err)
	_, err = s.CreateQuestStep(ctx, models.QuestStep{AdventureID: adv.ID, Summary: "cave"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, conv.ID))

	msgs, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	steps, err := s.ListQuestSteps(ctx, adv.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
	_, err = s.FindAdventure(ctx, conv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, s.DeleteConversation(ctx, conv.ID), apperrors.ErrNotFound)
}

func TestOneCharacterPerConversation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	sheet := &models.CharacterSheet{ConversationID: "conv-1", Name: "Lyra", Inventory: []string{"spellbook"}}
	created, err := s.CreateCharacter(ctx, sheet)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = s.CreateCharacter(ctx, sheet)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	found, err := s.FindCharacter(ctx, "conv-1")
	require.NoError(t, err)
	found.Inventory[0] = "mutated"

	again, err := s.FindCharacter(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"spellbook"}, again.Inventory, "callers get copies")

	stale := *created
	stale.ID = "other"
	assert.ErrorIs(t, s.UpdateCharacter(ctx, &stale), apperrors.ErrNotFound)
}

func TestListConversationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.CreateConversation(ctx, models.Conversation{ID: "old", Participants: []string{"p"}, UpdatedAt: base})
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, models.Conversation{ID: "new", Participants: []string{"p"}, UpdatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, models.Conversation{ID: "theirs", Participants: []string{"q"}})
	require.NoError(t, err)

	convs, err := s.ListConversations(ctx, "p")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "new", convs[0].ID)
	assert.Equal(t, "old", convs[1].ID)
}

func TestSaveMessageRequiresConversation(t *testing.T) {
	_, err := NewStore().SaveMessage(context.Background(), models.StoredMessage{ConversationID: "missing", Content: "hi"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
