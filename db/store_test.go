package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func TestCreateConversationAssignsID(t *testing.T) {
	mt := newMock(t)
	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewStore(mt.DB)

		c, err := store.CreateConversation(context.Background(), models.Conversation{
			Title:        "hello",
			Participants: []string{"player-1"},
			Mode:         models.ModeAdventure,
		})
		require.NoError(mt, err)
		assert.Len(mt, c.ID, 24)
		assert.False(mt, c.CreatedAt.IsZero())
	})
}

func TestGetConversation(t *testing.T) {
	mt := newMock(t)
	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rpgchat.conversations", mtest.FirstBatch, bson.D{
			{"_id", "conv-1"},
			{"title", "hello"},
			{"participants", bson.A{"player-1"}},
			{"mode", "chat"},
		}))
		store := NewStore(mt.DB)

		c, err := store.GetConversation(context.Background(), "conv-1")
		require.NoError(mt, err)
		assert.Equal(mt, "hello", c.Title)
		assert.Equal(mt, []string{"player-1"}, c.Participants)
		assert.Equal(mt, models.ModeChat, c.Mode)
	})
	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rpgchat.conversations", mtest.FirstBatch))
		store := NewStore(mt.DB)

		_, err := store.GetConversation(context.Background(), "nope")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})
}

func TestListMessages(t *testing.T) {
	mt := newMock(t)
	mt.Run("ordered", func(mt *mtest.T) {
		at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rpgchat.messages", mtest.FirstBatch,
			bson.D{{"_id", "m-1"}, {"conversation_id", "conv-1"}, {"content", "hello"}, {"created_at", at}},
			bson.D{{"_id", "m-2"}, {"conversation_id", "conv-1"}, {"content", "again"}, {"created_at", at.Add(time.Minute)}},
		))
		store := NewStore(mt.DB)

		msgs, err := store.ListMessages(context.Background(), "conv-1")
		require.NoError(mt, err)
		require.Len(mt, msgs, 2)
		assert.Equal(mt, "m-1", msgs[0].ID)
		assert.Equal(mt, "again", msgs[1].Content)
		assert.True(mt, msgs[0].CreatedAt.Equal(at))
	})
}

func TestCreateCharacterConflict(t *testing.T) {
	mt := newMock(t)
	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))
		store := NewStore(mt.DB)

		_, err := store.CreateCharacter(context.Background(), &models.CharacterSheet{ConversationID: "conv-1", Name: "Lyra"})
		assert.ErrorIs(mt, err, apperrors.ErrConflict)
	})
}

func TestFindCharacter(t *testing.T) {
	mt := newMock(t)
	mt.Run("decodes sheet", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rpgchat.characters", mtest.FirstBatch, bson.D{
			{"_id", "char-1"},
			{"conversation_id", "conv-1"},
			{"name", "Lyra"},
			{"race", "elf"},
			{"class", "wizard"},
			{"level", 1},
			{"stats", bson.D{{"strength", 9}, {"intelligence", 16}}},
			{"hp", bson.D{{"current", 6}, {"max", 6}}},
			{"inventory", bson.A{"spellbook", "quarterstaff"}},
		}))
		store := NewStore(mt.DB)

		c, err := store.FindCharacter(context.Background(), "conv-1")
		require.NoError(mt, err)
		assert.Equal(mt, "Lyra", c.Name)
		assert.Equal(mt, 16, c.Stats.Intelligence)
		assert.Equal(mt, models.HP{Current: 6, Max: 6}, c.HP)
		assert.Equal(mt, []string{"spellbook", "quarterstaff"}, c.Inventory)
	})
	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "rpgchat.characters", mtest.FirstBatch))
		store := NewStore(mt.DB)

		_, err := store.FindCharacter(context.Background(), "conv-1")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
		assert.True(mt, apperrors.CodeOf(err).Retryable())
	})
}

func TestSetAdventureLastStep(t *testing.T) {
	mt := newMock(t)
	mt.Run("matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		store := NewStore(mt.DB)

		assert.NoError(mt, store.SetAdventureLastStep(context.Background(), "adv-1", "step-1"))
	})
	mt.Run("unknown adventure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		store := NewStore(mt.DB)

		err := store.SetAdventureLastStep(context.Background(), "adv-x", "step-1")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})
}

func TestDeleteConversationMissing(t *testing.T) {
	mt := newMock(t)
	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		store := NewStore(mt.DB)

		err := store.DeleteConversation(context.Background(), "conv-x")
		assert.ErrorIs(mt, err, apperrors.ErrNotFound)
	})
}

func TestCreateIndexes(t *testing.T) {
	mt := newMock(t)
	mt.Run("all collections", func(mt *mtest.T) {
		for range 7 {
			mt.AddMockResponses(mtest.CreateSuccessResponse())
		}
		store := NewStore(mt.DB)

		assert.NoError(mt, store.CreateIndexes(context.Background()))
	})
}
