package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	responsesCollection     = "responses"
	adventuresCollection    = "adventures"
	questStepsCollection    = "quest_steps"
	choicesCollection       = "player_choices"
	charactersCollection    = "characters"
)

// Store implements the session and backend storage ports on MongoDB.
// Records use hex ObjectIDs as string primary keys.
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return primitive.NewObjectID().Hex()
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// translate maps driver errors onto the error taxonomy.
func translate(err error, kind, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperrors.WithMetadata(apperrors.CodeNotFound, fmt.Sprintf("%s %q not found", kind, id),
			map[string]string{"kind": kind, "id": id})
	case mongo.IsDuplicateKeyError(err):
		return &apperrors.Error{
			Code:     apperrors.CodeConflict,
			Message:  fmt.Sprintf("%s %q already exists", kind, id),
			Metadata: map[string]string{"kind": kind, "id": id},
			Cause:    err,
		}
	case mongo.IsTimeout(err) || mongo.IsNetworkError(err):
		return apperrors.Wrap(apperrors.CodeTransientBackend, kind, err)
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{"created_at", 1}, {"_id", 1}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateConversation(ctx context.Context, c models.Conversation) (models.Conversation, error) {
	c.ID = newID(c.ID)
	c.CreatedAt = stamp(c.CreatedAt)
	c.UpdatedAt = stamp(c.UpdatedAt)
	if c.Participants == nil {
		c.Participants = []string{}
	}
	if _, err := s.collection(conversationsCollection).InsertOne(ctx, c); err != nil {
		return models.Conversation{}, translate(err, "conversation", c.ID)
	}
	return c, nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	var c models.Conversation
	err := s.collection(conversationsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if err != nil {
		return models.Conversation{}, translate(err, "conversation", id)
	}
	return c, nil
}

// ListConversations returns the conversations participant belongs to, most
// recently updated first.
func (s *Store) ListConversations(ctx context.Context, participant string) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{"updated_at", -1}, {"_id", 1}})
	cursor, err := s.collection(conversationsCollection).Find(ctx, bson.M{"participants": participant}, opts)
	if err != nil {
		return nil, translate(err, "conversations", participant)
	}
	defer cursor.Close(ctx)

	var out []models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate(err, "conversations", participant)
	}
	return out, nil
}

// DeleteConversation removes the conversation and every record attached to it.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.collection(conversationsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err, "conversation", id)
	}
	if res.DeletedCount == 0 {
		return translate(mongo.ErrNoDocuments, "conversation", id)
	}

	if adv, err := s.FindAdventure(ctx, id); err == nil {
		for _, name := range []string{questStepsCollection, choicesCollection} {
			if _, err := s.collection(name).DeleteMany(ctx, bson.M{"adventure_id": adv.ID}); err != nil {
				return translate(err, name, adv.ID)
			}
		}
	}
	for _, name := range []string{messagesCollection, responsesCollection, adventuresCollection, charactersCollection} {
		if _, err := s.collection(name).DeleteMany(ctx, bson.M{"conversation_id": id}); err != nil {
			return translate(err, name, id)
		}
	}
	return nil
}

func (s *Store) SaveMessage(ctx context.Context, m models.StoredMessage) (models.StoredMessage, error) {
	m.ID = newID(m.ID)
	m.CreatedAt = stamp(m.CreatedAt)
	if _, err := s.collection(messagesCollection).InsertOne(ctx, m); err != nil {
		return models.StoredMessage{}, translate(err, "message", m.ID)
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	out, err := findAll[models.StoredMessage](ctx, s.collection(messagesCollection), bson.M{"conversation_id": conversationID})
	return out, translate(err, "messages", conversationID)
}

func (s *Store) SaveResponse(ctx context.Context, r models.Response) (models.Response, error) {
	r.ID = newID(r.ID)
	r.CreatedAt = stamp(r.CreatedAt)
	if _, err := s.collection(responsesCollection).InsertOne(ctx, r); err != nil {
		return models.Response{}, translate(err, "response", r.ID)
	}
	return r, nil
}

func (s *Store) ListResponses(ctx context.Context, conversationID string) ([]models.Response, error) {
	out, err := findAll[models.Response](ctx, s.collection(responsesCollection), bson.M{"conversation_id": conversationID})
	return out, translate(err, "responses", conversationID)
}

func (s *Store) FindAdventure(ctx context.Context, conversationID string) (models.Adventure, error) {
	var a models.Adventure
	err := s.collection(adventuresCollection).FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&a)
	if err != nil {
		return models.Adventure{}, translate(err, "adventure", conversationID)
	}
	return a, nil
}

// CreateAdventure relies on the unique conversation_id index so concurrent
// creators across processes get a conflict.
func (s *Store) CreateAdventure(ctx context.Context, a models.Adventure) (models.Adventure, error) {
	a.ID = newID(a.ID)
	a.CreatedAt = stamp(a.CreatedAt)
	a.UpdatedAt = stamp(a.UpdatedAt)
	if _, err := s.collection(adventuresCollection).InsertOne(ctx, a); err != nil {
		return models.Adventure{}, translate(err, "adventure", a.ConversationID)
	}
	return a, nil
}

func (s *Store) SetAdventureLastStep(ctx context.Context, adventureID, stepID string) error {
	res, err := s.collection(adventuresCollection).UpdateOne(ctx,
		bson.M{"_id": adventureID},
		bson.M{"$set": bson.M{"last_step_id": stepID, "updated_at": time.Now().UTC()}})
	if err != nil {
		return translate(err, "adventure", adventureID)
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments, "adventure", adventureID)
	}
	return nil
}

func (s *Store) CreateQuestStep(ctx context.Context, step models.QuestStep) (models.QuestStep, error) {
	step.ID = newID(step.ID)
	step.CreatedAt = stamp(step.CreatedAt)
	if _, err := s.collection(questStepsCollection).InsertOne(ctx, step); err != nil {
		return models.QuestStep{}, translate(err, "quest step", step.ID)
	}
	return step, nil
}

func (s *Store) ListQuestSteps(ctx context.Context, adventureID string) ([]models.QuestStep, error) {
	out, err := findAll[models.QuestStep](ctx, s.collection(questStepsCollection), bson.M{"adventure_id": adventureID})
	return out, translate(err, "quest steps", adventureID)
}

func (s *Store) CreatePlayerChoice(ctx context.Context, c models.PlayerChoice) (models.PlayerChoice, error) {
	c.ID = newID(c.ID)
	c.CreatedAt = stamp(c.CreatedAt)
	if _, err := s.collection(choicesCollection).InsertOne(ctx, c); err != nil {
		return models.PlayerChoice{}, translate(err, "player choice", c.ID)
	}
	return c, nil
}

func (s *Store) ListPlayerChoices(ctx context.Context, adventureID string) ([]models.PlayerChoice, error) {
	out, err := findAll[models.PlayerChoice](ctx, s.collection(choicesCollection), bson.M{"adventure_id": adventureID})
	return out, translate(err, "player choices", adventureID)
}

func (s *Store) FindCharacter(ctx context.Context, conversationID string) (*models.CharacterSheet, error) {
	var c models.CharacterSheet
	err := s.collection(charactersCollection).FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&c)
	if err != nil {
		return nil, translate(err, "character", conversationID)
	}
	return &c, nil
}

// CreateCharacter inserts c. The unique conversation_id index turns a second
// character for the same conversation into a conflict.
func (s *Store) CreateCharacter(ctx context.Context, c *models.CharacterSheet) (*models.CharacterSheet, error) {
	out := c.Clone()
	out.ID = newID(out.ID)
	out.CreatedAt = stamp(out.CreatedAt)
	out.UpdatedAt = stamp(out.UpdatedAt)
	if _, err := s.collection(charactersCollection).InsertOne(ctx, out); err != nil {
		return nil, translate(err, "character", out.ConversationID)
	}
	return out, nil
}

func (s *Store) UpdateCharacter(ctx context.Context, c *models.CharacterSheet) error {
	res, err := s.collection(charactersCollection).ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return translate(err, "character", c.ID)
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments, "character", c.ID)
	}
	return nil
}

// CreateIndexes creates the lookup indexes and the uniqueness constraints
// that back one adventure and one character per conversation.
func (s *Store) CreateIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		conversationsCollection: {
			{Keys: bson.D{{"participants", 1}, {"updated_at", -1}}},
		},
		messagesCollection: {
			{Keys: bson.D{{"conversation_id", 1}, {"created_at", 1}}},
		},
		responsesCollection: {
			{Keys: bson.D{{"conversation_id", 1}, {"created_at", 1}}},
			{Keys: bson.D{{"message_id", 1}}},
		},
		adventuresCollection: {
			{Keys: bson.D{{"conversation_id", 1}}, Options: options.Index().SetUnique(true)},
		},
		questStepsCollection: {
			{Keys: bson.D{{"adventure_id", 1}, {"created_at", 1}}},
		},
		choicesCollection: {
			{Keys: bson.D{{"adventure_id", 1}, {"created_at", 1}}},
		},
		charactersCollection: {
			{Keys: bson.D{{"conversation_id", 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, idx := range indexes {
		if _, err := s.collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
