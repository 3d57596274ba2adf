package models

import "time"

// Mode selects whether a conversation carries adventure state.
type Mode string

const (
	ModeChat      Mode = "chat"
	ModeAdventure Mode = "adventure"
)

// Conversation is one chat thread.
type Conversation struct {
	ID           string    `bson:"_id" json:"id"`
	Title        string    `bson:"title" json:"title"`
	Participants []string  `bson:"participants" json:"participants"`
	Mode         Mode      `bson:"mode" json:"mode"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Danger is a coarse threat classification of a narrative beat.
type Danger string

const (
	DangerLow    Danger = "low"
	DangerMedium Danger = "medium"
	DangerHigh   Danger = "high"
)

// Adventure is the RPG record tied 1:1 to a conversation.
type Adventure struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	Title          string    `bson:"title" json:"title"`
	LastStepID     string    `bson:"last_step_id,omitempty" json:"last_step_id,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// QuestStep is one narrative beat derived from an assistant reply.
type QuestStep struct {
	ID             string    `bson:"_id" json:"id"`
	AdventureID    string    `bson:"adventure_id" json:"adventure_id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	ResponseID     string    `bson:"response_id" json:"response_id"`
	Summary        string    `bson:"summary" json:"summary"`
	Danger         Danger    `bson:"danger" json:"danger"`
	Location       string    `bson:"location" json:"location"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// PlayerChoice is one user decision recorded against the latest quest step.
type PlayerChoice struct {
	ID          string    `bson:"_id" json:"id"`
	AdventureID string    `bson:"adventure_id" json:"adventure_id"`
	StepID      string    `bson:"step_id" json:"step_id"`
	MessageID   string    `bson:"message_id" json:"message_id"`
	Choice      string    `bson:"choice" json:"choice"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
