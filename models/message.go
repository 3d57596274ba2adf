package models

import "time"

// Role identifies who authored a timeline entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation timeline as the client renders it.
// Content holds what is currently revealed; FullContent the complete text.
type Message struct {
	ID             string   `json:"id,omitempty"`
	ResponseID     string   `json:"response_id,omitempty"`
	Role           Role     `json:"role"`
	Content        string   `json:"content"`
	IsTyping       bool     `json:"is_typing,omitempty"`
	FullContent    string   `json:"full_content,omitempty"`
	Sensations     []string `json:"sensations,omitempty"`
	Thoughts       []string `json:"thoughts,omitempty"`
	Memories       string   `json:"memories,omitempty"`
	SelfReflection string   `json:"self_reflection,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate timeline state.
func (m Message) Clone() Message {
	out := m
	if m.Sensations != nil {
		out.Sensations = append([]string(nil), m.Sensations...)
	}
	if m.Thoughts != nil {
		out.Thoughts = append([]string(nil), m.Thoughts...)
	}
	return out
}

// StoredMessage is a persisted user message.
type StoredMessage struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	Content        string    `bson:"content" json:"content"`
	Owner          string    `bson:"owner,omitempty" json:"owner,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Response is a persisted assistant reply. It is also the payload delivered
// by the live response subscription.
type Response struct {
	ID             string    `bson:"_id" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	MessageID      string    `bson:"message_id" json:"message_id"`
	Response       string    `bson:"response" json:"response"`
	Sensations     []string  `bson:"sensations,omitempty" json:"sensations,omitempty"`
	Thoughts       []string  `bson:"thoughts,omitempty" json:"thoughts,omitempty"`
	Memories       string    `bson:"memories,omitempty" json:"memories,omitempty"`
	SelfReflection string    `bson:"self_reflection,omitempty" json:"self_reflection,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// UserMessage converts a stored message into a timeline entry.
func (m StoredMessage) UserMessage() Message {
	return Message{
		ID:          m.ID,
		Role:        RoleUser,
		Content:     m.Content,
		FullContent: m.Content,
	}
}

// AssistantMessage converts a reply into a settled timeline entry.
func (r Response) AssistantMessage() Message {
	return Message{
		ID:             r.MessageID,
		ResponseID:     r.ID,
		Role:           RoleAssistant,
		Content:        r.Response,
		FullContent:    r.Response,
		Sensations:     append([]string(nil), r.Sensations...),
		Thoughts:       append([]string(nil), r.Thoughts...),
		Memories:       r.Memories,
		SelfReflection: r.SelfReflection,
	}
}
