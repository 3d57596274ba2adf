package timeline

import (
	"fmt"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

// Timeline is the message list of one conversation. It is not safe for
// concurrent use; the owning session serializes access.
type Timeline struct {
	conversationID string
	entries        []models.Message
}

// New returns an empty timeline for conversationID.
func New(conversationID string) *Timeline {
	return &Timeline{conversationID: conversationID}
}

// ConversationID is the conversation whose events this timeline accepts.
func (t *Timeline) ConversationID() string {
	return t.conversationID
}

// Rebuild replaces the list with a fresh merge of h. Entries that only exist
// locally (optimistic user messages, live replies not yet in the history)
// are kept after the merged history in their current order, so replaying
// the same history is idempotent. It reports whether a fetched user message
// is still unanswered.
func (t *Timeline) Rebuild(h History) (pending bool) {
	res := Merge(h)

	known := make(map[string]struct{}, len(res.Messages))
	for _, m := range res.Messages {
		known[entryKey(m)] = struct{}{}
	}

	merged := res.Messages
	for _, m := range t.entries {
		key := entryKey(m)
		if key == "" {
			merged = append(merged, m)
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}
		merged = append(merged, m)
	}
	t.entries = merged
	if !res.Pending {
		return false
	}
	return t.unanswered()
}

func (t *Timeline) unanswered() bool {
	answered := make(map[string]struct{})
	for _, m := range t.entries {
		if m.Role == models.RoleAssistant {
			answered[m.ID] = struct{}{}
		}
	}
	for _, m := range t.entries {
		if m.Role != models.RoleUser || m.ID == "" {
			continue
		}
		if _, ok := answered[m.ID]; !ok {
			return true
		}
	}
	return false
}

// AppendUser adds an optimistic user message and returns its index.
func (t *Timeline) AppendUser(content string) int {
	t.entries = append(t.entries, models.Message{
		Role:        models.RoleUser,
		Content:     content,
		FullContent: content,
	})
	return len(t.entries) - 1
}

// ConfirmUser records the server id of the optimistic message at index.
func (t *Timeline) ConfirmUser(index int, id string) {
	if index < 0 || index >= len(t.entries) || t.entries[index].Role != models.RoleUser {
		return
	}
	t.entries[index].ID = id
}

// Apply appends a live reply as a typing entry and returns its index.
// Replies for another conversation fail with a stale-event error and replies
// already on the timeline fail with a duplicate-event error; neither changes
// the list.
func (t *Timeline) Apply(resp models.Response) (int, error) {
	if resp.ConversationID != t.conversationID {
		return -1, apperrors.WithMetadata(apperrors.CodeStaleEvent,
			fmt.Sprintf("response for conversation %q while %q is active", resp.ConversationID, t.conversationID),
			map[string]string{"conversation_id": resp.ConversationID, "response_id": resp.ID})
	}
	for _, m := range t.entries {
		if m.Role == models.RoleAssistant && m.ResponseID == resp.ID {
			return -1, apperrors.WithMetadata(apperrors.CodeDuplicateEvent,
				fmt.Sprintf("response %q already applied", resp.ID),
				map[string]string{"conversation_id": resp.ConversationID, "response_id": resp.ID})
		}
	}

	msg := resp.AssistantMessage()
	msg.Content = ""
	msg.IsTyping = true
	t.entries = append(t.entries, msg)
	return len(t.entries) - 1, nil
}

// Reveal sets the visible content of the assistant entry at index. Only
// Content and IsTyping change; settled entries are never reopened.
func (t *Timeline) Reveal(index int, content string, typing bool) bool {
	if index < 0 || index >= len(t.entries) {
		return false
	}
	m := &t.entries[index]
	if m.Role != models.RoleAssistant || !m.IsTyping {
		return false
	}
	m.Content = content
	m.IsTyping = typing
	return true
}

// RevealResponse is Reveal for the entry of responseID, wherever a Rebuild
// has moved it.
func (t *Timeline) RevealResponse(responseID string, content string, typing bool) bool {
	for i := range t.entries {
		m := t.entries[i]
		if m.Role == models.RoleAssistant && m.ResponseID == responseID {
			return t.Reveal(i, content, typing)
		}
	}
	return false
}

// Len is the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Messages returns a deep copy of the entries.
func (t *Timeline) Messages() []models.Message {
	out := make([]models.Message, len(t.entries))
	for i, m := range t.entries {
		out[i] = m.Clone()
	}
	return out
}

func entryKey(m models.Message) string {
	switch {
	case m.Role == models.RoleAssistant && m.ResponseID != "":
		return "r:" + m.ResponseID
	case m.Role == models.RoleUser && m.ID != "":
		return "m:" + m.ID
	}
	return ""
}
