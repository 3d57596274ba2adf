// Package timeline reconciles pulled conversation history with pushed live
// replies into one ordered message list.
package timeline

import (
	"sort"

	"rpgchat/models"
)

// History is one bulk fetch of a conversation. Neither slice is assumed to
// be ordered.
type History struct {
	Messages  []models.StoredMessage
	Responses []models.Response
}

// Result is the ordered outcome of a merge.
type Result struct {
	Messages []models.Message
	// Pending is set when some user message has no reply yet.
	Pending bool
}

// Merge orders user messages by creation time (ties by id) and places each
// one's reply directly after it. Replies that answer no fetched message are
// left out.
func Merge(h History) Result {
	msgs := append([]models.StoredMessage(nil), h.Messages...)
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})

	replies := make(map[string]models.Response, len(h.Responses))
	for _, r := range h.Responses {
		prev, ok := replies[r.MessageID]
		if !ok || earlier(r, prev) {
			replies[r.MessageID] = r
		}
	}

	out := Result{Messages: make([]models.Message, 0, len(msgs)+len(replies))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, m.UserMessage())
		reply, ok := replies[m.ID]
		if !ok {
			out.Pending = true
			continue
		}
		out.Messages = append(out.Messages, reply.AssistantMessage())
	}
	return out
}

// earlier orders replies to the same message so the first one wins.
func earlier(a, b models.Response) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
