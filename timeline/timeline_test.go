package timeline

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func userMsg(id string, at time.Duration, content string) models.StoredMessage {
	return models.StoredMessage{ID: id, ConversationID: "conv-1", Content: content, CreatedAt: t0.Add(at)}
}

func reply(id, messageID string, at time.Duration, text string) models.Response {
	return models.Response{ID: id, ConversationID: "conv-1", MessageID: messageID, Response: text, CreatedAt: t0.Add(at)}
}

func roles(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Role) + ":" + m.Content
	}
	return out
}

func TestMergeOrdersAndPairs(t *testing.T) {
	h := History{
		Messages: []models.StoredMessage{
			userMsg("m3", 3*time.Second, "third"),
			userMsg("m1", time.Second, "first"),
			userMsg("m2", 2*time.Second, "second"),
		},
		Responses: []models.Response{
			reply("r2", "m2", 2500*time.Millisecond, "re second"),
			reply("r1", "m1", 1500*time.Millisecond, "re first"),
		},
	}

	res := Merge(h)
	assert.Equal(t, []string{
		"user:first", "assistant:re first",
		"user:second", "assistant:re second",
		"user:third",
	}, roles(res.Messages))
	assert.True(t, res.Pending)
}

func TestMergeTieBreaksByID(t *testing.T) {
	h := History{Messages: []models.StoredMessage{
		userMsg("b", 0, "bee"),
		userMsg("a", 0, "ay"),
	}}
	assert.Equal(t, []string{"user:ay", "user:bee"}, roles(Merge(h).Messages))
}

func TestMergeKeepsFirstReplyAndDropsOrphans(t *testing.T) {
	h := History{
		Messages: []models.StoredMessage{userMsg("m1", 0, "hi")},
		Responses: []models.Response{
			reply("r-late", "m1", 2*time.Second, "late"),
			reply("r-early", "m1", time.Second, "early"),
			reply("r-orphan", "m-gone", time.Second, "orphan"),
		},
	}
	res := Merge(h)
	assert.Equal(t, []string{"user:hi", "assistant:early"}, roles(res.Messages))
	assert.False(t, res.Pending)
}

func TestMergeCarriesMetadata(t *testing.T) {
	r := reply("r1", "m1", time.Second, "The fog parts.")
	r.Sensations = []string{"cold air"}
	r.Thoughts = []string{"someone is watching"}
	r.Memories = "the last village"
	r.SelfReflection = "I am uneasy"

	res := Merge(History{Messages: []models.StoredMessage{userMsg("m1", 0, "look")}, Responses: []models.Response{r}})
	require.Len(t, res.Messages, 2)
	got := res.Messages[1]
	assert.Equal(t, "r1", got.ResponseID)
	assert.Equal(t, []string{"cold air"}, got.Sensations)
	assert.Equal(t, []string{"someone is watching"}, got.Thoughts)
	assert.Equal(t, "the last village", got.Memories)
	assert.Equal(t, "I am uneasy", got.SelfReflection)
	assert.False(t, got.IsTyping)
}

func TestRebuildIsIdempotent(t *testing.T) {
	h := History{
		Messages:  []models.StoredMessage{userMsg("m2", 2*time.Second, "b"), userMsg("m1", time.Second, "a")},
		Responses: []models.Response{reply("r1", "m1", 1500*time.Millisecond, "ra")},
	}
	tl := New("conv-1")

	assert.True(t, tl.Rebuild(h))
	first := tl.Messages()
	assert.True(t, tl.Rebuild(h))
	if diff := cmp.Diff(first, tl.Messages()); diff != "" {
		t.Fatalf("replay changed timeline (-first +second):\n%s", diff)
	}
}

func TestRefetchAfterPushRederivesSameList(t *testing.T) {
	h := History{Messages: []models.StoredMessage{userMsg("m1", 0, "hello")}}
	tl := New("conv-1")
	require.True(t, tl.Rebuild(h))

	live := reply("r1", "m1", time.Second, "hi there")
	idx, err := tl.Apply(live)
	require.NoError(t, err)
	require.True(t, tl.Reveal(idx, live.Response, false))
	afterPush := tl.Messages()

	h.Responses = append(h.Responses, live)
	assert.False(t, tl.Rebuild(h))
	if diff := cmp.Diff(afterPush, tl.Messages()); diff != "" {
		t.Fatalf("refetch diverged from live state (-live +refetch):\n%s", diff)
	}
}

func TestRebuildKeepsLocalEntries(t *testing.T) {
	tl := New("conv-1")
	tl.Rebuild(History{Messages: []models.StoredMessage{userMsg("m1", 0, "one")}})

	_, err := tl.Apply(reply("r1", "m1", time.Second, "live one"))
	require.NoError(t, err)
	tl.AppendUser("two")

	pending := tl.Rebuild(History{Messages: []models.StoredMessage{userMsg("m1", 0, "one")}})
	assert.False(t, pending, "live reply answers m1")
	assert.Equal(t, []string{"user:one", "assistant:", "user:two"}, roles(tl.Messages()))
}

func TestRevealFollowsReplyMovedByRebuild(t *testing.T) {
	tl := New("conv-1")

	idx, err := tl.Apply(reply("r1", "m1", time.Second, "late"))
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	tl.Rebuild(History{Messages: []models.StoredMessage{userMsg("m1", 0, "hello")}})
	assert.False(t, tl.Reveal(idx, "late", false), "index 0 now holds the user message")

	require.True(t, tl.RevealResponse("r1", "late", false))
	msgs := tl.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "late", msgs[1].Content)
	assert.False(t, msgs[1].IsTyping)

	assert.False(t, tl.RevealResponse("r-missing", "x", false))
}

func TestApplyRejectsStaleEvent(t *testing.T) {
	tl := New("conv-1")
	tl.Rebuild(History{Messages: []models.StoredMessage{userMsg("m1", 0, "hello")}})
	before := tl.Messages()

	stale := reply("r9", "m9", time.Second, "wrong room")
	stale.ConversationID = "conv-0"
	_, err := tl.Apply(stale)

	assert.ErrorIs(t, err, apperrors.ErrStaleEvent)
	assert.Equal(t, before, tl.Messages())
}

func TestApplyDedupesByResponseID(t *testing.T) {
	tl := New("conv-1")
	r := reply("r1", "m1", time.Second, "once")

	_, err := tl.Apply(r)
	require.NoError(t, err)
	_, err = tl.Apply(r)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEvent)
	assert.Equal(t, 1, tl.Len())

	tl2 := New("conv-1")
	tl2.Rebuild(History{Messages: []models.StoredMessage{userMsg("m1", 0, "x")}, Responses: []models.Response{r}})
	_, err = tl2.Apply(r)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEvent, "already present from history")
}

func TestApplyStartsTyping(t *testing.T) {
	tl := New("conv-1")
	idx, err := tl.Apply(reply("r1", "m1", 0, "full text"))
	require.NoError(t, err)

	m := tl.Messages()[idx]
	assert.True(t, m.IsTyping)
	assert.Empty(t, m.Content)
	assert.Equal(t, "full text", m.FullContent)
}

func TestRevealNeverReopensSettledEntry(t *testing.T) {
	tl := New("conv-1")
	idx, err := tl.Apply(reply("r1", "m1", 0, "abc"))
	require.NoError(t, err)

	assert.True(t, tl.Reveal(idx, "a", true))
	assert.True(t, tl.Reveal(idx, "abc", false))
	assert.False(t, tl.Reveal(idx, "ab", true))
	assert.Equal(t, "abc", tl.Messages()[idx].Content)

	assert.False(t, tl.Reveal(5, "x", true))
	u := tl.AppendUser("me")
	assert.False(t, tl.Reveal(u, "x", true))
}

func TestConfirmUser(t *testing.T) {
	tl := New("conv-1")
	idx := tl.AppendUser("hello")
	tl.ConfirmUser(idx, "m1")
	assert.Equal(t, "m1", tl.Messages()[idx].ID)

	tl.Rebuild(History{Messages: []models.StoredMessage{userMsg("m1", 0, "hello")}})
	assert.Equal(t, 1, tl.Len(), "confirmed message is matched by id")
}

func TestMessagesReturnsCopies(t *testing.T) {
	tl := New("conv-1")
	r := reply("r1", "m1", 0, "x")
	r.Sensations = []string{"warm"}
	_, err := tl.Apply(r)
	require.NoError(t, err)

	msgs := tl.Messages()
	msgs[0].Sensations[0] = "changed"
	assert.Equal(t, "warm", tl.Messages()[0].Sensations[0])
}
