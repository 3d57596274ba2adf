package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"rpgchat/backend"
	"rpgchat/db/memory"
	"rpgchat/handlers"
	"rpgchat/models"
	"rpgchat/registry"
	"rpgchat/retry"
	"rpgchat/session"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose init starts a stats worker.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type cannedGenerator struct{ text string }

func (g cannedGenerator) Generate(ctx context.Context, req backend.Request) (string, error) {
	return g.text, nil
}

type testServer struct {
	http.Handler
	backend  *backend.Service
	sessions *registry.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	svc := backend.New(store, cannedGenerator{`{"response":"The tavern is warm."}`}, backend.Options{Logger: zaptest.NewLogger(t)})
	identity := session.StaticIdentity("player-1")
	reg := registry.New(func(mode models.Mode) *session.Session {
		return session.New(svc, store, identity, session.Options{
			Mode:           mode,
			TypingRate:     1000,
			CharacterRetry: retry.Constant(1, time.Millisecond),
			Logger:         zaptest.NewLogger(t),
		})
	})
	t.Cleanup(func() {
		reg.Close()
		svc.Close()
	})

	h := handlers.New(reg, store, identity, zaptest.NewLogger(t))
	return &testServer{Handler: h.Routes(), backend: svc, sessions: reg}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

// settle waits for replies, typing and background adventure work.
func (s *testServer) settle(t *testing.T, id string) {
	t.Helper()
	sess, ok := s.sessions.Get(id)
	require.True(t, ok)
	s.backend.Wait()
	sess.WaitTyping()
	sess.WaitBackground()
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), w.Body.String())
	return out
}

func (s *testServer) spawn(t *testing.T, mode models.Mode) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/sessions", handlers.CreateSessionRequest{Mode: mode})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[handlers.SessionResponse](t, w).SessionID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateSessionRejectsUnknownMode(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodPost, "/sessions", map[string]string{"mode": "arcade"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decodeBody[map[string]any](t, w)["code"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodGet, "/message", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodGet, "/timeline?session_id=session-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessageAndReadTimeline(t *testing.T) {
	srv := newTestServer(t)
	id := srv.spawn(t, models.ModeChat)

	w := srv.do(t, http.MethodPost, "/message", handlers.MessageRequest{SessionID: id, Message: "I enter the tavern"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	sent := decodeBody[handlers.TimelineResponse](t, w)
	assert.NotEmpty(t, sent.ConversationID)
	require.NotEmpty(t, sent.Messages)
	assert.Equal(t, models.RoleUser, sent.Messages[0].Role)

	srv.settle(t, id)

	w = srv.do(t, http.MethodGet, "/timeline?session_id="+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tl := decodeBody[handlers.TimelineResponse](t, w)
	assert.Equal(t, "ready", tl.State)
	assert.False(t, tl.Waiting)
	require.Len(t, tl.Messages, 2)
	assert.Equal(t, models.RoleAssistant, tl.Messages[1].Role)
	assert.Equal(t, "The tavern is warm.", tl.Messages[1].Content)
	assert.False(t, tl.Messages[1].IsTyping)

	w = srv.do(t, http.MethodGet, "/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	convs := decodeBody[[]models.Conversation](t, w)
	require.Len(t, convs, 1)
	assert.Equal(t, "I enter the tavern", convs[0].Title)
}

func TestSendEmptyMessage(t *testing.T) {
	srv := newTestServer(t)
	id := srv.spawn(t, models.ModeChat)

	w := srv.do(t, http.MethodPost, "/message", handlers.MessageRequest{SessionID: id, Message: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteWithoutConversation(t *testing.T) {
	srv := newTestServer(t)
	id := srv.spawn(t, models.ModeChat)

	w := srv.do(t, http.MethodPost, "/conversation/delete", handlers.SessionRequest{SessionID: id})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", decodeBody[map[string]any](t, w)["code"])
}

func TestCharacterFlow(t *testing.T) {
	srv := newTestServer(t)
	id := srv.spawn(t, models.ModeAdventure)

	w := srv.do(t, http.MethodPost, "/message", handlers.MessageRequest{SessionID: id, Message: "I wake up in a cave"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	srv.settle(t, id)

	tl := decodeBody[handlers.TimelineResponse](t, srv.do(t, http.MethodGet, "/timeline?session_id="+id, nil))
	assert.True(t, tl.NeedsCharacter)
	assert.Nil(t, tl.Character)
	require.NotNil(t, tl.Adventure)

	w = srv.do(t, http.MethodPost, "/character", handlers.CharacterRequest{
		SessionID:      id,
		CharacterDraft: models.CharacterDraft{Name: "Lyra", Race: "elf", Class: "wizard"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sheet := decodeBody[models.CharacterSheet](t, w)
	assert.Equal(t, "Lyra", sheet.Name)
	con := sheet.Stats.Constitution

	w = srv.do(t, http.MethodPost, "/character/items", handlers.ItemRequest{SessionID: id, ItemID: "amulet-of-health"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, con+2, decodeBody[models.CharacterSheet](t, w).Stats.Constitution)

	w = srv.do(t, http.MethodPost, "/character/items", handlers.ItemRequest{SessionID: id, ItemID: "vorpal-spoon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, "/character/effects", handlers.EffectRequest{
		SessionID: id,
		Effect: models.ActiveEffect{
			Name:      "Bless",
			Modifiers: models.Modifiers{models.Wisdom: 1},
			Duration:  models.DurationTemporary,
			Remaining: 2,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeBody[models.CharacterSheet](t, w).Effects, 1)

	tl = decodeBody[handlers.TimelineResponse](t, srv.do(t, http.MethodGet, "/timeline?session_id="+id, nil))
	assert.False(t, tl.NeedsCharacter)
	require.NotNil(t, tl.Character)
	assert.Contains(t, tl.Character.Inventory, "amulet-of-health")
}

func TestRulesCatalog(t *testing.T) {
	srv := newTestServer(t)
	w := srv.do(t, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)

	cat := decodeBody[handlers.RulesResponse](t, w)
	assert.Contains(t, cat.Races, handlers.CatalogEntry{ID: "elf", Name: "Elf"})
	assert.NotEmpty(t, cat.Classes)
	assert.NotEmpty(t, cat.Items)
}

func TestCloseSession(t *testing.T) {
	srv := newTestServer(t)
	id := srv.spawn(t, models.ModeChat)

	w := srv.do(t, http.MethodPost, "/sessions/close", handlers.SessionRequest{SessionID: id})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, srv.sessions.Len())

	w = srv.do(t, http.MethodPost, "/sessions/close", handlers.SessionRequest{SessionID: id})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
