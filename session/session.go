// Package session orchestrates the one conversation a client has open: its
// timeline, live replies, typing animation and, in adventure mode, the
// character sheet and quest log.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "rpgchat/errors"
	"rpgchat/guard"
	"rpgchat/models"
	"rpgchat/retry"
	"rpgchat/timeline"
	"rpgchat/typing"
)

// Options configures a Session. Zero values pick the defaults.
type Options struct {
	Mode           models.Mode
	TypingRate     int
	CharacterRetry retry.Policy
	Logger         *zap.Logger
}

// DefaultCharacterRetry covers read-after-write lag in the backing store.
func DefaultCharacterRetry() retry.Policy {
	return retry.Constant(2, time.Second)
}

// Session owns the state of the active conversation. All mutation happens
// under mu; backend, store and scheduler calls are made without it.
type Session struct {
	backend  MessagingBackend
	store    Store
	identity IdentityProvider
	guard    *guard.Guard
	typing   *typing.Scheduler
	retry    retry.Policy
	mode     models.Mode
	log      *zap.Logger

	// ops serializes lifecycle changes (select, delete, close).
	ops sync.Mutex
	bg  sync.WaitGroup

	mu             sync.Mutex
	gen            uint64
	state          State
	conversationID string
	tl             *timeline.Timeline
	waiting        bool
	sub            Subscription
	convCtx        context.Context
	convCancel     context.CancelFunc
	character      *models.CharacterSheet
	needsCharacter bool
	adventure      *models.Adventure
	steps          []models.QuestStep
	choices        []models.PlayerChoice
}

// New returns an unselected session.
func New(backend MessagingBackend, store Store, identity IdentityProvider, opts Options) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	mode := opts.Mode
	if mode == "" {
		mode = models.ModeChat
	}
	policy := opts.CharacterRetry
	if policy.Delay == nil {
		policy = DefaultCharacterRetry()
	}
	log = log.Named("session")
	return &Session{
		backend:  backend,
		store:    store,
		identity: identity,
		guard:    guard.New(),
		typing:   typing.New(opts.TypingRate, log.Named("typing")),
		retry:    policy,
		mode:     mode,
		log:      log,
	}
}

// Mode reports whether the session carries adventure state.
func (s *Session) Mode() models.Mode {
	return s.mode
}

// Select makes conversationID the active conversation: the previous one is
// torn down, the live feed is re-subscribed and the history is merged. In
// adventure mode the adventure and character are ensured in the background.
func (s *Session) Select(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return apperrors.New(apperrors.CodeValidation, "conversation id is required")
	}

	s.ops.Lock()
	defer s.ops.Unlock()

	s.teardown()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.resetLocked()
	s.state = StateLoading
	s.conversationID = conversationID
	s.tl = timeline.New(conversationID)
	s.convCtx, s.convCancel = context.WithCancel(context.Background())
	convCtx := s.convCtx
	s.mu.Unlock()

	log := s.log.With(zap.String("conversation_id", conversationID))
	log.Debug("Loading conversation")

	sub, err := s.backend.SubscribeResponses(ctx, s.HandleResponse)
	if err != nil {
		s.abortLoad(gen)
		return apperrors.Wrap(apperrors.CodeTransientBackend, "subscribe responses", err)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()

	history, err := s.fetchHistory(ctx, conversationID)
	if err != nil {
		log.Warn("Failed to fetch history", zap.Error(err))
		s.abortLoad(gen)
		return err
	}

	s.mu.Lock()
	s.waiting = s.tl.Rebuild(history)
	s.state = StateReady
	waiting := s.waiting
	s.mu.Unlock()

	log.Info("Conversation ready",
		zap.Int("messages", len(history.Messages)),
		zap.Int("responses", len(history.Responses)),
		zap.Bool("waiting", waiting))

	if s.mode == models.ModeAdventure {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			s.prepareAdventure(convCtx)
		}()
	}
	return nil
}

func (s *Session) fetchHistory(ctx context.Context, conversationID string) (timeline.History, error) {
	var h timeline.History
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		msgs, err := s.backend.ListMessages(gctx, conversationID)
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		h.Messages = msgs
		return nil
	})
	g.Go(func() error {
		resps, err := s.backend.ListResponses(gctx, conversationID)
		if err != nil {
			return fmt.Errorf("list responses: %w", err)
		}
		h.Responses = resps
		return nil
	})
	if err := g.Wait(); err != nil {
		return timeline.History{}, apperrors.Wrap(apperrors.CodeTransientBackend, "fetch history", err)
	}
	return h, nil
}

// prepareAdventure runs the ensure flows after a conversation becomes ready.
// Failures leave the chat usable without a character panel.
func (s *Session) prepareAdventure(ctx context.Context) {
	if err := s.EnsureAdventure(ctx); err != nil {
		s.log.Warn("Failed to ensure adventure", zap.Error(err))
	}
	if _, err := s.EnsureCharacter(ctx, nil); err != nil {
		s.log.Warn("Failed to ensure character", zap.Error(err))
	}
}

// abortLoad returns a failed Select to the unselected state.
func (s *Session) abortLoad(gen uint64) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.teardown()
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
}

// teardown releases everything tied to the active conversation: the typing
// reveal, ensure flows (their guards are released as they unwind) and the
// live subscription. Callers must not hold mu.
func (s *Session) teardown() {
	s.mu.Lock()
	cancel := s.convCancel
	sub := s.sub
	s.convCancel = nil
	s.sub = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	s.typing.Stop()
	s.bg.Wait()
}

func (s *Session) resetLocked() {
	s.state = StateUnselected
	s.conversationID = ""
	s.tl = nil
	s.waiting = false
	s.convCtx = nil
	s.character = nil
	s.needsCharacter = false
	s.adventure = nil
	s.steps = nil
	s.choices = nil
}

// Delete removes the active conversation and returns to unselected.
func (s *Session) Delete(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	id := s.conversationID
	s.mu.Unlock()
	if id == "" {
		return apperrors.New(apperrors.CodeInvalidState, "no conversation selected")
	}

	if err := s.store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	s.teardown()
	s.mu.Lock()
	s.gen++
	s.resetLocked()
	s.mu.Unlock()
	s.log.Info("Conversation deleted", zap.String("conversation_id", id))
	return nil
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.teardown()
	s.mu.Lock()
	s.gen++
	s.resetLocked()
	s.mu.Unlock()
}

// State returns the lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConversationID returns the active conversation, or "".
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Messages returns a copy of the timeline.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tl == nil {
		return nil
	}
	return s.tl.Messages()
}

// Waiting reports whether a reply is expected.
func (s *Session) Waiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

// Character returns a copy of the character sheet, or nil.
func (s *Session) Character() *models.CharacterSheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.character.Clone()
}

// NeedsCharacter reports that no character exists and the creation prompt
// should be shown.
func (s *Session) NeedsCharacter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsCharacter
}

// Adventure returns a copy of the adventure record, or nil.
func (s *Session) Adventure() *models.Adventure {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adventure == nil {
		return nil
	}
	a := *s.adventure
	return &a
}

// QuestSteps returns the quest log in creation order.
func (s *Session) QuestSteps() []models.QuestStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.QuestStep(nil), s.steps...)
}

// Choices returns the recorded player choices in creation order.
func (s *Session) Choices() []models.PlayerChoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PlayerChoice(nil), s.choices...)
}

// WaitTyping blocks until the current reveal settles.
func (s *Session) WaitTyping() {
	s.typing.Wait()
}

// WaitBackground blocks until background ensure flows finish.
func (s *Session) WaitBackground() {
	s.ops.Lock()
	defer s.ops.Unlock()
	s.bg.Wait()
}

// active returns the current generation and conversation, failing when none
// is selected.
func (s *Session) active() (uint64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID == "" || s.state == StateUnselected {
		return 0, "", apperrors.New(apperrors.CodeInvalidState, "no conversation selected")
	}
	return s.gen, s.conversationID, nil
}
