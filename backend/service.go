// Package backend is the messaging backend: it persists user messages,
// generates narrator replies and pushes them to live subscribers.
package backend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "rpgchat/errors"
	"rpgchat/models"
	"rpgchat/prompts"
	"rpgchat/retry"
	"rpgchat/rules"
	"rpgchat/session"
	"rpgchat/timeline"
)

// History is the storage the backend reads context from and writes replies to.
type History interface {
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	SaveMessage(ctx context.Context, m models.StoredMessage) (models.StoredMessage, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error)
	SaveResponse(ctx context.Context, r models.Response) (models.Response, error)
	ListResponses(ctx context.Context, conversationID string) ([]models.Response, error)
	FindCharacter(ctx context.Context, conversationID string) (*models.CharacterSheet, error)
	FindAdventure(ctx context.Context, conversationID string) (models.Adventure, error)
	ListQuestSteps(ctx context.Context, adventureID string) ([]models.QuestStep, error)
}

// Options tunes a Service. Zero values pick the defaults.
type Options struct {
	// ReplyTimeout bounds one generate-and-save cycle.
	ReplyTimeout time.Duration
	// MaxTurns caps how much history is sent to the model.
	MaxTurns int
	// SaveRetry covers transient write failures when storing a reply.
	SaveRetry retry.Policy
	Logger    *zap.Logger
}

const (
	defaultReplyTimeout = 60 * time.Second
	defaultMaxTurns     = 40
)

// Service implements session.MessagingBackend. Replies are generated on a
// background goroutine per message; a nil Generator disables them, leaving
// Publish as the only source of replies.
type Service struct {
	history History
	gen     Generator
	feed    *Feed
	opts    Options
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ session.MessagingBackend = (*Service)(nil)

// New returns a service storing into history and replying with gen.
func New(history History, gen Generator, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = defaultReplyTimeout
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = defaultMaxTurns
	}
	if opts.SaveRetry.Delay == nil {
		opts.SaveRetry = retry.Policy{
			MaxRetries: 2,
			Delay:      func(attempt int) time.Duration { return time.Duration(attempt) * 100 * time.Millisecond },
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		history: history,
		gen:     gen,
		feed:    NewFeed(),
		opts:    opts,
		log:     opts.Logger.Named("backend"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// CreateMessage stores a user message and schedules the reply.
func (s *Service) CreateMessage(ctx context.Context, conversationID, content string) (models.StoredMessage, error) {
	if strings.TrimSpace(content) == "" {
		return models.StoredMessage{}, apperrors.New(apperrors.CodeValidation, "message is empty")
	}
	msg, err := s.history.SaveMessage(ctx, models.StoredMessage{
		ConversationID: conversationID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return models.StoredMessage{}, err
	}

	if s.gen != nil || s.canRecall(ctx, conversationID, content) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.respond(msg)
		}()
	}
	return msg, nil
}

func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	return s.history.ListMessages(ctx, conversationID)
}

func (s *Service) ListResponses(ctx context.Context, conversationID string) ([]models.Response, error) {
	return s.history.ListResponses(ctx, conversationID)
}

func (s *Service) SubscribeResponses(ctx context.Context, handler func(models.Response)) (session.Subscription, error) {
	if handler == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "handler is required")
	}
	return s.feed.Subscribe(handler), nil
}

// Publish pushes resp to every live subscriber.
func (s *Service) Publish(resp models.Response) {
	s.feed.Publish(resp)
}

// Subscribers is the number of live subscriptions.
func (s *Service) Subscribers() int {
	return s.feed.Subscribers()
}

// Close stops pending replies and waits for them to exit.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every scheduled reply has been published.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) canRecall(ctx context.Context, conversationID, content string) bool {
	if len(rules.RequestedFields(content)) == 0 {
		return false
	}
	_, err := s.history.FindCharacter(ctx, conversationID)
	return err == nil
}

func (s *Service) respond(msg models.StoredMessage) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.ReplyTimeout)
	defer cancel()

	log := s.log.With(zap.String("conversation_id", msg.ConversationID), zap.String("message_id", msg.ID))
	reply, err := s.Reply(ctx, msg)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		log.Error("Failed to generate reply", zap.Error(err))
		reply = FallbackReply()
	}

	resp, err := retry.Do(ctx, s.opts.SaveRetry, func(ctx context.Context) (models.Response, error) {
		return s.history.SaveResponse(ctx, models.Response{
			ConversationID: msg.ConversationID,
			MessageID:      msg.ID,
			Response:       reply.Response,
			Sensations:     reply.Sensations,
			Thoughts:       reply.Thoughts,
			Memories:       reply.Memories,
			SelfReflection: reply.SelfReflection,
			CreatedAt:      time.Now().UTC(),
		})
	})
	if err != nil {
		log.Error("Failed to save reply", zap.Error(err))
		return
	}
	log.Debug("Reply ready", zap.String("response_id", resp.ID))
	s.feed.Publish(resp)
}

// Reply produces the narrator's answer to msg. Questions about the player's
// own sheet are answered from the sheet without calling the model.
func (s *Service) Reply(ctx context.Context, msg models.StoredMessage) (Reply, error) {
	sheet, err := s.history.FindCharacter(ctx, msg.ConversationID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return Reply{}, err
	}

	if sheet != nil {
		if fields := rules.RequestedFields(msg.Content); len(fields) > 0 {
			text, err := rules.RecallFacts(sheet, fields)
			if err != nil {
				return Reply{}, err
			}
			return Reply{Response: text}, nil
		}
	}

	if s.gen == nil {
		return Reply{}, apperrors.New(apperrors.CodeInvalidState, "no generator configured")
	}

	req, err := s.buildRequest(ctx, msg.ConversationID, sheet)
	if err != nil {
		return Reply{}, err
	}
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		return Reply{}, apperrors.Wrap(apperrors.CodeTransientBackend, "generate reply", err)
	}
	reply, ok := ParseReply(raw)
	if !ok {
		s.log.Warn("Model did not return the reply format", zap.String("conversation_id", msg.ConversationID))
	}
	return reply, nil
}

func (s *Service) buildRequest(ctx context.Context, conversationID string, sheet *models.CharacterSheet) (Request, error) {
	conv, err := s.history.GetConversation(ctx, conversationID)
	if err != nil {
		return Request{}, err
	}
	persona := prompts.ForMode(conv.Mode)

	in := prompts.NarratorInput{Persona: persona}
	if sheet != nil {
		block, err := rules.FormatForNarrator(sheet)
		if err != nil {
			return Request{}, err
		}
		in.Character = block
	}
	if conv.Mode == models.ModeAdventure {
		in.LastStep = s.lastStep(ctx, conversationID)
	}

	msgs, err := s.history.ListMessages(ctx, conversationID)
	if err != nil {
		return Request{}, err
	}
	resps, err := s.history.ListResponses(ctx, conversationID)
	if err != nil {
		return Request{}, err
	}
	merged := timeline.Merge(timeline.History{Messages: msgs, Responses: resps}).Messages
	if len(merged) > s.opts.MaxTurns {
		merged = merged[len(merged)-s.opts.MaxTurns:]
	}
	turns := make([]Turn, 0, len(merged))
	for _, m := range merged {
		turns = append(turns, Turn{Role: m.Role, Text: m.FullContent})
	}

	return Request{
		System:      prompts.SystemPrompt(in),
		Turns:       turns,
		Temperature: persona.Temperature,
		TopP:        persona.TopP,
	}, nil
}

func (s *Service) lastStep(ctx context.Context, conversationID string) *models.QuestStep {
	adv, err := s.history.FindAdventure(ctx, conversationID)
	if err != nil {
		return nil
	}
	steps, err := s.history.ListQuestSteps(ctx, adv.ID)
	if err != nil || len(steps) == 0 {
		return nil
	}
	step := steps[len(steps)-1]
	return &step
}
