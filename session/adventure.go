package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "rpgchat/errors"
	"rpgchat/guard"
	"rpgchat/models"
	"rpgchat/quest"
	"rpgchat/retry"
	"rpgchat/rules"
)

// bind returns ctx narrowed to the lifetime of the active conversation, so
// a switch aborts work started for the previous one.
func (s *Session) bind(ctx context.Context) (context.Context, uint64, string, context.CancelFunc, error) {
	s.mu.Lock()
	convCtx := s.convCtx
	gen := s.gen
	id := s.conversationID
	state := s.state
	s.mu.Unlock()

	if id == "" || state == StateUnselected || convCtx == nil {
		return nil, 0, "", nil, apperrors.New(apperrors.CodeInvalidState, "no conversation selected")
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(convCtx, cancel)
	return ctx, gen, id, func() {
		stop()
		cancel()
	}, nil
}

// currentLocked reports whether gen is still the active conversation. Callers hold mu.
func (s *Session) currentLocked(gen uint64) bool {
	return s.gen == gen && s.state != StateUnselected
}

// EnsureAdventure loads the adventure of the active conversation, creating
// it on first use, together with its quest log. A concurrent attempt for the
// same conversation returns a conflict error.
func (s *Session) EnsureAdventure(ctx context.Context) error {
	ctx, gen, convID, cancel, err := s.bind(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	return s.guard.Do(guard.AdventureKey(convID), func() error {
		adv, err := s.store.FindAdventure(ctx, convID)
		if errors.Is(err, apperrors.ErrNotFound) {
			now := time.Now().UTC()
			adv, err = s.store.CreateAdventure(ctx, models.Adventure{
				ConversationID: convID,
				Title:          "Adventure",
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			if err == nil {
				s.log.Info("Adventure created", zap.String("conversation_id", convID), zap.String("adventure_id", adv.ID))
			}
		}
		if err != nil {
			return apperrors.Wrap(apperrors.CodeTransientBackend, "ensure adventure", err)
		}

		steps, err := s.store.ListQuestSteps(ctx, adv.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeTransientBackend, "list quest steps", err)
		}
		choices, err := s.store.ListPlayerChoices(ctx, adv.ID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeTransientBackend, "list player choices", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.currentLocked(gen) {
			return nil
		}
		s.adventure = &adv
		s.steps = steps
		s.choices = choices
		return nil
	})
}

// EnsureCharacter loads the character of the active conversation. When none
// exists and draft is nil, NeedsCharacter becomes true and (nil, nil) is
// returned; with a draft the sheet is built and created. A concurrent
// attempt for the same conversation returns a conflict error.
func (s *Session) EnsureCharacter(ctx context.Context, draft *models.CharacterDraft) (*models.CharacterSheet, error) {
	ctx, gen, convID, cancel, err := s.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	log := s.log.With(zap.String("conversation_id", convID))
	var out *models.CharacterSheet
	err = s.guard.Do(guard.CharacterKey(convID), func() error {
		sheet, err := s.fetchCharacter(ctx, convID)
		switch {
		case err == nil:
			s.setCharacter(gen, sheet, false)
			out = sheet.Clone()
			return nil
		case !errors.Is(err, apperrors.ErrNotFound):
			return err
		}

		if draft == nil {
			log.Debug("No character yet")
			s.setCharacter(gen, nil, true)
			return nil
		}

		sheet, err = rules.NewCharacterSheet(convID, *draft)
		if err != nil {
			s.setCharacter(gen, nil, true)
			return err
		}
		created, err := s.store.CreateCharacter(ctx, sheet)
		if err != nil {
			log.Warn("Failed to create character", zap.Error(err))
			s.setCharacter(gen, nil, true)
			return apperrors.Wrap(apperrors.CodeTransientBackend, "create character", err)
		}
		log.Info("Character created",
			zap.String("name", created.Name),
			zap.String("race", created.Race),
			zap.String("class", created.Class))
		s.setCharacter(gen, created, false)
		out = created.Clone()
		return nil
	})
	return out, err
}

// fetchCharacter reads the sheet, retrying not-found and transient failures
// to absorb read-after-write lag in the store.
func (s *Session) fetchCharacter(ctx context.Context, convID string) (*models.CharacterSheet, error) {
	policy := s.retry
	policy.OnRetry = func(err error, attempt int, wait time.Duration) {
		s.log.Debug("Retrying character fetch",
			zap.String("conversation_id", convID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	return retry.Do(ctx, policy, func(ctx context.Context) (*models.CharacterSheet, error) {
		sheet, err := s.store.FindCharacter(ctx, convID)
		if err == nil {
			return sheet, nil
		}
		if apperrors.CodeOf(err).Retryable() {
			return nil, err
		}
		return nil, retry.Permanent(err)
	})
}

func (s *Session) setCharacter(gen uint64, sheet *models.CharacterSheet, needs bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return
	}
	s.character = sheet.Clone()
	s.needsCharacter = needs
}

// AddItem puts a catalog item into the character's inventory and persists
// the recomputed sheet.
func (s *Session) AddItem(ctx context.Context, itemID string) (*models.CharacterSheet, error) {
	if _, err := rules.Item(itemID); err != nil {
		return nil, err
	}
	return s.updateCharacter(ctx, func(c *models.CharacterSheet) {
		c.Inventory = append(c.Inventory, itemID)
	})
}

// AddEffect applies a status effect to the character.
func (s *Session) AddEffect(ctx context.Context, effect models.ActiveEffect) (*models.CharacterSheet, error) {
	if effect.Name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "effect name is required")
	}
	switch effect.Duration {
	case models.DurationPermanent:
	case models.DurationTemporary:
		if effect.Remaining < 1 {
			return nil, apperrors.New(apperrors.CodeValidation, "temporary effect needs remaining turns")
		}
	default:
		return nil, apperrors.WithMetadata(apperrors.CodeValidation, fmt.Sprintf("unknown duration %q", effect.Duration),
			map[string]string{"duration": string(effect.Duration)})
	}
	if effect.ID == "" {
		effect.ID = uuid.NewString()
	}
	return s.updateCharacter(ctx, func(c *models.CharacterSheet) {
		c.Effects = append(c.Effects, effect)
	})
}

func (s *Session) updateCharacter(ctx context.Context, change func(*models.CharacterSheet)) (*models.CharacterSheet, error) {
	ctx, gen, convID, cancel, err := s.bind(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var out *models.CharacterSheet
	err = s.guard.Do(guard.CharacterKey(convID), func() error {
		s.mu.Lock()
		sheet := s.character.Clone()
		s.mu.Unlock()
		if sheet == nil {
			return apperrors.New(apperrors.CodeInvalidState, "no character")
		}

		change(sheet)
		if err := rules.Recompute(sheet); err != nil {
			return err
		}
		sheet.UpdatedAt = time.Now().UTC()
		if err := s.store.UpdateCharacter(ctx, sheet); err != nil {
			return apperrors.Wrap(apperrors.CodeTransientBackend, "update character", err)
		}
		s.setCharacter(gen, sheet, false)
		out = sheet.Clone()
		return nil
	})
	return out, err
}

// CharacterContext renders the character block the narrator sees, or "" when
// no character is loaded.
func (s *Session) CharacterContext() (string, error) {
	s.mu.Lock()
	sheet := s.character.Clone()
	s.mu.Unlock()
	if sheet == nil {
		return "", nil
	}
	return rules.FormatForNarrator(sheet)
}

// recordStep turns an assistant reply into a quest step, moves the
// adventure forward and ticks temporary effects.
func (s *Session) recordStep(gen uint64, resp models.Response) {
	ctx, _, convID, cancel, err := s.bind(context.Background())
	if err != nil {
		return
	}
	defer cancel()

	s.mu.Lock()
	if !s.currentLocked(gen) || s.adventure == nil {
		s.mu.Unlock()
		return
	}
	adventureID := s.adventure.ID
	s.mu.Unlock()

	log := s.log.With(zap.String("conversation_id", convID), zap.String("response_id", resp.ID))
	step, err := s.store.CreateQuestStep(ctx, models.QuestStep{
		AdventureID:    adventureID,
		ConversationID: convID,
		ResponseID:     resp.ID,
		Summary:        quest.Summarize(resp.Response),
		Danger:         quest.ClassifyDanger(resp.Response),
		Location:       quest.DetectLocation(resp.Response),
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		log.Warn("Failed to record quest step", zap.Error(err))
		return
	}
	if err := s.store.SetAdventureLastStep(ctx, adventureID, step.ID); err != nil {
		log.Warn("Failed to advance adventure", zap.Error(err))
	}
	log.Debug("Quest step recorded",
		zap.String("step_id", step.ID),
		zap.String("danger", string(step.Danger)),
		zap.String("location", step.Location))

	s.mu.Lock()
	if s.currentLocked(gen) && s.adventure != nil && s.adventure.ID == adventureID {
		s.steps = append(s.steps, step)
		s.adventure.LastStepID = step.ID
	}
	s.mu.Unlock()

	s.tickEffects(ctx, gen, convID)
}

// tickEffects waits for any in-flight sheet change so every reply costs
// temporary effects exactly one turn. The sheet is read under the guard so
// a concurrent AddItem or AddEffect is never overwritten.
func (s *Session) tickEffects(ctx context.Context, gen uint64, convID string) {
	err := s.guard.DoWait(ctx, guard.CharacterKey(convID), func() error {
		s.mu.Lock()
		sheet := s.character.Clone()
		s.mu.Unlock()
		if sheet == nil || len(sheet.Effects) == 0 {
			return nil
		}

		active, expired := rules.TickEffects(sheet.Effects)
		sheet.Effects = active
		if err := rules.Recompute(sheet); err != nil {
			return err
		}
		sheet.UpdatedAt = time.Now().UTC()
		if err := s.store.UpdateCharacter(ctx, sheet); err != nil {
			return err
		}
		for _, e := range expired {
			s.log.Info("Effect expired", zap.String("conversation_id", convID), zap.String("effect", e.Name))
		}
		s.setCharacter(gen, sheet, false)
		return nil
	})
	if err != nil {
		s.log.Warn("Failed to tick effects", zap.String("conversation_id", convID), zap.Error(err))
	}
}
