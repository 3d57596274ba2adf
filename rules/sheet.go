package rules

import (
	"strings"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

// NewCharacterSheet validates a draft and computes a fresh sheet at full HP.
// An empty inventory falls back to the class starting items.
func NewCharacterSheet(conversationID string, draft models.CharacterDraft) (*models.CharacterSheet, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "character name is required")
	}
	class, err := Class(draft.Class)
	if err != nil {
		return nil, err
	}
	if _, err := Race(draft.Race); err != nil {
		return nil, err
	}

	level := draft.Level
	if level == 0 {
		level = 1
	}
	inventory := draft.Inventory
	if len(inventory) == 0 {
		inventory = class.StartingItems
	}

	sheet := &models.CharacterSheet{
		ConversationID: conversationID,
		Name:           name,
		Race:           draft.Race,
		Class:          draft.Class,
		Level:          level,
		Inventory:      append([]string(nil), inventory...),
	}
	if err := Recompute(sheet); err != nil {
		return nil, err
	}
	sheet.HP.Current = sheet.HP.Max
	return sheet, nil
}

// Recompute rebuilds stats, derived values and armor class from the sheet's
// race, class, level, inventory and active effects. Current HP is clamped to
// the new maximum.
func Recompute(sheet *models.CharacterSheet) error {
	base, err := BaseStats(sheet.Class, sheet.Race)
	if err != nil {
		return err
	}

	mods := make([]models.Modifiers, 0, len(sheet.Inventory)+len(sheet.Effects))
	for _, id := range sheet.Inventory {
		item, err := Item(id)
		if err != nil {
			return err
		}
		mods = append(mods, item.Modifiers)
	}
	for _, effect := range sheet.Effects {
		mods = append(mods, effect.Modifiers)
	}

	stats := ApplyModifiers(base, mods...)
	derived, err := Derive(stats, sheet.Class, sheet.Level)
	if err != nil {
		return err
	}

	sheet.Stats = stats
	sheet.Derived = derived
	sheet.ArmorClass = derived.ArmorClass
	sheet.HP.Max = derived.MaxHP
	if sheet.HP.Current > sheet.HP.Max {
		sheet.HP.Current = sheet.HP.Max
	}
	return nil
}

// TickEffects advances temporary effects by one turn. Effects whose counter
// reaches zero are returned as expired; permanent effects are kept as is.
func TickEffects(effects []models.ActiveEffect) (active, expired []models.ActiveEffect) {
	for _, e := range effects {
		if e.Duration != models.DurationTemporary {
			active = append(active, e)
			continue
		}
		e.Remaining--
		if e.Remaining <= 0 {
			expired = append(expired, e)
			continue
		}
		active = append(active, e)
	}
	return active, expired
}
