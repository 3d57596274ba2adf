package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

func TestNewCharacterSheet(t *testing.T) {
	sheet, err := NewCharacterSheet("conv-1", models.CharacterDraft{Name: " Lyra ", Race: "elf", Class: "wizard"})
	require.NoError(t, err)

	assert.Equal(t, "conv-1", sheet.ConversationID)
	assert.Equal(t, "Lyra", sheet.Name)
	assert.Equal(t, 1, sheet.Level)
	assert.Equal(t, []string{"spellbook", "quarterstaff"}, sheet.Inventory)
	assert.Equal(t, 16, sheet.Stats.Intelligence, "spellbook adds +1 INT")
	assert.Equal(t, models.HP{Current: 6, Max: 6}, sheet.HP)
	assert.Equal(t, 12, sheet.ArmorClass)
	require.NotNil(t, sheet.Derived.SpellPower)
	assert.Equal(t, 3, *sheet.Derived.SpellPower)
}

func TestNewCharacterSheetValidation(t *testing.T) {
	cases := []models.CharacterDraft{
		{Name: "", Race: "elf", Class: "wizard"},
		{Name: "Bo", Race: "elf", Class: "necromancer"},
		{Name: "Bo", Race: "ent", Class: "wizard"},
		{Name: "Bo", Race: "elf", Class: "wizard", Inventory: []string{"vorpal-sword"}},
		{Name: "Bo", Race: "elf", Class: "wizard", Level: -1},
	}
	for _, draft := range cases {
		_, err := NewCharacterSheet("conv-1", draft)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "%+v", draft)
	}
}

func TestRecomputeAppliesItemsAndEffects(t *testing.T) {
	sheet, err := NewCharacterSheet("conv-1", models.CharacterDraft{Name: "Brom", Race: "dwarf", Class: "warrior", Level: 2})
	require.NoError(t, err)
	before := sheet.HP.Max

	sheet.Inventory = append(sheet.Inventory, "amulet-of-health")
	sheet.Effects = []models.ActiveEffect{{ID: "e1", Name: "Bless", Modifiers: models.Modifiers{models.Wisdom: 2}, Duration: models.DurationTemporary, Remaining: 2}}
	require.NoError(t, Recompute(sheet))

	base, err := BaseStats("warrior", "dwarf")
	require.NoError(t, err)
	assert.Equal(t, base.Constitution+1+2, sheet.Stats.Constitution)
	assert.Equal(t, base.Wisdom+2, sheet.Stats.Wisdom)
	assert.GreaterOrEqual(t, sheet.HP.Max, before)
	assert.Equal(t, before, sheet.HP.Current, "current HP is not refilled")
}

func TestRecomputeClampsCurrentHP(t *testing.T) {
	sheet, err := NewCharacterSheet("conv-1", models.CharacterDraft{Name: "Pip", Race: "halfling", Class: "rogue", Level: 3})
	require.NoError(t, err)

	sheet.Inventory = append(sheet.Inventory, "cursed-idol")
	sheet.Effects = []models.ActiveEffect{{ID: "plague", Modifiers: models.Modifiers{models.Constitution: -8}, Duration: models.DurationPermanent}}
	require.NoError(t, Recompute(sheet))
	assert.Equal(t, sheet.HP.Max, sheet.HP.Current)
}

func TestTickEffects(t *testing.T) {
	effects := []models.ActiveEffect{
		{ID: "haste", Duration: models.DurationTemporary, Remaining: 1},
		{ID: "bless", Duration: models.DurationTemporary, Remaining: 3},
		{ID: "blessing-of-ages", Duration: models.DurationPermanent},
	}

	active, expired := TickEffects(effects)
	require.Len(t, active, 2)
	assert.Equal(t, "bless", active[0].ID)
	assert.Equal(t, 2, active[0].Remaining)
	assert.Equal(t, "blessing-of-ages", active[1].ID)
	require.Len(t, expired, 1)
	assert.Equal(t, "haste", expired[0].ID)
	assert.Equal(t, 3, effects[1].Remaining, "input slice is not mutated")
}
