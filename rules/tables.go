package rules

import "rpgchat/models"

// RaceDefinition is a playable race and its base scores.
type RaceDefinition struct {
	ID     string
	Name   string
	Base   models.Stats
	Traits []string
}

// ClassDefinition is a playable class and its base scores.
type ClassDefinition struct {
	ID            string
	Name          string
	Base          models.Stats
	HitDie        int
	Primary       models.Attribute
	Skills        []string
	StartingItems []string
}

// ItemDefinition is an equippable item. Its modifiers apply while it is in
// the inventory.
type ItemDefinition struct {
	ID          string
	Name        string
	Description string
	Modifiers   models.Modifiers
}

var races = map[string]RaceDefinition{
	"human": {
		ID:     "human",
		Name:   "Human",
		Base:   models.Stats{Strength: 11, Dexterity: 11, Constitution: 11, Intelligence: 11, Wisdom: 11, Charisma: 11},
		Traits: []string{"Versatile", "Ambitious"},
	},
	"elf": {
		ID:     "elf",
		Name:   "Elf",
		Base:   models.Stats{Strength: 10, Dexterity: 15, Constitution: 9, Intelligence: 13, Wisdom: 12, Charisma: 11},
		Traits: []string{"Darkvision", "Keen Senses", "Trance"},
	},
	"dwarf": {
		ID:     "dwarf",
		Name:   "Dwarf",
		Base:   models.Stats{Strength: 13, Dexterity: 9, Constitution: 16, Intelligence: 10, Wisdom: 12, Charisma: 8},
		Traits: []string{"Darkvision", "Stonecunning", "Poison Resistance"},
	},
	"halfling": {
		ID:     "halfling",
		Name:   "Halfling",
		Base:   models.Stats{Strength: 8, Dexterity: 15, Constitution: 11, Intelligence: 10, Wisdom: 12, Charisma: 13},
		Traits: []string{"Lucky", "Brave", "Nimble"},
	},
	"orc": {
		ID:     "orc",
		Name:   "Orc",
		Base:   models.Stats{Strength: 17, Dexterity: 10, Constitution: 14, Intelligence: 7, Wisdom: 9, Charisma: 8},
		Traits: []string{"Relentless Endurance", "Menacing"},
	},
	"gnome": {
		ID:     "gnome",
		Name:   "Gnome",
		Base:   models.Stats{Strength: 8, Dexterity: 12, Constitution: 11, Intelligence: 15, Wisdom: 10, Charisma: 12},
		Traits: []string{"Gnome Cunning", "Tinker"},
	},
}

var classes = map[string]ClassDefinition{
	"warrior": {
		ID:            "warrior",
		Name:          "Warrior",
		Base:          models.Stats{Strength: 16, Dexterity: 12, Constitution: 15, Intelligence: 8, Wisdom: 10, Charisma: 10},
		HitDie:        10,
		Primary:       models.Strength,
		Skills:        []string{"Athletics", "Intimidation"},
		StartingItems: []string{"longsword", "chain-mail"},
	},
	"wizard": {
		ID:            "wizard",
		Name:          "Wizard",
		Base:          models.Stats{Strength: 8, Dexterity: 12, Constitution: 10, Intelligence: 16, Wisdom: 13, Charisma: 10},
		HitDie:        6,
		Primary:       models.Intelligence,
		Skills:        []string{"Arcana", "History"},
		StartingItems: []string{"spellbook", "quarterstaff"},
	},
	"rogue": {
		ID:            "rogue",
		Name:          "Rogue",
		Base:          models.Stats{Strength: 10, Dexterity: 16, Constitution: 12, Intelligence: 12, Wisdom: 10, Charisma: 12},
		HitDie:        8,
		Primary:       models.Dexterity,
		Skills:        []string{"Stealth", "Sleight of Hand"},
		StartingItems: []string{"dagger", "leather-armor", "thieves-tools"},
	},
	"cleric": {
		ID:            "cleric",
		Name:          "Cleric",
		Base:          models.Stats{Strength: 12, Dexterity: 10, Constitution: 13, Intelligence: 10, Wisdom: 16, Charisma: 12},
		HitDie:        8,
		Primary:       models.Wisdom,
		Skills:        []string{"Medicine", "Religion"},
		StartingItems: []string{"mace", "holy-symbol"},
	},
	"ranger": {
		ID:            "ranger",
		Name:          "Ranger",
		Base:          models.Stats{Strength: 12, Dexterity: 15, Constitution: 13, Intelligence: 10, Wisdom: 14, Charisma: 8},
		HitDie:        10,
		Primary:       models.Dexterity,
		Skills:        []string{"Survival", "Nature"},
		StartingItems: []string{"longbow", "leather-armor"},
	},
	"bard": {
		ID:            "bard",
		Name:          "Bard",
		Base:          models.Stats{Strength: 8, Dexterity: 14, Constitution: 12, Intelligence: 12, Wisdom: 10, Charisma: 16},
		HitDie:        8,
		Primary:       models.Charisma,
		Skills:        []string{"Performance", "Persuasion"},
		StartingItems: []string{"silver-lute", "dagger"},
	},
}

var items = map[string]ItemDefinition{
	"longsword":         {ID: "longsword", Name: "Longsword", Description: "A versatile steel blade.", Modifiers: models.Modifiers{models.Strength: 1}},
	"chain-mail":        {ID: "chain-mail", Name: "Chain Mail", Description: "Heavy interlocking rings.", Modifiers: models.Modifiers{models.Constitution: 1, models.Dexterity: -1}},
	"spellbook":         {ID: "spellbook", Name: "Spellbook", Description: "Pages of arcane formulae.", Modifiers: models.Modifiers{models.Intelligence: 1}},
	"quarterstaff":      {ID: "quarterstaff", Name: "Quarterstaff", Description: "A sturdy walking staff."},
	"dagger":            {ID: "dagger", Name: "Dagger", Description: "A short, easily hidden blade.", Modifiers: models.Modifiers{models.Dexterity: 1}},
	"leather-armor":     {ID: "leather-armor", Name: "Leather Armor", Description: "Supple cured leather.", Modifiers: models.Modifiers{models.Dexterity: 1}},
	"thieves-tools":     {ID: "thieves-tools", Name: "Thieves' Tools", Description: "Picks and files for locks."},
	"mace":              {ID: "mace", Name: "Mace", Description: "A flanged iron club.", Modifiers: models.Modifiers{models.Strength: 1}},
	"holy-symbol":       {ID: "holy-symbol", Name: "Holy Symbol", Description: "An emblem of faith.", Modifiers: models.Modifiers{models.Wisdom: 1}},
	"longbow":           {ID: "longbow", Name: "Longbow", Description: "A tall yew bow.", Modifiers: models.Modifiers{models.Dexterity: 1}},
	"silver-lute":       {ID: "silver-lute", Name: "Silver Lute", Description: "An instrument of fine make.", Modifiers: models.Modifiers{models.Charisma: 1}},
	"amulet-of-health":  {ID: "amulet-of-health", Name: "Amulet of Health", Description: "A red gem on a chain.", Modifiers: models.Modifiers{models.Constitution: 2}},
	"ring-of-intellect": {ID: "ring-of-intellect", Name: "Ring of Intellect", Description: "A band etched with runes.", Modifiers: models.Modifiers{models.Intelligence: 2}},
	"cursed-idol":       {ID: "cursed-idol", Name: "Cursed Idol", Description: "It whispers at night.", Modifiers: models.Modifiers{models.Wisdom: -2, models.Charisma: -1}},
	"rations":           {ID: "rations", Name: "Rations", Description: "Dried meat and hard bread."},
	"torch":             {ID: "torch", Name: "Torch", Description: "Burns for about an hour."},
}
