package models

import "time"

// Attribute names one of the six core ability scores.
type Attribute string

const (
	Strength     Attribute = "strength"
	Dexterity    Attribute = "dexterity"
	Constitution Attribute = "constitution"
	Intelligence Attribute = "intelligence"
	Wisdom       Attribute = "wisdom"
	Charisma     Attribute = "charisma"
)

// Attributes lists the six abilities in display order.
var Attributes = []Attribute{Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma}

// Stats holds the six core ability scores.
type Stats struct {
	Strength     int `bson:"strength" json:"strength"`
	Dexterity    int `bson:"dexterity" json:"dexterity"`
	Constitution int `bson:"constitution" json:"constitution"`
	Intelligence int `bson:"intelligence" json:"intelligence"`
	Wisdom       int `bson:"wisdom" json:"wisdom"`
	Charisma     int `bson:"charisma" json:"charisma"`
}

// Get returns the score for attr; unknown attributes read as zero.
func (s Stats) Get(attr Attribute) int {
	switch attr {
	case Strength:
		return s.Strength
	case Dexterity:
		return s.Dexterity
	case Constitution:
		return s.Constitution
	case Intelligence:
		return s.Intelligence
	case Wisdom:
		return s.Wisdom
	case Charisma:
		return s.Charisma
	}
	return 0
}

// With returns a copy of s with attr set to v.
func (s Stats) With(attr Attribute, v int) Stats {
	switch attr {
	case Strength:
		s.Strength = v
	case Dexterity:
		s.Dexterity = v
	case Constitution:
		s.Constitution = v
	case Intelligence:
		s.Intelligence = v
	case Wisdom:
		s.Wisdom = v
	case Charisma:
		s.Charisma = v
	}
	return s
}

// Modifiers is a partial stat block; absent attributes are untouched.
type Modifiers map[Attribute]int

// DerivedStats are the combat values computed from stats, class and level.
type DerivedStats struct {
	MaxHP      int  `bson:"max_hp" json:"max_hp"`
	ArmorClass int  `bson:"armor_class" json:"armor_class"`
	Initiative int  `bson:"initiative" json:"initiative"`
	SpellPower *int `bson:"spell_power,omitempty" json:"spell_power,omitempty"`
}

// Duration classifies how long an effect lasts.
type Duration string

const (
	DurationPermanent Duration = "permanent"
	DurationTemporary Duration = "temporary"
)

// ActiveEffect is a session-scoped modifier on a character.
// Remaining counts turns left for temporary effects.
type ActiveEffect struct {
	ID        string    `bson:"id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Modifiers Modifiers `bson:"modifiers" json:"modifiers"`
	Duration  Duration  `bson:"duration" json:"duration"`
	Remaining int       `bson:"remaining,omitempty" json:"remaining,omitempty"`
}

// HP tracks current and maximum hit points.
type HP struct {
	Current int `bson:"current" json:"current"`
	Max     int `bson:"max" json:"max"`
}

// CharacterSheet is the player character of one conversation.
type CharacterSheet struct {
	ID             string         `bson:"_id" json:"id"`
	ConversationID string         `bson:"conversation_id" json:"conversation_id"`
	Name           string         `bson:"name" json:"name"`
	Race           string         `bson:"race" json:"race"`
	Class          string         `bson:"class" json:"class"`
	Level          int            `bson:"level" json:"level"`
	Stats          Stats          `bson:"stats" json:"stats"`
	Derived        DerivedStats   `bson:"derived" json:"derived"`
	HP             HP             `bson:"hp" json:"hp"`
	ArmorClass     int            `bson:"armor_class" json:"armor_class"`
	Inventory      []string       `bson:"inventory" json:"inventory"`
	Effects        []ActiveEffect `bson:"effects,omitempty" json:"effects,omitempty"`
	CreatedAt      time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy of the sheet.
func (c *CharacterSheet) Clone() *CharacterSheet {
	if c == nil {
		return nil
	}
	out := *c
	out.Inventory = append([]string(nil), c.Inventory...)
	if c.Effects != nil {
		out.Effects = make([]ActiveEffect, len(c.Effects))
		for i, e := range c.Effects {
			mods := make(Modifiers, len(e.Modifiers))
			for k, v := range e.Modifiers {
				mods[k] = v
			}
			e.Modifiers = mods
			out.Effects[i] = e
		}
	}
	if c.Derived.SpellPower != nil {
		sp := *c.Derived.SpellPower
		out.Derived.SpellPower = &sp
	}
	return &out
}

// CharacterDraft is the input of the character-creation flow.
type CharacterDraft struct {
	Name      string   `json:"name"`
	Race      string   `json:"race"`
	Class     string   `json:"class"`
	Level     int      `json:"level,omitempty"`
	Inventory []string `json:"inventory,omitempty"`
}
