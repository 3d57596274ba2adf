package rules

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rpgchat/models"
)

var titleCaser = cases.Title(language.English)

// FormatForNarrator renders the character block sent to the AI narrator as
// context. The layout is stable so replies can rely on it.
func FormatForNarrator(sheet *models.CharacterSheet) (string, error) {
	race, err := Race(sheet.Race)
	if err != nil {
		return "", err
	}
	class, err := Class(sheet.Class)
	if err != nil {
		return "", err
	}
	inventory, err := inventoryNames(sheet.Inventory)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("=== PLAYER CHARACTER ===\n")
	fmt.Fprintf(&b, "Name: %s\n", sheet.Name)
	fmt.Fprintf(&b, "Race: %s\n", race.Name)
	fmt.Fprintf(&b, "Class: %s\n", class.Name)
	fmt.Fprintf(&b, "Level: %d\n", sheet.Level)
	b.WriteString("\nSTATS:\n")
	for _, attr := range models.Attributes {
		score := sheet.Stats.Get(attr)
		fmt.Fprintf(&b, "  %s: %d (%s)\n", titleCaser.String(string(attr)), score, signed(Modifier(score)))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "HP: %d/%d\n", sheet.HP.Current, sheet.HP.Max)
	fmt.Fprintf(&b, "Armor Class: %d\n", sheet.Derived.ArmorClass)
	fmt.Fprintf(&b, "Initiative: %s\n", signed(sheet.Derived.Initiative))
	if sheet.Derived.SpellPower != nil {
		fmt.Fprintf(&b, "Spell Power: %s\n", signed(*sheet.Derived.SpellPower))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "INVENTORY: %s\n", joinOrEmpty(inventory))
	b.WriteString("========================")
	return b.String(), nil
}

// Field names one piece of the character sheet the player can ask about.
type Field string

const (
	FieldName       Field = "name"
	FieldRace       Field = "race"
	FieldClass      Field = "class"
	FieldLevel      Field = "level"
	FieldStats      Field = "stats"
	FieldHP         Field = "hp"
	FieldArmorClass Field = "armor_class"
	FieldInventory  Field = "inventory"
)

var allFields = []Field{FieldName, FieldRace, FieldClass, FieldLevel, FieldStats, FieldHP, FieldArmorClass, FieldInventory}

var questionRe = regexp.MustCompile(`\b(what|who|tell|remind|show|list|do you know|can you)\b`)

var wholeSheetRe = regexp.MustCompile(`\b(character sheet|my character)\b`)

var fieldPatterns = []struct {
	field Field
	re    *regexp.Regexp
}{
	{FieldName, regexp.MustCompile(`\b(who am i|what(?:'s| is) my name|tell me my name|remind me(?: of)? my name)\b`)},
	{FieldRace, regexp.MustCompile(`\b(what(?:'s| is) my race|tell me my race|remind me(?: of)? my race)\b`)},
	{FieldClass, regexp.MustCompile(`\b(what(?:'s| is) my class|tell me my class|remind me(?: of)? my class)\b`)},
	{FieldLevel, regexp.MustCompile(`\b(what(?:'s| is) my level|tell me my level|remind me(?: of)? my level)\b`)},
	{FieldStats, regexp.MustCompile(`\b(my stats?|my attributes?|strength|dexterity|constitution|intelligence|wisdom|charisma)\b`)},
	{FieldHP, regexp.MustCompile(`\b(my hp|my health|hit points)\b`)},
	{FieldArmorClass, regexp.MustCompile(`\b(my armor class|my ac|armor class|ac)\b`)},
	{FieldInventory, regexp.MustCompile(`\b(my inventory|inventory)\b`)},
}

// RequestedFields detects a question about the player's own character and
// returns the fields it asks for, in sheet order. Statements return nil.
func RequestedFields(input string) []Field {
	normalized := strings.ToLower(input)
	if !strings.Contains(normalized, "?") && !questionRe.MatchString(normalized) {
		return nil
	}
	if wholeSheetRe.MatchString(normalized) {
		return append([]Field(nil), allFields...)
	}

	var fields []Field
	for _, fr := range fieldPatterns {
		if fr.re.MatchString(normalized) {
			fields = append(fields, fr.field)
		}
	}
	return fields
}

// RecallFacts answers a character question straight from the sheet.
func RecallFacts(sheet *models.CharacterSheet, fields []Field) (string, error) {
	race, err := Race(sheet.Race)
	if err != nil {
		return "", err
	}
	class, err := Class(sheet.Class)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, f := range fields {
		switch f {
		case FieldName:
			parts = append(parts, fmt.Sprintf("Your name is %s.", sheet.Name))
		case FieldRace:
			parts = append(parts, fmt.Sprintf("You are %s.", race.Name))
		case FieldClass:
			parts = append(parts, fmt.Sprintf("Your class is %s.", class.Name))
		case FieldLevel:
			parts = append(parts, fmt.Sprintf("You are level %d.", sheet.Level))
		case FieldStats:
			s := sheet.Stats
			parts = append(parts, fmt.Sprintf("Your stats are STR %d, DEX %d, CON %d, INT %d, WIS %d, CHA %d.",
				s.Strength, s.Dexterity, s.Constitution, s.Intelligence, s.Wisdom, s.Charisma))
		case FieldHP:
			parts = append(parts, fmt.Sprintf("Your HP is %d/%d.", sheet.HP.Current, sheet.HP.Max))
		case FieldArmorClass:
			parts = append(parts, fmt.Sprintf("Your armor class is %d.", sheet.ArmorClass))
		case FieldInventory:
			names, err := inventoryNames(sheet.Inventory)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("Your inventory is %s.", joinOrEmpty(names)))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("Your character is %s, a level %d %s %s.", sheet.Name, sheet.Level, race.Name, class.Name))
	}
	return strings.Join(parts, " ") + " What do you do next?", nil
}

func inventoryNames(ids []string) ([]string, error) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		item, err := Item(id)
		if err != nil {
			return nil, err
		}
		names = append(names, item.Name)
	}
	return names, nil
}

func joinOrEmpty(names []string) string {
	if len(names) == 0 {
		return "Empty"
	}
	return strings.Join(names, ", ")
}

func signed(v int) string {
	if v >= 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}
