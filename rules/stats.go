// Package rules computes character attributes from static race, class and
// item tables. Every function is pure and deterministic.
package rules

import (
	"math"

	apperrors "rpgchat/errors"
	"rpgchat/models"
)

// BaseStats averages the class and race base scores per attribute, rounding
// halves away from zero.
func BaseStats(classID, raceID string) (models.Stats, error) {
	class, err := Class(classID)
	if err != nil {
		return models.Stats{}, err
	}
	race, err := Race(raceID)
	if err != nil {
		return models.Stats{}, err
	}

	var out models.Stats
	for _, attr := range models.Attributes {
		avg := float64(class.Base.Get(attr)+race.Base.Get(attr)) / 2
		out = out.With(attr, int(math.Round(avg)))
	}
	return out, nil
}

// ApplyModifiers adds each modifier set to base, left to right.
func ApplyModifiers(base models.Stats, mods ...models.Modifiers) models.Stats {
	out := base
	for _, set := range mods {
		for attr, delta := range set {
			out = out.With(attr, out.Get(attr)+delta)
		}
	}
	return out
}

// Modifier is floor((score-10)/2).
func Modifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

// Derive computes combat values. MaxHP never goes below zero.
func Derive(stats models.Stats, classID string, level int) (models.DerivedStats, error) {
	class, err := Class(classID)
	if err != nil {
		return models.DerivedStats{}, err
	}
	if level < 1 {
		return models.DerivedStats{}, apperrors.WithMetadata(apperrors.CodeValidation, "level must be at least 1", map[string]string{"class": classID})
	}

	maxHP := (class.HitDie + Modifier(stats.Constitution)) * level
	if maxHP < 0 {
		maxHP = 0
	}

	derived := models.DerivedStats{
		MaxHP:      maxHP,
		ArmorClass: 10 + Modifier(stats.Dexterity),
		Initiative: Modifier(stats.Dexterity),
	}
	switch class.Primary {
	case models.Intelligence, models.Wisdom, models.Charisma:
		sp := Modifier(stats.Get(class.Primary))
		derived.SpellPower = &sp
	}
	return derived, nil
}
