// Package quest derives quest-log entries from narrator replies using cheap
// keyword heuristics. Nothing here calls the model.
package quest

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"rpgchat/models"
)

// SummaryLimit caps summaries, in runes.
const SummaryLimit = 120

// UnknownLocation is reported when no place can be detected.
const UnknownLocation = "unknown"

var (
	stageDirectionRe = regexp.MustCompile(`\[[^\]]*\]|\*[^*]*\*|\*+`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
	sentenceEndRe    = regexp.MustCompile(`[.!?](\s|$)`)
)

// Summarize returns the first sentence of text with stage directions and
// emphasis stripped, truncated to SummaryLimit runes.
func Summarize(text string) string {
	clean := stageDirectionRe.ReplaceAllString(text, "")
	clean = strings.TrimSpace(whitespaceRe.ReplaceAllString(clean, " "))
	if loc := sentenceEndRe.FindStringIndex(clean); loc != nil {
		clean = clean[:loc[0]+1]
	}
	if utf8.RuneCountInString(clean) <= SummaryLimit {
		return clean
	}
	runes := []rune(clean)
	return strings.TrimSpace(string(runes[:SummaryLimit-3])) + "..."
}

var (
	highDangerRe   = wordsRe("dragon", "blood", "bleeding", "attack", "attacks", "ambush", "death", "dies", "dead", "kill", "killed", "wound", "wounded", "scream", "screams", "monster", "undead", "demon", "poison", "flames")
	mediumDangerRe = wordsRe("danger", "dangerous", "wolf", "wolves", "trap", "goblin", "goblins", "bandit", "bandits", "threat", "growl", "growls", "shadow", "shadows", "warning", "storm", "cursed", "hostile")
)

// ClassifyDanger grades a reply by the most threatening keyword it contains.
func ClassifyDanger(text string) models.Danger {
	lower := strings.ToLower(text)
	switch {
	case highDangerRe.MatchString(lower):
		return models.DangerHigh
	case mediumDangerRe.MatchString(lower):
		return models.DangerMedium
	}
	return models.DangerLow
}

func wordsRe(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(` + strings.Join(words, "|") + `)\b`)
}
