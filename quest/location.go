package quest

import (
	"regexp"
	"strings"
)

// namedPlaceRe finds a capitalized place name after a movement or position
// word, e.g. "you arrive at the Silver Stag Inn".
var namedPlaceRe = regexp.MustCompile(`\b(?:in|at|into|inside|enter|enters|reach|reaches|toward|towards|near|to)\s+(?:the\s+)?((?:[A-Z][\w']*)(?:\s+(?:of\s+)?[A-Z][\w']*)*)`)

// placeWords are generic locations recognized when no name is given.
var placeWords = []string{
	"tavern", "inn", "forest", "woods", "cave", "cavern", "castle", "village",
	"town", "city", "dungeon", "temple", "shrine", "market", "crypt", "tomb",
	"road", "river", "mountain", "tower", "docks", "harbor", "ruins", "swamp",
	"camp", "library", "throne room", "bridge", "gate",
}

var placeWordRe = wordsRe(placeWords...)

// DetectLocation tags a reply with where the scene happens. Named places win
// over generic ones; among generic words the earliest mention wins.
func DetectLocation(text string) string {
	if m := namedPlaceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := placeWordRe.FindString(strings.ToLower(text)); m != "" {
		return m
	}
	return UnknownLocation
}
