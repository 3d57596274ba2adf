package rules

import (
	"fmt"
	"sort"

	apperrors "rpgchat/errors"
)

// Race returns the race definition for id.
func Race(id string) (RaceDefinition, error) {
	r, ok := races[id]
	if !ok {
		return RaceDefinition{}, invalidReference("race", id)
	}
	return r, nil
}

// Class returns the class definition for id.
func Class(id string) (ClassDefinition, error) {
	c, ok := classes[id]
	if !ok {
		return ClassDefinition{}, invalidReference("class", id)
	}
	return c, nil
}

// Item returns the item definition for id.
func Item(id string) (ItemDefinition, error) {
	it, ok := items[id]
	if !ok {
		return ItemDefinition{}, invalidReference("item", id)
	}
	return it, nil
}

// RaceIDs lists known race ids in sorted order.
func RaceIDs() []string { return sortedKeys(races) }

// ClassIDs lists known class ids in sorted order.
func ClassIDs() []string { return sortedKeys(classes) }

// ItemIDs lists known item ids in sorted order.
func ItemIDs() []string { return sortedKeys(items) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func invalidReference(kind, id string) error {
	return apperrors.WithMetadata(apperrors.CodeValidation, fmt.Sprintf("unknown %s %q", kind, id), map[string]string{kind: id})
}
