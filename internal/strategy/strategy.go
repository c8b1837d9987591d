// Package strategy provides the closed sets of initialization, weighting,
// and learning rules used by the dialect simulation. Each set is an enum
// with a lowercase name so configs and flags can select variants.
package strategy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownStrategy is returned when a strategy name does not match any variant.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrEmptyWorld is returned when a world has too few settlements to seed.
	ErrEmptyWorld = errors.New("world has too few settlements")
)

// parseName looks name up in a variant name table.
func parseName[T ~uint8](kind, name string, names map[T]string) (T, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for v, n := range names {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrUnknownStrategy, kind, name)
}

// sortedNames returns the variant names in enum order.
func sortedNames[T ~uint8](names map[T]string) []string {
	out := make([]string, len(names))
	for v, n := range names {
		out[v] = n
	}
	return out
}
