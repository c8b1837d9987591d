package world

import (
	"fmt"
	"math/rand"
)

var (
	namePrefixes = []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Dark", "Bright", "High", "Low",
		"Old", "New", "Far", "Deep", "Long", "Broad", "Gold", "Frost",
		"Storm", "Thorn", "Elm", "Oak", "Pine", "Copper", "River",
	}
	nameSuffixes = []string{
		"haven", "ford", "hollow", "wick", "bridge", "gate", "keep",
		"stead", "wood", "field", "dale", "crest", "vale", "port",
		"town", "bury", "marsh", "well", "brook", "cliff", "moor",
		"ridge", "watch", "fall", "rest", "point", "reach", "helm",
	}
)

// generateNames produces unique procedural settlement names by combining
// syllables. Once the syllable space runs low, names get a numeric suffix.
func generateNames(rng *rand.Rand, count int) []string {
	used := make(map[string]bool, count)
	names := make([]string, 0, count)
	combos := len(namePrefixes) * len(nameSuffixes)

	for len(names) < count {
		name := namePrefixes[rng.Intn(len(namePrefixes))] + nameSuffixes[rng.Intn(len(nameSuffixes))]
		if len(used) >= combos/2 {
			name = fmt.Sprintf("%s %d", name, len(names)+1)
		}
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}

	return names
}
