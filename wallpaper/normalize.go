package wallpaper

import "math/rand/v2"

// Dedupe drops items whose ID was already seen. The first occurrence wins and
// first-seen order is kept. Items with an empty ImageURL still claim their ID
// but are dropped from the output.
func Dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		if item.ImageURL == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Shuffle returns a uniformly random permutation of items (Fisher-Yates).
// The input slice is not modified. A nil rng uses the global source.
func Shuffle(items []Item, rng *rand.Rand) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	for i := len(out) - 1; i > 0; i-- {
		j := intN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
