package engine

import "math/rand/v2"

// Shuffle returns a uniformly random permutation of items using Fisher–Yates.
// The input slice is copied first and never mutated.
func Shuffle[T any](rng *rand.Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
