package game

import "math/rand/v2"

const ALPHABET = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// pickLetter draws uniformly from the letters not used yet in this game and
// falls back to the full alphabet once every letter has been played.
func pickLetter(rng *rand.Rand, used []string) string {
	usedSet := make(map[byte]struct{}, len(used))
	for _, l := range used {
		if len(l) == 1 {
			usedSet[l[0]] = struct{}{}
		}
	}

	available := make([]byte, 0, len(ALPHABET))
	for i := 0; i < len(ALPHABET); i++ {
		if _, ok := usedSet[ALPHABET[i]]; !ok {
			available = append(available, ALPHABET[i])
		}
	}

	if len(available) == 0 {
		return string(ALPHABET[rng.IntN(len(ALPHABET))])
	}

	return string(available[rng.IntN(len(available))])
}
