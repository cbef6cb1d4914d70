package game

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPickLetter_AvoidsUsedLetters(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	used := strings.Split("ABCDEFGHIJKLMNOPQRSTUVWXY", "")

	for i := 0; i < 20; i++ {
		assert.Equal(t, "Z", pickLetter(rng, used))
	}
}

func TestPickLetter_FallsBackWhenExhausted(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	used := strings.Split(ALPHABET, "")

	letter := pickLetter(rng, used)
	assert.Len(t, letter, 1)
	assert.Contains(t, ALPHABET, letter)
}

func TestPickLetter_NeverRepeatsWithinAlphabet(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	used := make([]string, 0, len(ALPHABET))

	for i := 0; i < len(ALPHABET); i++ {
		l := pickLetter(rng, used)
		assert.NotContains(t, used, l)
		used = append(used, l)
	}
}
