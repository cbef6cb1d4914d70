package service

import (
	"strings"
	"testing"

	"stop-game-be/internal/service/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenRoomCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		code, err := genRoomCode()
		require.NoError(t, err)
		require.Len(t, code, ROOM_CODE_LEN)

		for _, c := range code {
			assert.True(t, strings.ContainsRune(ROOM_CODE_ALPHABET, c), "unexpected %q in %s", c, code)
		}
		seen[code] = true
	}

	assert.Greater(t, len(seen), 190)
}

func TestCleanDisplayName(t *testing.T) {
	name, err := cleanDisplayName("  Ana María  ")
	require.NoError(t, err)
	assert.Equal(t, "Ana María", name)

	_, err = cleanDisplayName(" ")
	assert.ErrorIs(t, err, errs.ErrInvalidPayload)

	_, err = cleanDisplayName(strings.Repeat("é", MAX_NAME_LEN+1))
	assert.ErrorIs(t, err, errs.ErrInvalidPayload)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB12CD", normalizeCode(" ab12cd "))
}
