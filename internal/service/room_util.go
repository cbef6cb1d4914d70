package service

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode/utf8"

	"stop-game-be/internal/service/errs"

	"github.com/google/uuid"
)

const (
	ROOM_CODE_LEN      = 6
	ROOM_CODE_ALPHABET = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	MIN_CAPACITY = 2
	MAX_CAPACITY = 10

	MAX_NAME_LEN      = 24
	MAX_ROOM_NAME_LEN = 40
	MAX_CHAT_LEN      = 500
)

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("failed to generate UUID: " + err.Error())
	}

	return id.String()
}

// genRoomCode draws ROOM_CODE_LEN characters from an alphabet without
// look-alike glyphs (no I, O, 0, 1).
func genRoomCode() (string, error) {
	out := make([]byte, ROOM_CODE_LEN)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(ROOM_CODE_ALPHABET))))
		if err != nil {
			return "", err
		}
		out[i] = ROOM_CODE_ALPHABET[n.Int64()]
	}
	return string(out), nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func cleanDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.New(errs.InvalidPayload, "display name must not be empty")
	}
	if utf8.RuneCountInString(name) > MAX_NAME_LEN {
		return "", errs.Newf(errs.InvalidPayload, "display name is longer than %d characters", MAX_NAME_LEN)
	}
	return name, nil
}

func cleanRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.New(errs.InvalidConfiguration, "room name must not be empty")
	}
	if utf8.RuneCountInString(name) > MAX_ROOM_NAME_LEN {
		return "", errs.Newf(errs.InvalidConfiguration, "room name is longer than %d characters", MAX_ROOM_NAME_LEN)
	}
	return name, nil
}
