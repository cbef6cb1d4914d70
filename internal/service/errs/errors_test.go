package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(RoomFull, "room ABCDEF is full"))

	assert.Equal(t, RoomFull, KindOf(err))
	assert.Equal(t, InvalidRoomState, KindOf(errors.New("plain")))
}

func TestIsMatchesByKind(t *testing.T) {
	err := Newf(NotHost, "player %s is not host", "p1")

	assert.ErrorIs(t, err, ErrNotHost)
	assert.NotErrorIs(t, err, ErrNotInRoom)
	assert.Equal(t, "NotHost: player p1 is not host", err.Error())
	assert.Equal(t, "RoomFull", ErrRoomFull.Error())
}
