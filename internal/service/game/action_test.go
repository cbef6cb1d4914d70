package game

import (
	"encoding/json"
	"testing"

	"stop-game-be/internal/service/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	a, err := ParseAction("submit_answers", json.RawMessage(`{"answers":{"Name":"Ana"}}`))
	require.NoError(t, err)
	assert.Equal(t, SubmitAnswersAction{Answers: map[string]string{"Name": "Ana"}}, a)

	a, err = ParseAction("STOP", nil)
	require.NoError(t, err)
	assert.Equal(t, StopAction{}, a)

	_, err = ParseAction("DANCE", nil)
	assert.ErrorIs(t, err, errs.ErrInvalidRoomState)

	_, err = ParseAction(ACTION_SUBMIT_ANSWERS, json.RawMessage(`{"answers":[1,2]}`))
	assert.ErrorIs(t, err, errs.ErrInvalidPayload)

	_, err = ParseAction(ACTION_VOTE_ANSWER, json.RawMessage(`{"category":"Name"}`))
	assert.ErrorIs(t, err, errs.ErrInvalidPayload)
}
