package dto

import (
	"encoding/json"

	"stop-game-be/internal/service/game"
)

type GameActionRequest struct {
	ActionType string          `json:"action_type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type UpdateGameStateRequest struct {
	Snapshot game.GameState `json:"snapshot"`
}

type ChatMessageRequest struct {
	Text string `json:"text"`
}
