package dto

import "stop-game-be/internal/service/game"

// 服务器推送的事件内容

type ConnectedEvent struct {
	PlayerID string `json:"player_id"`
	Token    string `json:"token"`
	Room     *Room  `json:"room,omitempty"`
	Resumed  bool   `json:"resumed"`
}

type PlayerJoinedEvent struct {
	Player Player `json:"player"`
	Room   Room   `json:"room"`
}

type PlayerLeftEvent struct {
	PlayerID  string `json:"player_id"`
	Room      Room   `json:"room"`
	NewHostID string `json:"new_host_id,omitempty"`
}

type PlayerReadyChangedEvent struct {
	PlayerID string `json:"player_id"`
	IsReady  bool   `json:"is_ready"`
	Room     Room   `json:"room"`
}

type RoomEvent struct {
	Room Room `json:"room"`
}

type GameActionReceivedEvent struct {
	PlayerID   string `json:"player_id"`
	ActionType string `json:"action_type"`
	Payload    any    `json:"payload"`
	Timestamp  int64  `json:"timestamp"`
}

type GameStateUpdatedEvent struct {
	Snapshot  game.GameState `json:"snapshot"`
	Timestamp int64          `json:"timestamp"`
}

type ChatMessageReceivedEvent struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

type KickedEvent struct {
	Reason string `json:"reason"`
}

type PlayerKickedEvent struct {
	PlayerID string `json:"player_id"`
	Room     Room   `json:"room"`
}
