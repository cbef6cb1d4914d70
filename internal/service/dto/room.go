package dto

import "stop-game-be/internal/service/game"

const (
	STATUS_WAITING  = "waiting"
	STATUS_PLAYING  = "playing"
	STATUS_FINISHED = "finished"
)

type GameSettings struct {
	Categories  []string `json:"categories"`
	TotalRounds int      `json:"total_rounds"`
}

// Room is the public snapshot of a room. Players keep join order.
type Room struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	HostID   string          `json:"host_id"`
	Players  []Player        `json:"players"`
	Capacity int             `json:"capacity"`
	Status   string          `json:"status"`
	Settings GameSettings    `json:"settings"`
	Game     *game.GameState `json:"game,omitempty"`
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	DisplayName string `json:"display_name"`
}

type JoinRoomRequest struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type SetReadyRequest struct {
	IsReady bool `json:"is_ready"`
}

// StartGameRequest may leave both fields empty to use the room settings.
type StartGameRequest struct {
	Categories  []string `json:"categories,omitempty"`
	TotalRounds int      `json:"total_rounds,omitempty"`
}

type UpdateSettingsRequest struct {
	Categories  []string `json:"categories"`
	TotalRounds int      `json:"total_rounds"`
}

type KickPlayerRequest struct {
	TargetID string `json:"target_id"`
}

type GetRoomInfoRequest struct {
	Code string `json:"code"`
}

type RoomResponse struct {
	Room Room `json:"room"`
}
