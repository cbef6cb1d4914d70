package dto

// 房间内的玩家信息
type Player struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsHost  bool   `json:"is_host"`
	IsReady bool   `json:"is_ready"`
}
