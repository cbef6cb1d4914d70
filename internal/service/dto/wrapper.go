package dto

import (
	"encoding/json"

	"stop-game-be/internal/service/errs"
)

// 请求类型
const (
	REQ_CREATE_ROOM       = "CreateRoom"
	REQ_JOIN_ROOM         = "JoinRoom"
	REQ_LEAVE_ROOM        = "LeaveRoom"
	REQ_SET_READY         = "SetReady"
	REQ_UPDATE_SETTINGS   = "UpdateSettings"
	REQ_START_GAME        = "StartGame"
	REQ_KICK_PLAYER       = "KickPlayer"
	REQ_GAME_ACTION       = "GameAction"
	REQ_UPDATE_GAME_STATE = "UpdateGameState"
	REQ_END_GAME          = "EndGame"
	REQ_RESET_ROOM        = "ResetRoom"
	REQ_CHAT_MESSAGE      = "ChatMessage"
	REQ_GET_ROOM_INFO     = "GetRoomInfo"
)

type RequestWrapper struct {
	RequestID string          `json:"request_id,omitempty"`
	ReqType   string          `json:"request_type"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// 响应类型
const (
	RESP_CONNECTED       = "Connected"
	RESP_ACK             = "Ack"
	RESP_ACTION_REJECTED = "ActionRejected"

	RESP_PLAYER_JOINED         = "PlayerJoined"
	RESP_PLAYER_LEFT           = "PlayerLeft"
	RESP_PLAYER_READY_CHANGED  = "PlayerReadyChanged"
	RESP_ROOM_SETTINGS_UPDATED = "RoomSettingsUpdated"
	RESP_GAME_STARTED          = "GameStarted"
	RESP_GAME_ACTION_RECEIVED  = "GameActionReceived"
	RESP_GAME_STATE_UPDATED    = "GameStateUpdated"
	RESP_GAME_ENDED            = "GameEnded"
	RESP_ROOM_RESET            = "RoomReset"
	RESP_CHAT_MESSAGE_RECEIVED = "ChatMessageReceived"
	RESP_KICKED                = "Kicked"
	RESP_PLAYER_KICKED         = "PlayerKicked"
)

type ResponseWrapper struct {
	RespType  string `json:"response_type"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	ErrKind   string `json:"error_kind,omitempty"`
	ErrMsg    string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapAck(requestID string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType:  RESP_ACK,
		RequestID: requestID,
		Data:      data,
	}
}

// WrapErrResponse builds the rejection that goes back to the requester only.
func WrapErrResponse(requestID string, err error) ResponseWrapper {
	return ResponseWrapper{
		RespType:  RESP_ACTION_REJECTED,
		RequestID: requestID,
		ErrKind:   string(errs.KindOf(err)),
		ErrMsg:    err.Error(),
	}
}

// Decode unmarshals the request body into v. An empty body leaves v untouched.
func (w RequestWrapper) Decode(v any) error {
	if len(w.Data) == 0 || string(w.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(w.Data, v); err != nil {
		return errs.Newf(errs.InvalidPayload, "bad %s payload: %v", w.ReqType, err)
	}
	return nil
}
