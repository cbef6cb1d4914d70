package service

import (
	"context"
	"strings"

	"stop-game-be/internal/service/dto"
	"stop-game-be/internal/service/errs"
	"stop-game-be/internal/service/game"

	"go.uber.org/zap"
)

// Dispatcher turns decoded client envelopes into registry, game and chat
// operations. It owns no state of its own.
type Dispatcher struct {
	rooms *RoomService
	chat  *ChatRelay
}

func NewDispatcher(rooms *RoomService, chat *ChatRelay) *Dispatcher {
	return &Dispatcher{
		rooms: rooms,
		chat:  chat,
	}
}

// Handle runs one client request and returns the acknowledgement correlated
// by request id. Broadcast side effects have already gone out when it returns.
func (d *Dispatcher) Handle(ctx context.Context, playerID string, req dto.RequestWrapper) dto.ResponseWrapper {
	data, err := d.route(ctx, playerID, req)
	if err != nil {
		zap.L().Debug(
			"request rejected",
			zap.String("player_id", playerID),
			zap.String("request_type", req.ReqType),
			zap.Error(err),
		)
		return dto.WrapErrResponse(req.RequestID, err)
	}

	return dto.WrapAck(req.RequestID, data)
}

func (d *Dispatcher) route(ctx context.Context, playerID string, req dto.RequestWrapper) (any, error) {
	switch req.ReqType {
	case dto.REQ_CREATE_ROOM:
		var body dto.CreateRoomRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		room, err := d.rooms.CreateRoom(ctx, playerID, body.Name, body.Capacity, body.DisplayName)
		if err != nil {
			return nil, err
		}
		return dto.RoomResponse{Room: room}, nil

	case dto.REQ_JOIN_ROOM:
		var body dto.JoinRoomRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		room, err := d.rooms.JoinRoom(ctx, playerID, body.Code, body.DisplayName)
		if err != nil {
			return nil, err
		}
		return dto.RoomResponse{Room: room}, nil

	case dto.REQ_LEAVE_ROOM:
		return nil, d.rooms.LeaveRoom(ctx, playerID)

	case dto.REQ_SET_READY:
		var body dto.SetReadyRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		return nil, d.rooms.SetReady(ctx, playerID, body.IsReady)

	case dto.REQ_UPDATE_SETTINGS:
		var body dto.UpdateSettingsRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		room, err := d.rooms.UpdateSettings(ctx, playerID, body.Categories, body.TotalRounds)
		if err != nil {
			return nil, err
		}
		return dto.RoomResponse{Room: room}, nil

	case dto.REQ_START_GAME:
		var body dto.StartGameRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		return d.rooms.StartGame(ctx, playerID, body.Categories, body.TotalRounds)

	case dto.REQ_KICK_PLAYER:
		var body dto.KickPlayerRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		if body.TargetID == "" {
			return nil, errs.New(errs.InvalidPayload, "target_id is required")
		}
		return nil, d.rooms.KickPlayer(ctx, playerID, body.TargetID)

	case dto.REQ_GAME_ACTION:
		var body dto.GameActionRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		action, err := game.ParseAction(body.ActionType, body.Payload)
		if err != nil {
			return nil, err
		}
		out, err := d.ApplyAction(ctx, playerID, action)
		if err != nil {
			return nil, err
		}
		return out.Ack, nil

	case dto.REQ_UPDATE_GAME_STATE:
		var body dto.UpdateGameStateRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		return d.UpdateGameState(ctx, playerID, body.Snapshot)

	case dto.REQ_END_GAME:
		room, err := d.rooms.EndGame(ctx, playerID)
		if err != nil {
			return nil, err
		}
		return dto.RoomResponse{Room: room}, nil

	case dto.REQ_RESET_ROOM:
		room, err := d.rooms.ResetRoom(ctx, playerID)
		if err != nil {
			return nil, err
		}
		return dto.RoomResponse{Room: room}, nil

	case dto.REQ_CHAT_MESSAGE:
		var body dto.ChatMessageRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		return nil, d.chat.SendChatMessage(ctx, playerID, body.Text)

	case dto.REQ_GET_ROOM_INFO:
		var body dto.GetRoomInfoRequest
		if err := req.Decode(&body); err != nil {
			return nil, err
		}
		if strings.TrimSpace(body.Code) == "" {
			room, ok := d.rooms.RoomOfPlayer(ctx, playerID)
			if !ok {
				return nil, errs.New(errs.NotInRoom, "you are not in a room")
			}
			return dto.RoomResponse{Room: room}, nil
		}
		room, err := d.rooms.RoomInfo(ctx, body.Code)
		if err != nil {
			return nil, err
		}
		return dto.RoomResponse{Room: room}, nil

	default:
		return nil, errs.Newf(errs.InvalidRoomState, "unknown request type %q", req.ReqType)
	}
}

// ApplyAction applies one game action inside the player's room. The change
// and its GameActionReceived broadcast happen before the room accepts its
// next request.
func (d *Dispatcher) ApplyAction(ctx context.Context, playerID string, action game.Action) (Outcome, error) {
	rs := d.rooms

	return rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		if r.Status != dto.STATUS_PLAYING || r.machine == nil {
			return Outcome{}, errs.Newf(errs.InvalidRoomState, "no game in progress (room is %s)", r.Status)
		}

		delta, err := r.machine.Apply(game.Actor{ID: p.ID, IsHost: p.IsHost}, action)
		if err != nil {
			return Outcome{}, err
		}

		snapshot := r.machine.Snapshot()
		if delta == nil {
			return Outcome{Ack: snapshot}, nil
		}

		zap.L().Debug(
			"game action applied",
			zap.String("room_id", r.ID),
			zap.String("player_id", p.ID),
			zap.String("action_type", action.ActionType()),
			zap.String("phase", snapshot.Phase),
		)

		broadcast := dto.WrapResponse(dto.RESP_GAME_ACTION_RECEIVED, dto.GameActionReceivedEvent{
			PlayerID:   p.ID,
			ActionType: action.ActionType(),
			Payload:    delta,
			Timestamp:  rs.timestamp(),
		})

		return Outcome{Ack: snapshot, Broadcast: &broadcast}, nil
	})
}

// UpdateGameState lets the host set categories and round count. While the
// room is waiting they become the room settings used by the next StartGame;
// during a game they replace the configuration before the first round. Every
// other snapshot field is ignored.
func (d *Dispatcher) UpdateGameState(ctx context.Context, playerID string, snapshot game.GameState) (game.GameState, error) {
	rs := d.rooms

	out, err := rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		var state game.GameState

		switch {
		case r.Status == dto.STATUS_WAITING:
			categories, totalRounds := withFallback(snapshot, r.Settings.Categories, r.Settings.TotalRounds)
			if err := storeSettings(r, p, categories, totalRounds); err != nil {
				return Outcome{}, err
			}
			state = r.pendingState()

		case r.Status == dto.STATUS_PLAYING && r.machine != nil:
			current := r.machine.Snapshot()
			categories, totalRounds := withFallback(snapshot, current.Categories, current.TotalRounds)
			if err := r.machine.Reconfigure(game.Actor{ID: p.ID, IsHost: p.IsHost}, categories, totalRounds); err != nil {
				return Outcome{}, err
			}
			state = r.machine.Snapshot()

		default:
			return Outcome{}, errs.Newf(errs.InvalidRoomState, "cannot update the game while room is %s", r.Status)
		}

		broadcast := dto.WrapResponse(dto.RESP_GAME_STATE_UPDATED, dto.GameStateUpdatedEvent{
			Snapshot:  state,
			Timestamp: rs.timestamp(),
		})

		return Outcome{Ack: state, Broadcast: &broadcast}, nil
	})
	if err != nil {
		return game.GameState{}, err
	}

	return out.Ack.(game.GameState), nil
}

func withFallback(snapshot game.GameState, categories []string, totalRounds int) ([]string, int) {
	if len(snapshot.Categories) > 0 {
		categories = snapshot.Categories
	}
	if snapshot.TotalRounds != 0 {
		totalRounds = snapshot.TotalRounds
	}
	return categories, totalRounds
}
