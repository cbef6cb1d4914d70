package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"stop-game-be/internal/service/dto"
	"stop-game-be/internal/service/errs"
	"stop-game-be/internal/service/game"

	"go.uber.org/zap"
)

const DEFAULT_CODE_RETRIES = 16

// Notifier pushes a message to the connections of the given players. It must
// never block; a failed delivery to one player must not affect the others.
type Notifier interface {
	Notify(playerIDs []string, msg dto.ResponseWrapper) PublishResult
}

// RoomService is the room registry. The table itself is guarded by a
// RWMutex; every room's own state is owned by one goroutine per room, so
// rooms mutate in parallel while actions on one room apply one at a time in
// arrival order.
type RoomService struct {
	state    *roomServiceState
	notifier Notifier

	genCode     func() (string, error)
	codeRetries int
	defaultCfg  dto.GameSettings
	now         func() time.Time
	machineOpts []game.Option
}

type roomServiceState struct {
	mu sync.RWMutex

	rooms    map[string]*Room  // room id -> room
	codes    map[string]string // room code -> room id
	memberOf map[string]string // player id -> room id

	closing   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type RoomOption func(*RoomService)

func WithCodeGenerator(gen func() (string, error)) RoomOption {
	return func(rs *RoomService) { rs.genCode = gen }
}

func WithCodeRetries(n int) RoomOption {
	return func(rs *RoomService) {
		if n > 0 {
			rs.codeRetries = n
		}
	}
}

func WithDefaultRounds(n int) RoomOption {
	return func(rs *RoomService) {
		if n >= game.MIN_ROUNDS && n <= game.MAX_ROUNDS {
			rs.defaultCfg.TotalRounds = n
		}
	}
}

func WithRoomClock(now func() time.Time) RoomOption {
	return func(rs *RoomService) { rs.now = now }
}

func WithMachineOptions(opts ...game.Option) RoomOption {
	return func(rs *RoomService) { rs.machineOpts = opts }
}

func NewRoomService(notifier Notifier, opts ...RoomOption) *RoomService {
	rs := &RoomService{
		state: &roomServiceState{
			rooms:    make(map[string]*Room),
			codes:    make(map[string]string),
			memberOf: make(map[string]string),
			closing:  make(chan struct{}),
		},
		notifier:    notifier,
		genCode:     genRoomCode,
		codeRetries: DEFAULT_CODE_RETRIES,
		defaultCfg: dto.GameSettings{
			Categories:  append([]string(nil), game.DefaultCategories[:5]...),
			TotalRounds: 5,
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(rs)
	}

	return rs
}

// Close stops every room goroutine. Rooms are not notified.
func (rs *RoomService) Close() {
	rs.state.closeOnce.Do(func() {
		close(rs.state.closing)
	})
	rs.state.wg.Wait()
}

func (rs *RoomService) CreateRoom(
	ctx context.Context,
	playerID string,
	name string,
	capacity int,
	hostDisplayName string,
) (dto.Room, error) {
	roomName, err := cleanRoomName(name)
	if err != nil {
		return dto.Room{}, err
	}
	displayName, err := cleanDisplayName(hostDisplayName)
	if err != nil {
		return dto.Room{}, err
	}
	if capacity < MIN_CAPACITY || capacity > MAX_CAPACITY {
		return dto.Room{}, errs.Newf(errs.InvalidConfiguration, "capacity must be between %d and %d", MIN_CAPACITY, MAX_CAPACITY)
	}

	if err := rs.leaveCurrentRoom(ctx, playerID); err != nil {
		return dto.Room{}, err
	}

	room := &Room{
		ID:       GenID(),
		Name:     roomName,
		Capacity: capacity,
		Status:   dto.STATUS_WAITING,
		Players: []*Player{{
			ID:     playerID,
			Name:   displayName,
			IsHost: true,
		}},
		Settings: dto.GameSettings{
			Categories:  append([]string(nil), rs.defaultCfg.Categories...),
			TotalRounds: rs.defaultCfg.TotalRounds,
		},
		reqCh: make(chan roomRequest),
		done:  make(chan struct{}),
	}

	rs.state.mu.Lock()

	if _, busy := rs.state.memberOf[playerID]; busy {
		rs.state.mu.Unlock()
		return dto.Room{}, errs.New(errs.InvalidRoomState, "player joined another room meanwhile")
	}

	code, err := rs.reserveCode()
	if err != nil {
		rs.state.mu.Unlock()
		zap.L().Error("room code space exhausted", zap.Int("retries", rs.codeRetries), zap.Error(err))
		return dto.Room{}, err
	}

	room.Code = code
	rs.state.rooms[room.ID] = room
	rs.state.codes[code] = room.ID
	rs.state.memberOf[playerID] = room.ID

	// 快照必须在房间协程启动前生成
	snapshot := room.toDTO()

	rs.state.wg.Add(1)
	go rs.roomLoop(room)

	rs.state.mu.Unlock()

	zap.L().Info(
		"room created",
		zap.String("room_id", room.ID),
		zap.String("code", room.Code),
		zap.String("host_id", playerID),
		zap.Int("capacity", capacity),
	)

	return snapshot, nil
}

// reserveCode must be called with the table lock held.
func (rs *RoomService) reserveCode() (string, error) {
	for i := 0; i < rs.codeRetries; i++ {
		code, err := rs.genCode()
		if err != nil {
			continue
		}
		code = normalizeCode(code)
		if _, taken := rs.state.codes[code]; !taken {
			return code, nil
		}
	}

	return "", errs.New(errs.RoomCreationFailed, "could not allocate a free room code")
}

func (rs *RoomService) JoinRoom(ctx context.Context, playerID string, code string, displayName string) (dto.Room, error) {
	name, err := cleanDisplayName(displayName)
	if err != nil {
		return dto.Room{}, err
	}

	room, ok := rs.roomByCode(code)
	if !ok {
		return dto.Room{}, errs.Newf(errs.RoomNotFound, "no active room with code %q", normalizeCode(code))
	}

	if current, in := rs.roomOf(playerID); in && current != room {
		if err := rs.leaveCurrentRoom(ctx, playerID); err != nil {
			return dto.Room{}, err
		}
	}

	out, err := rs.exec(ctx, room, func(r *Room) (Outcome, error) {
		if p := r.find(playerID); p != nil {
			return Outcome{Ack: r.toDTO()}, nil
		}
		if r.Status != dto.STATUS_WAITING {
			return Outcome{}, errs.Newf(errs.InvalidRoomState, "room is %s", r.Status)
		}
		if len(r.Players) >= r.Capacity {
			return Outcome{}, errs.Newf(errs.RoomFull, "room %s is full", r.Code)
		}
		if !rs.bindMember(playerID, r.ID) {
			return Outcome{}, errs.New(errs.InvalidRoomState, "player is already in another room")
		}

		joiner := &Player{ID: playerID, Name: name}
		r.Players = append(r.Players, joiner)

		snapshot := r.toDTO()
		broadcast := dto.WrapResponse(
			dto.RESP_PLAYER_JOINED,
			dto.PlayerJoinedEvent{Player: joiner.toDTO(), Room: snapshot},
		)

		zap.L().Info(
			"player joined room",
			zap.String("room_id", r.ID),
			zap.String("player_id", playerID),
			zap.String("player_name", name),
		)

		return Outcome{Ack: snapshot, Broadcast: &broadcast}, nil
	})
	if err != nil {
		return dto.Room{}, err
	}

	return out.Ack.(dto.Room), nil
}

func (rs *RoomService) LeaveRoom(ctx context.Context, playerID string) error {
	_, err := rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		_, newHost := r.remove(p.ID)
		rs.unbindMember(p.ID, r.ID)

		zap.L().Info(
			"player left room",
			zap.String("room_id", r.ID),
			zap.String("player_id", p.ID),
			zap.Int("remaining", len(r.Players)),
		)

		if len(r.Players) == 0 {
			return Outcome{}, nil
		}

		ev := dto.PlayerLeftEvent{PlayerID: p.ID, Room: r.toDTO()}
		if newHost != nil {
			ev.NewHostID = newHost.ID
			zap.L().Info("host reassigned", zap.String("room_id", r.ID), zap.String("host_id", newHost.ID))
		}
		broadcast := dto.WrapResponse(dto.RESP_PLAYER_LEFT, ev)

		return Outcome{Broadcast: &broadcast}, nil
	})

	return err
}

func (rs *RoomService) KickPlayer(ctx context.Context, requesterID string, targetID string) error {
	_, err := rs.execAsMember(ctx, requesterID, func(r *Room, requester *Player) (Outcome, error) {
		if targetID == requesterID {
			return Outcome{}, errs.New(errs.CannotKickSelf, "you cannot kick yourself")
		}

		target := r.find(targetID)
		if target != nil && target.IsHost {
			return Outcome{}, errs.New(errs.CannotKickHost, "the host cannot be kicked")
		}
		if !requester.IsHost {
			return Outcome{}, errs.New(errs.NotHost, "only the host can kick players")
		}
		if target == nil {
			return Outcome{}, errs.New(errs.NotInRoom, "target is not in this room")
		}

		r.remove(target.ID)
		rs.unbindMember(target.ID, r.ID)

		zap.L().Info(
			"player kicked",
			zap.String("room_id", r.ID),
			zap.String("player_id", target.ID),
			zap.String("by", requesterID),
		)

		broadcast := dto.WrapResponse(
			dto.RESP_PLAYER_KICKED,
			dto.PlayerKickedEvent{PlayerID: target.ID, Room: r.toDTO()},
		)

		return Outcome{
			Broadcast: &broadcast,
			Unicast: map[string]dto.ResponseWrapper{
				target.ID: dto.WrapResponse(dto.RESP_KICKED, dto.KickedEvent{Reason: "you were kicked by the host"}),
			},
		}, nil
	})

	return err
}

func (rs *RoomService) SetReady(ctx context.Context, playerID string, isReady bool) error {
	_, err := rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		if r.Status != dto.STATUS_WAITING {
			return Outcome{}, errs.Newf(errs.InvalidRoomState, "cannot change readiness while room is %s", r.Status)
		}
		if p.IsHost || p.IsReady == isReady {
			return Outcome{}, nil
		}

		p.IsReady = isReady

		broadcast := dto.WrapResponse(
			dto.RESP_PLAYER_READY_CHANGED,
			dto.PlayerReadyChangedEvent{PlayerID: p.ID, IsReady: isReady, Room: r.toDTO()},
		)

		return Outcome{Broadcast: &broadcast}, nil
	})

	return err
}

// UpdateSettings stores the configuration StartGame will use when it is not
// given one explicitly.
func (rs *RoomService) UpdateSettings(ctx context.Context, playerID string, categories []string, totalRounds int) (dto.Room, error) {
	out, err := rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		if err := storeSettings(r, p, categories, totalRounds); err != nil {
			return Outcome{}, err
		}

		snapshot := r.toDTO()
		broadcast := dto.WrapResponse(dto.RESP_ROOM_SETTINGS_UPDATED, dto.RoomEvent{Room: snapshot})

		return Outcome{Ack: snapshot, Broadcast: &broadcast}, nil
	})
	if err != nil {
		return dto.Room{}, err
	}

	return out.Ack.(dto.Room), nil
}

// storeSettings validates and keeps the configuration of the next game.
// Runs inside the room goroutine.
func storeSettings(r *Room, p *Player, categories []string, totalRounds int) error {
	if !p.IsHost {
		return errs.New(errs.NotHost, "only the host can change settings")
	}
	if r.Status != dto.STATUS_WAITING {
		return errs.Newf(errs.InvalidRoomState, "cannot change settings while room is %s", r.Status)
	}

	cats, err := game.ValidateConfig(categories, totalRounds)
	if err != nil {
		return err
	}

	r.Settings = dto.GameSettings{Categories: cats, TotalRounds: totalRounds}

	return nil
}

// StartGame falls back to the room settings when categories is empty or
// totalRounds is zero.
func (rs *RoomService) StartGame(ctx context.Context, playerID string, categories []string, totalRounds int) (game.GameState, error) {
	out, err := rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		if !p.IsHost {
			return Outcome{}, errs.New(errs.NotHost, "only the host can start the game")
		}
		if r.Status != dto.STATUS_WAITING {
			return Outcome{}, errs.Newf(errs.InvalidRoomState, "room is %s", r.Status)
		}
		if len(r.Players) < 2 {
			return Outcome{}, errs.New(errs.NotEnoughPlayers, "at least 2 players are required")
		}
		for _, other := range r.Players {
			if !other.IsHost && !other.IsReady {
				return Outcome{}, errs.Newf(errs.PlayersNotReady, "%s is not ready", other.Name)
			}
		}

		if len(categories) == 0 {
			categories = r.Settings.Categories
		}
		if totalRounds == 0 {
			totalRounds = r.Settings.TotalRounds
		}

		machine, err := game.NewMachine(categories, totalRounds, r.memberIDs(), rs.machineOpts...)
		if err != nil {
			return Outcome{}, err
		}

		r.machine = machine
		r.Status = dto.STATUS_PLAYING

		zap.L().Info(
			"game started",
			zap.String("room_id", r.ID),
			zap.Int("players", len(r.Players)),
			zap.Int("total_rounds", totalRounds),
		)

		broadcast := dto.WrapResponse(dto.RESP_GAME_STARTED, dto.RoomEvent{Room: r.toDTO()})

		return Outcome{Ack: machine.Snapshot(), Broadcast: &broadcast}, nil
	})
	if err != nil {
		return game.GameState{}, err
	}

	return out.Ack.(game.GameState), nil
}

// EndGame moves the room to FINISHED and keeps the final game state around
// for display.
func (rs *RoomService) EndGame(ctx context.Context, playerID string) (dto.Room, error) {
	out, err := rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		if !p.IsHost {
			return Outcome{}, errs.New(errs.NotHost, "only the host can end the game")
		}
		if r.Status != dto.STATUS_PLAYING {
			return Outcome{}, errs.Newf(errs.InvalidRoomState, "room is %s", r.Status)
		}

		r.Status = dto.STATUS_FINISHED

		snapshot := r.toDTO()
		broadcast := dto.WrapResponse(dto.RESP_GAME_ENDED, dto.RoomEvent{Room: snapshot})

		return Outcome{Ack: snapshot, Broadcast: &broadcast}, nil
	})
	if err != nil {
		return dto.Room{}, err
	}

	return out.Ack.(dto.Room), nil
}

func (rs *RoomService) ResetRoom(ctx context.Context, playerID string) (dto.Room, error) {
	out, err := rs.execAsMember(ctx, playerID, func(r *Room, p *Player) (Outcome, error) {
		if !p.IsHost {
			return Outcome{}, errs.New(errs.NotHost, "only the host can reset the room")
		}

		r.Status = dto.STATUS_WAITING
		r.machine = nil
		for _, other := range r.Players {
			other.IsReady = false
		}

		snapshot := r.toDTO()
		broadcast := dto.WrapResponse(dto.RESP_ROOM_RESET, dto.RoomEvent{Room: snapshot})

		return Outcome{Ack: snapshot, Broadcast: &broadcast}, nil
	})
	if err != nil {
		return dto.Room{}, err
	}

	return out.Ack.(dto.Room), nil
}

// RoomInfo returns a consistent snapshot of the room with the given code.
func (rs *RoomService) RoomInfo(ctx context.Context, code string) (dto.Room, error) {
	room, ok := rs.roomByCode(code)
	if !ok {
		return dto.Room{}, errs.Newf(errs.RoomNotFound, "no active room with code %q", normalizeCode(code))
	}

	out, err := rs.exec(ctx, room, func(r *Room) (Outcome, error) {
		return Outcome{Ack: r.toDTO()}, nil
	})
	if err != nil {
		return dto.Room{}, err
	}

	return out.Ack.(dto.Room), nil
}

// RoomOfPlayer returns the snapshot of the player's current room, if any.
func (rs *RoomService) RoomOfPlayer(ctx context.Context, playerID string) (dto.Room, bool) {
	out, err := rs.execAsMember(ctx, playerID, func(r *Room, _ *Player) (Outcome, error) {
		return Outcome{Ack: r.toDTO()}, nil
	})
	if err != nil {
		return dto.Room{}, false
	}

	return out.Ack.(dto.Room), true
}

func (rs *RoomService) RoomCount() int {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	return len(rs.state.rooms)
}

func (rs *RoomService) leaveCurrentRoom(ctx context.Context, playerID string) error {
	if _, in := rs.roomOf(playerID); !in {
		return nil
	}

	err := rs.LeaveRoom(ctx, playerID)
	if err != nil && !errors.Is(err, errs.ErrNotInRoom) {
		return err
	}

	return nil
}

func (rs *RoomService) roomByCode(code string) (*Room, bool) {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	id, ok := rs.state.codes[normalizeCode(code)]
	if !ok {
		return nil, false
	}
	room, ok := rs.state.rooms[id]

	return room, ok
}

func (rs *RoomService) roomOf(playerID string) (*Room, bool) {
	rs.state.mu.RLock()
	defer rs.state.mu.RUnlock()

	id, ok := rs.state.memberOf[playerID]
	if !ok {
		return nil, false
	}
	room, ok := rs.state.rooms[id]

	return room, ok
}

func (rs *RoomService) bindMember(playerID string, roomID string) bool {
	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	if current, ok := rs.state.memberOf[playerID]; ok && current != roomID {
		return false
	}
	rs.state.memberOf[playerID] = roomID

	return true
}

func (rs *RoomService) unbindMember(playerID string, roomID string) {
	rs.state.mu.Lock()
	defer rs.state.mu.Unlock()

	if rs.state.memberOf[playerID] == roomID {
		delete(rs.state.memberOf, playerID)
	}
}

// exec hands fn to the room goroutine and waits for its result. Callers queue
// in arrival order on the unbuffered request channel.
func (rs *RoomService) exec(ctx context.Context, room *Room, fn func(*Room) (Outcome, error)) (Outcome, error) {
	req := roomRequest{
		fn:    fn,
		resCh: make(chan roomResult, 1),
	}

	select {
	case room.reqCh <- req:
	case <-room.done:
		return Outcome{}, errs.Newf(errs.RoomNotFound, "room %s no longer exists", room.Code)
	case <-rs.state.closing:
		return Outcome{}, errs.New(errs.RoomNotFound, "server is shutting down")
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	// once accepted the room always answers, and it never waits on anything
	res := <-req.resCh

	return res.out, res.err
}

func (rs *RoomService) execAsMember(
	ctx context.Context,
	playerID string,
	fn func(r *Room, p *Player) (Outcome, error),
) (Outcome, error) {
	room, ok := rs.roomOf(playerID)
	if !ok {
		return Outcome{}, errs.New(errs.NotInRoom, "you are not in a room")
	}

	out, err := rs.exec(ctx, room, func(r *Room) (Outcome, error) {
		p := r.find(playerID)
		if p == nil {
			return Outcome{}, errs.New(errs.NotInRoom, "you are not in this room")
		}
		return fn(r, p)
	})
	if errors.Is(err, errs.ErrRoomNotFound) {
		return Outcome{}, errs.New(errs.NotInRoom, "you are not in a room")
	}

	return out, err
}

func (rs *RoomService) roomLoop(room *Room) {
	defer rs.state.wg.Done()

	for {
		select {
		case <-rs.state.closing:
			zap.L().Debug("room goroutine stopped by shutdown", zap.String("room_id", room.ID))
			return

		case req := <-room.reqCh:
			out, err := req.fn(room)
			if err == nil {
				// 变更已生效，在接受下一个请求之前完成广播
				rs.deliver(room, out)
			}

			req.resCh <- roomResult{out: out, err: err}

			if len(room.Players) == 0 {
				rs.destroy(room)
				return
			}
		}
	}
}

func (rs *RoomService) deliver(room *Room, out Outcome) {
	if rs.notifier == nil {
		return
	}

	for playerID, msg := range out.Unicast {
		rs.notifier.Notify([]string{playerID}, msg)
	}

	if out.Broadcast != nil && len(room.Players) > 0 {
		res := rs.notifier.Notify(room.memberIDs(), *out.Broadcast)
		if len(res.Dropped) > 0 {
			zap.L().Warn(
				"broadcast not delivered to every member",
				zap.String("room_id", room.ID),
				zap.String("response_type", out.Broadcast.RespType),
				zap.Strings("dropped", res.Dropped),
			)
		}
	}
}

func (rs *RoomService) destroy(room *Room) {
	rs.state.mu.Lock()
	delete(rs.state.rooms, room.ID)
	delete(rs.state.codes, room.Code)
	rs.state.mu.Unlock()

	close(room.done)

	zap.L().Info("room destroyed", zap.String("room_id", room.ID), zap.String("code", room.Code))
}

func (rs *RoomService) timestamp() int64 {
	return rs.now().UnixMilli()
}
