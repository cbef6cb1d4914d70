package state

import (
	"context"
	"errors"

	"stop-game-be/internal/config"
	"stop-game-be/internal/service"
	"stop-game-be/internal/service/errs"

	"go.uber.org/zap"
)

// AppState holds the process-wide registries. It is built once in main and
// handed to the transport layer.
type AppState struct {
	Cfg        *config.AppConfig
	Tokens     *service.TokenManager
	Sessions   *service.Sessions
	RoomSvc    *service.RoomService
	Dispatcher *service.Dispatcher
}

func NewAppState(cfg *config.AppConfig, roomOpts ...service.RoomOption) *AppState {
	tokens := service.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)
	sessions := service.NewSessions(tokens, cfg.DisconnectGrace)

	opts := append([]service.RoomOption{
		service.WithCodeRetries(cfg.RoomCodeRetries),
		service.WithDefaultRounds(cfg.DefaultRounds),
	}, roomOpts...)
	roomSvc := service.NewRoomService(sessions, opts...)

	// 断线超过宽限期的玩家按主动离开处理。房间协程从不阻塞，
	// 所以这里不设超时：会话已删除，这次离开不能丢
	sessions.OnExpire(func(playerID string) {
		if err := roomSvc.LeaveRoom(context.Background(), playerID); err != nil && !errors.Is(err, errs.ErrNotInRoom) {
			zap.L().Error("移出离线玩家失败", zap.String("player_id", playerID), zap.Error(err))
		}
	})

	return &AppState{
		Cfg:        cfg,
		Tokens:     tokens,
		Sessions:   sessions,
		RoomSvc:    roomSvc,
		Dispatcher: service.NewDispatcher(roomSvc, service.NewChatRelay(roomSvc)),
	}
}

func (s *AppState) Start() {
	s.Sessions.Start()
}

func (s *AppState) Close() {
	s.Sessions.Close()
	s.RoomSvc.Close()
}
