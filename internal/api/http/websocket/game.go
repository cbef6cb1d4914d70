package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"stop-game-be/internal/service/dto"
	"stop-game-be/internal/service/errs"
	"stop-game-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func Play(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ServeWS(appState, ctx.ResponseWriter(), ctx.Request())
	}
}

// ServeWS upgrades the request and runs the connection until either side
// closes it. A valid ?token= resumes the identity it was issued for;
// otherwise a new identity is created.
func ServeWS(appState *state.AppState, w http.ResponseWriter, r *http.Request) {
	cfg := appState.Cfg
	clientIP := r.RemoteAddr

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("升级到WebSocket失败", zap.String("client_ip", clientIP), zap.Error(err))
		return
	}

	wc := newWSConn(conn, cfg.SendBuffer)
	defer wc.Close()

	conn.SetReadLimit(MAX_MESSAGE_SIZE)
	conn.SetReadDeadline(time.Now().Add(cfg.HeartbeatTimeout))
	conn.SetPongHandler(heartbeatHandler(conn, cfg.HeartbeatTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	playerID, connected, err := bind(ctx, appState, wc, r.URL.Query().Get("token"))
	if err != nil {
		zap.L().Error("建立玩家会话失败", zap.String("client_ip", clientIP), zap.Error(err))
		return
	}

	// Connected 必须是第一条消息，所以在写协程启动前同步写出
	conn.SetWriteDeadline(time.Now().Add(cfg.HeartbeatTimeout))
	if err := conn.WriteJSON(dto.WrapResponse(dto.RESP_CONNECTED, connected)); err != nil {
		zap.L().Error("发送连接确认失败", zap.String("player_id", playerID), zap.Error(err))
		appState.Sessions.Detach(playerID, wc)
		return
	}

	zap.L().Info(
		"玩家已连接",
		zap.String("client_ip", clientIP),
		zap.String("player_id", playerID),
		zap.Bool("resumed", connected.Resumed),
	)

	var wg conc.WaitGroup
	wg.Go(func() { writePump(wc, cfg.HeartbeatInterval, cfg.HeartbeatTimeout, playerID) })

	readLoop(ctx, appState, wc, playerID)

	wc.Close()
	wg.Wait()

	appState.Sessions.Detach(playerID, wc)

	zap.L().Info(
		"WebSocket连接处理完成",
		zap.String("client_ip", clientIP),
		zap.String("player_id", playerID),
	)
}

func bind(ctx context.Context, appState *state.AppState, wc *wsConn, token string) (string, dto.ConnectedEvent, error) {
	if token != "" {
		playerID, newToken, err := appState.Sessions.Resume(token, wc)
		if err == nil {
			ev := dto.ConnectedEvent{PlayerID: playerID, Token: newToken, Resumed: true}
			if room, ok := appState.RoomSvc.RoomOfPlayer(ctx, playerID); ok {
				ev.Room = &room
			}
			return playerID, ev, nil
		}

		zap.L().Info("令牌无法恢复会话，分配新身份", zap.Error(err))
	}

	playerID, newToken, err := appState.Sessions.Attach(wc)
	if err != nil {
		return "", dto.ConnectedEvent{}, err
	}

	return playerID, dto.ConnectedEvent{PlayerID: playerID, Token: newToken}, nil
}

func readLoop(ctx context.Context, appState *state.AppState, wc *wsConn, playerID string) {
	cfg := appState.Cfg
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

	for {
		_, msg, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure,
			) {
				zap.L().Warn("读取消息失败", zap.String("player_id", playerID), zap.Error(err))
			}
			return
		}

		// 先限流再解析，畸形消息同样计入配额
		if !limiter.Allow() {
			reply(wc, playerID, dto.WrapErrResponse("", errs.New(errs.RateLimited, "请求过于频繁，请稍后再试")))
			continue
		}

		var req dto.RequestWrapper

		if err := json.Unmarshal(msg, &req); err != nil {
			reply(wc, playerID, dto.WrapErrResponse("", errs.Newf(errs.InvalidPayload, "无效的请求格式: %v", err)))
			continue
		}

		zap.L().Debug(
			"收到请求",
			zap.String("player_id", playerID),
			zap.String("request_type", req.ReqType),
			zap.String("request_id", req.RequestID),
		)

		reply(wc, playerID, appState.Dispatcher.Handle(ctx, playerID, req))
	}
}

func reply(wc *wsConn, playerID string, resp dto.ResponseWrapper) {
	if err := wc.TrySend(resp); err != nil {
		zap.L().Warn(
			"发送响应失败",
			zap.String("player_id", playerID),
			zap.String("response_type", resp.RespType),
			zap.Error(err),
		)
	}
}

func writePump(wc *wsConn, interval time.Duration, timeout time.Duration, playerID string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-wc.closed:
			return

		case <-ticker.C:
			wc.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := wc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Debug("发送心跳失败", zap.String("player_id", playerID), zap.Error(err))
				wc.Close()
				return
			}

		case resp := <-wc.sendCh:
			wc.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := wc.conn.WriteJSON(resp); err != nil {
				zap.L().Debug("发送消息失败", zap.String("player_id", playerID), zap.Error(err))
				wc.Close()
				return
			}
		}
	}
}
