package http

import (
	"context"
	"time"

	"stop-game-be/internal/api/http/websocket"
	"stop-game-be/internal/state"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// 优雅关闭的最长等待时间
const SHUTDOWN_TIMEOUT = 10 * time.Second

func NewApp(appState *state.AppState) *iris.Application {
	app := iris.New()
	app.Logger().SetLevel(appState.Cfg.LogLevel)

	if appState.Cfg.StaticDir != "" {
		app.HandleDir(
			"/",
			iris.Dir(appState.Cfg.StaticDir),
			iris.DirOptions{
				IndexName: "index.html",
				SPA:       true,
				Compress:  true,
			},
		)
	}

	api := app.Party("/api/v1")

	api.Get("/health", Health(appState))
	api.Get("/rooms/{code:string}", GetRoom(appState))

	api.Get("/ws", websocket.Play(appState))

	return app
}

// RunServer blocks until the server stops. SIGINT/SIGTERM trigger a graceful
// shutdown.
func RunServer(appState *state.AppState) error {
	app := NewApp(appState)

	iris.RegisterOnInterrupt(func() {
		zap.L().Info("收到退出信号，正在关闭服务器")

		ctx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()

		if err := app.Shutdown(ctx); err != nil {
			zap.L().Error("关闭服务器失败", zap.Error(err))
		}
	})

	zap.L().Info("服务器启动", zap.String("addr", appState.Cfg.Addr()))

	return app.Listen(
		appState.Cfg.Addr(),
		iris.WithoutInterruptHandler,
		iris.WithoutServerError(iris.ErrServerClosed),
	)
}
