package main

import (
	"stop-game-be/internal/api/http"
	"stop-game-be/internal/config"
	"stop-game-be/internal/logger"
	"stop-game-be/internal/state"

	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.InitConfig()
	if err != nil {
		panic(err)
	}

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)
	defer zap.L().Sync()

	// 组装应用状态
	appState := state.NewAppState(cfg)
	appState.Start()
	defer appState.Close()

	// 启动服务器
	if err := http.RunServer(appState); err != nil {
		zap.L().Error("服务器异常退出", zap.Error(err))
	}
}
