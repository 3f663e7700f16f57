package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koopa0/pvp-arena/internal"
)

func main() {
	// 解析命令行參數
	var (
		configPath = flag.String("config", "config.yaml", "配置檔路徑")
		port       = flag.Int("port", 0, "服務器端口（覆蓋配置檔）")
	)
	flag.Parse()

	// 載入配置
	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "載入配置失敗: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		config.Server.Port = *port
	}

	// 設置日誌
	logger := setupLogger(config.Log.Level, config.Log.Format)
	slog.SetDefault(logger)

	// 事件發佈：配置了 NATS 就接上，否則落到日誌
	var publisher internal.Publisher
	if config.NATS.URL != "" {
		natsPublisher, err := internal.NewNATSPublisher(config.NATS.URL, logger)
		if err != nil {
			logger.Error("連接 NATS 失敗", "url", config.NATS.URL, "error", err)
			os.Exit(1)
		}
		publisher = natsPublisher
		logger.Info("事件發佈至 NATS", "url", config.NATS.URL)
	} else {
		publisher = internal.NewLogPublisher(logger)
		logger.Info("未配置 NATS，事件僅記錄於日誌")
	}
	defer publisher.Close()

	// 佈建房間表
	store, err := internal.NewStore(config.Arena.Rooms)
	if err != nil {
		logger.Error("佈建房間表失敗", "error", err)
		os.Exit(1)
	}

	// 創建配對門面
	manager := internal.NewManager(store, publisher, config.Arena.ConnectionTimeout, logger)

	// 清掃排程由宿主程序持有，以心跳節奏驅動
	sweeper := internal.NewSweeper(manager, config.Arena.HeartbeatInterval, logger)
	sweeper.Start()

	// 創建 HTTP 處理器
	handler := internal.NewHandler(manager, logger)

	// 創建 HTTP 服務器
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// 啟動服務器
	go func() {
		logger.Info("競技場服務器啟動",
			"port", config.Server.Port,
			"rooms", len(config.Arena.Rooms),
			"connection_timeout", config.Arena.ConnectionTimeout,
			"heartbeat_interval", config.Arena.HeartbeatInterval)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("服務器啟動失敗", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("收到關閉信號，開始優雅關閉...")

	// 優雅關閉
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 停止接受新連接
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("服務器關閉失敗", "error", err)
	}

	// 停止清掃排程
	sweeper.Stop()

	logger.Info("服務器已關閉")
}

// setupLogger 設置日誌
func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: level == "debug", // debug 模式顯示源碼位置
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
