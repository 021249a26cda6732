package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"clinic-monitor/common/logger"
	"clinic-monitor/internal/config"
	"clinic-monitor/internal/service"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run 把主流程与退出码分离，保证出错路径也能执行 defer
// （关闭数据库/Redis 连接、刷新日志缓冲）
func run() error {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "clinic-monitor")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 创建服务
	monitorService, err := service.NewMonitorService(cfg, log)
	if err != nil {
		log.Error("Failed to create monitor service",
			zap.Error(err),
		)
		return err
	}
	defer monitorService.Stop()

	// 4. 创建上下文（支持优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. 启动服务（在 goroutine 中）
	serviceErrChan := make(chan error, 1)
	go func() {
		if err := monitorService.Start(ctx); err != nil {
			serviceErrChan <- err
		}
	}()

	// 6. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("Received signal, shutting down",
			zap.String("signal", sig.String()),
		)
		cancel()
	case err := <-serviceErrChan:
		log.Error("Service error",
			zap.Error(err),
		)
		return err
	}

	log.Info("Clinic monitor service stopped")
	return nil
}
