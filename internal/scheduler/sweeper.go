package scheduler

import (
	"context"
	"time"

	"clinic-monitor/internal/config"

	"go.uber.org/zap"
)

// CoverageSweepRunner 代班到期扫描协作方
type CoverageSweepRunner interface {
	ActivateDue(ctx context.Context, reference time.Time) (int, error)
	CompleteDue(ctx context.Context, reference time.Time) (int, error)
}

// CoverageSweeper 代班窗口扫描器
// 周期性把窗口已开启的 scheduled 转 active、窗口已结束的 active 转 completed
type CoverageSweeper struct {
	config   *config.Config
	coverage CoverageSweepRunner
	logger   *zap.Logger
}

// NewCoverageSweeper 创建代班扫描器
func NewCoverageSweeper(cfg *config.Config, coverage CoverageSweepRunner, logger *zap.Logger) *CoverageSweeper {
	return &CoverageSweeper{
		config:   cfg,
		coverage: coverage,
		logger:   logger,
	}
}

// Start 启动扫描循环（阻塞直到 ctx 取消）
func (s *CoverageSweeper) Start(ctx context.Context) error {
	if s.config.Coverage.SweepIntervalSec <= 0 {
		s.logger.Info("Coverage sweeper disabled",
			zap.Int("sweep_interval_sec", s.config.Coverage.SweepIntervalSec),
		)
		return nil
	}

	interval := time.Duration(s.config.Coverage.SweepIntervalSec) * time.Second
	s.logger.Info("Coverage sweeper started",
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Coverage sweeper stopped")
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep 执行一次扫描；先激活后完结，单步失败不影响另一步
func (s *CoverageSweeper) Sweep(ctx context.Context) {
	reference := time.Now().UTC()

	activated, err := s.coverage.ActivateDue(ctx, reference)
	if err != nil {
		s.logger.Error("Coverage activation sweep failed",
			zap.Error(err),
		)
	}

	completed, err := s.coverage.CompleteDue(ctx, reference)
	if err != nil {
		s.logger.Error("Coverage completion sweep failed",
			zap.Error(err),
		)
	}

	if activated > 0 || completed > 0 {
		s.logger.Info("Coverage sweep finished",
			zap.Int("activated", activated),
			zap.Int("completed", completed),
		)
	}
}
