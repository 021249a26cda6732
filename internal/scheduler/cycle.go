package scheduler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"clinic-monitor/internal/config"
	"clinic-monitor/internal/evaluator"
	"clinic-monitor/internal/models"
	"clinic-monitor/internal/report"

	"go.uber.org/zap"
)

// TenantLister 租户枚举协作方
type TenantLister interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
}

// TenantEvaluator 租户评估协作方
type TenantEvaluator interface {
	EvaluateTenant(ctx context.Context, tenantID string, clinicIDs []string, triggeredBy string, now time.Time) (*models.TenantEvaluation, error)
}

// AuditSink 审计记录协作方
type AuditSink interface {
	Register(ctx context.Context, record *models.AuditRecord) error
}

// CycleScheduler 监控周期调度器
// 固定间隔驱动全租户评估；同一时刻至多一轮在途，
// 上一轮未结束时新 tick 直接丢弃（不排队）
type CycleScheduler struct {
	config  *config.Config
	tenants TenantLister
	engine  TenantEvaluator
	audit   AuditSink
	logger  *zap.Logger

	running atomic.Bool
}

// NewCycleScheduler 创建周期调度器
func NewCycleScheduler(
	cfg *config.Config,
	tenants TenantLister,
	engine TenantEvaluator,
	audit AuditSink,
	logger *zap.Logger,
) *CycleScheduler {
	return &CycleScheduler{
		config:  cfg,
		tenants: tenants,
		engine:  engine,
		audit:   audit,
		logger:  logger,
	}
}

// Start 启动调度循环（阻塞直到 ctx 取消）
// 未启用或间隔非正时直接返回
func (s *CycleScheduler) Start(ctx context.Context) error {
	if !s.config.Monitor.Enabled || s.config.Monitor.IntervalMs <= 0 {
		s.logger.Info("Monitor cycle scheduler disabled",
			zap.Bool("enabled", s.config.Monitor.Enabled),
			zap.Int("interval_ms", s.config.Monitor.IntervalMs),
		)
		return nil
	}

	interval := time.Duration(s.config.Monitor.IntervalMs) * time.Millisecond
	s.logger.Info("Monitor cycle scheduler started",
		zap.Duration("interval", interval),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 每轮都在独立 goroutine 执行：上一轮未结束时由 in-flight
	// 标志把新 tick 直接丢弃，而不是堆在 ticker 缓冲里排队
	go s.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Monitor cycle scheduler stopped")
			return nil
		case <-ticker.C:
			go s.RunCycle(ctx)
		}
	}
}

// RunCycle 执行一轮全租户评估
// 单个租户失败不影响其余租户；整轮失败也不影响下一次 tick
func (s *CycleScheduler) RunCycle(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Previous monitor cycle still running, tick skipped")
		return
	}
	defer s.running.Store(false)

	started := time.Now().UTC()

	tenantIDs, err := s.tenants.ListTenantIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list tenants for monitor cycle",
			zap.Error(err),
		)
		return
	}

	evaluated := 0
	failed := 0
	evaluations := make([]models.TenantEvaluation, 0, len(tenantIDs))
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			s.logger.Info("Monitor cycle interrupted",
				zap.Int("tenants_evaluated", evaluated),
			)
			return
		}

		result, err := s.evaluateTenant(ctx, tenantID, started)
		if err != nil {
			failed++
			s.logger.Error("Failed to evaluate tenant",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
			continue
		}
		evaluated++
		evaluations = append(evaluations, *result)

		s.logger.Info("Monitor cycle tenant result",
			zap.String("tenant_id", tenantID),
			zap.Int("evaluated_clinics", result.EvaluatedClinics),
			zap.Int("triggered", result.Triggered),
			zap.Int("skipped", result.Skipped),
		)
		s.registerCycleAudit(ctx, result)
	}

	s.writeCycleReport(evaluations, started)

	s.logger.Info("Monitor cycle completed",
		zap.Int("tenants", len(tenantIDs)),
		zap.Int("evaluated", evaluated),
		zap.Int("failed", failed),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// writeCycleReport 配置了输出目录时，把本轮结果导出为 xlsx 报表
// 导出失败只记日志，不影响周期本身
func (s *CycleScheduler) writeCycleReport(evaluations []models.TenantEvaluation, started time.Time) {
	if s.config.Report.OutputDir == "" || len(evaluations) == 0 {
		return
	}

	data, err := report.GenerateCycleReport(evaluations)
	if err != nil {
		s.logger.Error("Failed to generate cycle report",
			zap.Error(err),
		)
		return
	}

	path := filepath.Join(s.config.Report.OutputDir,
		"cycle_report_"+started.Format("20060102T150405Z")+".xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error("Failed to write cycle report",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Cycle report written",
		zap.String("path", path),
		zap.Int("tenants", len(evaluations)),
	)
}

// evaluateTenant 评估单个租户，带超时上限，防止慢租户拖垮整轮节奏
func (s *CycleScheduler) evaluateTenant(ctx context.Context, tenantID string, now time.Time) (*models.TenantEvaluation, error) {
	timeout := time.Duration(s.config.Monitor.TenantTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	tenantCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.engine.EvaluateTenant(tenantCtx, tenantID, nil, evaluator.SystemTriggeredBy, now)
}

// registerCycleAudit 每个租户写一条周期审计，带计数和完整跳过明细
func (s *CycleScheduler) registerCycleAudit(ctx context.Context, result *models.TenantEvaluation) {
	detail, err := json.Marshal(map[string]interface{}{
		"evaluated_clinics": result.EvaluatedClinics,
		"triggered":         result.Triggered,
		"skipped":           result.Skipped,
		"alerts":            result.Alerts,
		"skipped_details":   result.SkippedDetails,
		"evaluated_at":      result.EvaluatedAt,
	})
	if err != nil {
		s.logger.Error("Failed to marshal cycle audit detail", zap.Error(err))
		return
	}

	record := &models.AuditRecord{
		TenantID:    result.TenantID,
		PerformedBy: evaluator.SystemTriggeredBy,
		Event:       models.AuditEventMonitorCycle,
		Detail:      detail,
	}
	if err := s.audit.Register(ctx, record); err != nil {
		s.logger.Error("Failed to register cycle audit record",
			zap.String("tenant_id", result.TenantID),
			zap.Error(err),
		)
	}
}
