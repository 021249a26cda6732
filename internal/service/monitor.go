package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinic-monitor/common/database"
	commonredis "clinic-monitor/common/redis"
	"clinic-monitor/internal/config"
	"clinic-monitor/internal/evaluator"
	"clinic-monitor/internal/hook"
	"clinic-monitor/internal/models"
	"clinic-monitor/internal/notify"
	"clinic-monitor/internal/report"
	"clinic-monitor/internal/repository"
	"clinic-monitor/internal/scheduler"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MonitorService 诊所运营监控服务（整合各层）
type MonitorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	clinicsRepo   *repository.ClinicsRepository
	membersRepo   *repository.MembersRepository
	metricsRepo   *repository.MetricsRepository
	coveragesRepo *repository.CoveragesRepository
	auditRepo     *repository.AuditRepository

	alertTrigger    *AlertTriggerService
	coverageService *CoverageService
	engine          *evaluator.Engine

	cycleScheduler  *scheduler.CycleScheduler
	coverageSweeper *scheduler.CoverageSweeper
}

// NewMonitorService 创建监控服务
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, err
	}

	// 2. 连接 Redis
	redisClient := commonredis.NewRedisClient(&cfg.Redis)
	if err := commonredis.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. 创建 Repository 层
	clinicsRepo := repository.NewClinicsRepository(db, logger)
	membersRepo := repository.NewMembersRepository(db, logger)
	metricsRepo := repository.NewMetricsRepository(db, logger)
	coveragesRepo := repository.NewCoveragesRepository(db, logger)
	auditRepo := repository.NewAuditRepository(db, logger)

	// 4. 报警写入路径（事件流发布 + 审计）
	publisher := notify.NewStreamPublisher(cfg, redisClient, logger)
	alertTrigger := NewAlertTriggerService(metricsRepo, publisher, auditRepo, logger)

	// 5. 代班生命周期（排班钩子未配置时只落库）
	var schedulingHook SchedulingHook
	if cfg.Hook.BaseURL != "" {
		schedulingHook = hook.NewSchedulingHookClient(cfg, logger)
	} else {
		logger.Warn("Scheduling hook URL not configured, coverage activation will not reach the calendar system")
		schedulingHook = noopSchedulingHook{}
	}
	coverageService := NewCoverageService(clinicsRepo, membersRepo, coveragesRepo, schedulingHook, auditRepo, logger)

	// 6. 创建评估引擎与调度器
	engine := evaluator.NewEngine(cfg, metricsRepo, membersRepo, clinicsRepo, alertTrigger, logger)
	cycleScheduler := scheduler.NewCycleScheduler(cfg, clinicsRepo, engine, auditRepo, logger)
	coverageSweeper := scheduler.NewCoverageSweeper(cfg, coverageService, logger)

	return &MonitorService{
		config:          cfg,
		db:              db,
		redisClient:     redisClient,
		logger:          logger,
		clinicsRepo:     clinicsRepo,
		membersRepo:     membersRepo,
		metricsRepo:     metricsRepo,
		coveragesRepo:   coveragesRepo,
		auditRepo:       auditRepo,
		alertTrigger:    alertTrigger,
		coverageService: coverageService,
		engine:          engine,
		cycleScheduler:  cycleScheduler,
		coverageSweeper: coverageSweeper,
	}, nil
}

// Start 启动服务（阻塞直到 ctx 取消）
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting clinic monitor service")

	// 代班扫描在后台跑，周期评估占据当前 goroutine
	go func() {
		if err := s.coverageSweeper.Start(ctx); err != nil {
			s.logger.Error("Coverage sweeper exited with error",
				zap.Error(err),
			)
		}
	}()

	return s.cycleScheduler.Start(ctx)
}

// Stop 停止服务
func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping clinic monitor service")

	// 关闭数据库连接
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	// 关闭 Redis 连接
	if err := commonredis.Close(s.redisClient); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}

// Coverage 代班生命周期服务（供 API 层调用）
func (s *MonitorService) Coverage() *CoverageService {
	return s.coverageService
}

// Alerts 报警触发服务（手工触发 API 与自动引擎共用）
func (s *MonitorService) Alerts() *AlertTriggerService {
	return s.alertTrigger
}

// ComplianceReport 导出租户的合规文件到期 xlsx 报表（供 API 层调用）
// clinicIDs 为空时覆盖租户下所有诊所
func (s *MonitorService) ComplianceReport(ctx context.Context, tenantID string, clinicIDs []string) ([]byte, error) {
	docs, err := s.clinicsRepo.ListComplianceDocuments(ctx, tenantID, clinicIDs)
	if err != nil {
		return nil, err
	}
	return report.GenerateComplianceReport(tenantID, docs,
		s.config.Monitor.ComplianceThresholdDays, time.Now().UTC())
}

// noopSchedulingHook 未配置排班系统时的空实现
type noopSchedulingHook struct{}

func (noopSchedulingHook) ApplyCoverage(ctx context.Context, coverage *models.Coverage, triggeredBy, triggerSource string) error {
	return nil
}

func (noopSchedulingHook) ReleaseCoverage(ctx context.Context, coverage *models.Coverage, triggeredBy, triggerSource string) error {
	return nil
}
