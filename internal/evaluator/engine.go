package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinic-monitor/internal/config"
	"clinic-monitor/internal/models"

	"go.uber.org/zap"
)

// SystemTriggeredBy 自动评估使用的触发者标识
const SystemTriggeredBy = "system:monitor"

// MetricsSource 指标与报警查询接口（由 repository.MetricsRepository 实现）
type MetricsSource interface {
	GetComparison(ctx context.Context, tenantID string, clinicIDs []string, metric string, period models.Period) ([]models.ComparisonEntry, error)
	ListActiveAlerts(ctx context.Context, tenantID string, clinicIDs []string, types []string, limit int) ([]models.Alert, error)
}

// StaffSource 在岗人员统计接口（由 repository.MembersRepository 实现）
type StaffSource interface {
	CountActiveProfessionalsByClinics(ctx context.Context, tenantID string, clinicIDs []string) (map[string]int, error)
}

// ComplianceSource 合规文件查询接口（由 repository.ClinicsRepository 实现）
type ComplianceSource interface {
	ListComplianceDocuments(ctx context.Context, tenantID string, clinicIDs []string) ([]models.ComplianceDocument, error)
}

// AlertTrigger 报警触发协作方（由 service.AlertTriggerService 实现，
// 是报警的唯一写入路径，手工触发与自动评估共用）
type AlertTrigger interface {
	Trigger(ctx context.Context, input models.TriggerAlertInput) (*models.Alert, error)
}

// Engine 报警评估引擎
// 逐租户：取对比指标 → 重建去重集合 → 按固定顺序跑阈值规则 → 触发/跳过计数
type Engine struct {
	config     *config.Config
	metrics    MetricsSource
	staff      StaffSource
	compliance ComplianceSource
	trigger    AlertTrigger
	logger     *zap.Logger
}

// NewEngine 创建评估引擎
func NewEngine(
	cfg *config.Config,
	metrics MetricsSource,
	staff StaffSource,
	compliance ComplianceSource,
	trigger AlertTrigger,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		config:     cfg,
		metrics:    metrics,
		staff:      staff,
		compliance: compliance,
		trigger:    trigger,
		logger:     logger,
	}
}

// EvaluateTenant 评估单个租户
// clinicIDs 为空时覆盖租户下所有活跃诊所；triggeredBy 为空时记为系统触发；
// now 为零值时取当前时间
func (e *Engine) EvaluateTenant(ctx context.Context, tenantID string, clinicIDs []string, triggeredBy string, now time.Time) (*models.TenantEvaluation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if triggeredBy == "" {
		triggeredBy = SystemTriggeredBy
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result := &models.TenantEvaluation{
		TenantID:       tenantID,
		Alerts:         []models.TriggeredAlert{},
		SkippedDetails: []models.SkipDetail{},
		EvaluatedAt:    now,
	}

	// 1. 回看窗口 [now - lookbackDays, now]
	lookbackDays := e.config.Monitor.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	period := models.Period{
		Start: now.AddDate(0, 0, -lookbackDays),
		End:   now,
	}

	// 2. 对比指标快照；没有任何诊所数据时直接返回零结果
	entries, err := e.metrics.GetComparison(ctx, tenantID, clinicIDs, models.MetricRevenue, period)
	if err != nil {
		return nil, fmt.Errorf("failed to get comparison: %w", err)
	}
	if len(entries) == 0 {
		e.logger.Debug("No comparison entries, skipping tenant",
			zap.String("tenant_id", tenantID),
		)
		return result, nil
	}
	result.EvaluatedClinics = len(entries)

	evaluatedClinicIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		evaluatedClinicIDs = append(evaluatedClinicIDs, entry.ClinicID)
	}

	// 3. 人员规则开启时，一次批量查询所有诊所的在岗专业人员数
	var staffCounts map[string]int
	if e.config.Monitor.MinProfessionals > 0 {
		staffCounts, err = e.staff.CountActiveProfessionalsByClinics(ctx, tenantID, evaluatedClinicIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to count active professionals: %w", err)
		}
	}

	// 合规规则开启时，一次批量查询合规文件并按诊所分组
	docsByClinic := map[string][]models.ComplianceDocument{}
	if e.config.Monitor.ComplianceThresholdDays > 0 {
		docs, err := e.compliance.ListComplianceDocuments(ctx, tenantID, evaluatedClinicIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list compliance documents: %w", err)
		}
		for _, doc := range docs {
			docsByClinic[doc.ClinicID] = append(docsByClinic[doc.ClinicID], doc)
		}
	}

	// 4. 一次查询所有未解决报警，重建去重集合
	activeAlerts, err := e.metrics.ListActiveAlerts(ctx, tenantID, evaluatedClinicIDs, models.MonitoredAlertTypes, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	registry := NewDedupRegistry(activeAlerts)

	// 5. 逐诊所按固定顺序评估：revenue → occupancy → staff → compliance
	for _, entry := range entries {
		if e.config.Monitor.RevenueDropThresholdPct > 0 {
			decision := EvaluateRevenueDrop(entry,
				e.config.Monitor.RevenueDropThresholdPct,
				e.config.Monitor.RevenueMinimum,
			)
			e.record(ctx, result, registry, entry.ClinicID, models.AlertTypeRevenueDrop, decision, triggeredBy)
		}

		occupancy := EvaluateLowOccupancy(entry, e.config.Monitor.OccupancyThreshold)
		e.record(ctx, result, registry, entry.ClinicID, models.AlertTypeLowOccupancy, occupancy, triggeredBy)

		if e.config.Monitor.MinProfessionals > 0 {
			decision := EvaluateStaffShortage(staffCounts[entry.ClinicID], e.config.Monitor.MinProfessionals)
			e.record(ctx, result, registry, entry.ClinicID, models.AlertTypeStaffShortage, decision, triggeredBy)
		}

		if e.config.Monitor.ComplianceThresholdDays > 0 {
			decision := EvaluateCompliance(docsByClinic[entry.ClinicID], e.config.Monitor.ComplianceThresholdDays, now)
			e.record(ctx, result, registry, entry.ClinicID, models.AlertTypeCompliance, decision, triggeredBy)
		}
	}

	e.logger.Info("Tenant evaluation completed",
		zap.String("tenant_id", tenantID),
		zap.Int("evaluated_clinics", result.EvaluatedClinics),
		zap.Int("triggered", result.Triggered),
		zap.Int("skipped", result.Skipped),
	)

	return result, nil
}

// record 落实单条规则结论：去重检查 → 触发 → 计数
func (e *Engine) record(ctx context.Context, result *models.TenantEvaluation, registry *DedupRegistry, clinicID, alertType string, decision Decision, triggeredBy string) {
	if !decision.Trigger {
		e.skip(result, clinicID, alertType, decision.Reason)
		return
	}

	if registry.Has(clinicID, alertType) {
		e.skip(result, clinicID, alertType, models.SkipReasonAlertAlreadyActive)
		return
	}

	payload, err := json.Marshal(decision.Payload)
	if err != nil {
		// payload 是内部构造的 map，序列化失败按触发失败处理
		e.logger.Error("Failed to marshal alert payload",
			zap.String("clinic_id", clinicID),
			zap.String("type", alertType),
			zap.Error(err),
		)
		e.skip(result, clinicID, alertType, models.SkipReasonTriggerFailed)
		return
	}

	alert, err := e.trigger.Trigger(ctx, models.TriggerAlertInput{
		TenantID:    result.TenantID,
		ClinicID:    clinicID,
		Type:        alertType,
		Channel:     e.config.Monitor.AlertChannel,
		TriggeredBy: triggeredBy,
		Payload:     payload,
	})
	if err != nil {
		// 触发失败不会中断本轮评估；下一轮周期天然是重试机制
		e.logger.Error("Failed to trigger alert",
			zap.String("tenant_id", result.TenantID),
			zap.String("clinic_id", clinicID),
			zap.String("type", alertType),
			zap.Error(err),
		)
		e.skip(result, clinicID, alertType, models.SkipReasonTriggerFailed)
		return
	}

	// 触发成功后立即登记，防止同一轮内重复触发
	registry.Add(clinicID, alertType)
	result.Triggered++
	result.Alerts = append(result.Alerts, models.TriggeredAlert{
		AlertID:  alert.ID,
		ClinicID: clinicID,
		Type:     alertType,
	})

	e.logger.Info("Alert triggered",
		zap.String("tenant_id", result.TenantID),
		zap.String("clinic_id", clinicID),
		zap.String("type", alertType),
		zap.String("alert_id", alert.ID),
	)
}

// skip 记录一条跳过明细
func (e *Engine) skip(result *models.TenantEvaluation, clinicID, alertType, reason string) {
	result.Skipped++
	result.SkippedDetails = append(result.SkippedDetails, models.SkipDetail{
		ClinicID: clinicID,
		Type:     alertType,
		Reason:   reason,
	})
}
