package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinic-monitor/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertStore 报警存储协作方
type AlertStore interface {
	ListActiveAlerts(ctx context.Context, tenantID string, clinicIDs []string, types []string, limit int) ([]models.Alert, error)
	CreateAlert(ctx context.Context, alert *models.Alert) error
	ResolveAlert(ctx context.Context, tenantID, alertID, resolvedBy string, resolvedAt time.Time) error
}

// AlertPublisher 报警事件发布协作方（下游通知消费方订阅）
type AlertPublisher interface {
	PublishAlertEvent(ctx context.Context, event string, alert *models.Alert) error
}

// AlertTriggerService 报警触发用例
// 手工触发 API 和自动评估引擎共用的唯一写入路径，
// 在此处强制 (clinic_id, type) 级别的未解决报警唯一性
type AlertTriggerService struct {
	alerts    AlertStore
	publisher AlertPublisher
	audit     AuditSink
	logger    *zap.Logger

	now func() time.Time
}

// NewAlertTriggerService 创建报警触发服务
func NewAlertTriggerService(alerts AlertStore, publisher AlertPublisher, audit AuditSink, logger *zap.Logger) *AlertTriggerService {
	return &AlertTriggerService{
		alerts:    alerts,
		publisher: publisher,
		audit:     audit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Trigger 触发一条报警
// 同 clinic 同类型已有未解决报警时返回 models.ErrAlertAlreadyActive
func (s *AlertTriggerService) Trigger(ctx context.Context, input models.TriggerAlertInput) (*models.Alert, error) {
	if input.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if input.ClinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}
	if input.Type == "" {
		return nil, fmt.Errorf("alert type is required")
	}

	// 唯一性检查：同 (clinic, type) 最多一条未解决报警
	existing, err := s.alerts.ListActiveAlerts(ctx, input.TenantID, []string{input.ClinicID}, []string{input.Type}, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to check active alerts: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("alert %s for clinic %s: %w", input.Type, input.ClinicID, models.ErrAlertAlreadyActive)
	}

	payload := input.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	alert := &models.Alert{
		ID:          uuid.New().String(),
		TenantID:    input.TenantID,
		ClinicID:    input.ClinicID,
		Type:        input.Type,
		Channel:     input.Channel,
		TriggeredBy: input.TriggeredBy,
		TriggeredAt: s.now(),
		Payload:     payload,
	}

	if err := s.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	s.publish(ctx, models.AuditEventAlertTriggered, alert)
	s.registerAlertAudit(ctx, alert, alert.TriggeredBy, models.AuditEventAlertTriggered)

	s.logger.Info("Alert triggered",
		zap.String("tenant_id", alert.TenantID),
		zap.String("clinic_id", alert.ClinicID),
		zap.String("type", alert.Type),
		zap.String("triggered_by", alert.TriggeredBy),
	)

	return alert, nil
}

// Resolve 解决一条报警，释放该 (clinic, type) 的去重键
func (s *AlertTriggerService) Resolve(ctx context.Context, tenantID, alertID, resolvedBy string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	resolvedAt := s.now()
	if err := s.alerts.ResolveAlert(ctx, tenantID, alertID, resolvedBy, resolvedAt); err != nil {
		return err
	}

	resolved := &models.Alert{
		ID:         alertID,
		TenantID:   tenantID,
		ResolvedBy: &resolvedBy,
		ResolvedAt: &resolvedAt,
	}
	s.publish(ctx, models.AuditEventAlertResolved, resolved)
	s.registerAlertAudit(ctx, resolved, resolvedBy, models.AuditEventAlertResolved)

	s.logger.Info("Alert resolved",
		zap.String("tenant_id", tenantID),
		zap.String("alert_id", alertID),
		zap.String("resolved_by", resolvedBy),
	)

	return nil
}

// publish 把报警事件推到发布通道；失败仅记日志
func (s *AlertTriggerService) publish(ctx context.Context, event string, alert *models.Alert) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAlertEvent(ctx, event, alert); err != nil {
		s.logger.Error("Failed to publish alert event",
			zap.String("event", event),
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
	}
}

// registerAlertAudit 写报警审计记录；失败仅记日志
func (s *AlertTriggerService) registerAlertAudit(ctx context.Context, alert *models.Alert, performedBy, event string) {
	detail, err := json.Marshal(map[string]interface{}{
		"alert_id": alert.ID,
		"type":     alert.Type,
		"channel":  alert.Channel,
	})
	if err != nil {
		detail = json.RawMessage(`{}`)
	}

	record := &models.AuditRecord{
		TenantID:    alert.TenantID,
		PerformedBy: performedBy,
		Event:       event,
		Detail:      detail,
	}
	if alert.ClinicID != "" {
		clinicID := alert.ClinicID
		record.ClinicID = &clinicID
	}
	if err := s.audit.Register(ctx, record); err != nil {
		s.logger.Error("Failed to register audit record",
			zap.String("event", event),
			zap.String("alert_id", alert.ID),
			zap.Error(err),
		)
	}
}
