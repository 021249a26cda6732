package models

import (
	"encoding/json"
	"time"
)

// 审计事件名
const (
	AuditEventCoverageCreated   = "coverage_created"
	AuditEventCoverageActivated = "coverage_activated"
	AuditEventCoverageCompleted = "coverage_completed"
	AuditEventCoverageCancelled = "coverage_cancelled"
	AuditEventAlertTriggered    = "alert_triggered"
	AuditEventAlertResolved     = "alert_resolved"
	AuditEventMonitorCycle      = "monitor_cycle"
)

// AuditRecord 审计记录（对应 audit_log 表）
// 代班状态转移和每轮监控评估的结果都写入同一条审计通道
type AuditRecord struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	ClinicID    *string         `json:"clinic_id,omitempty" db:"clinic_id"`
	PerformedBy string          `json:"performed_by" db:"performed_by"`
	Event       string          `json:"event" db:"event"`
	Detail      json.RawMessage `json:"detail" db:"detail"` // JSONB
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
