package models

import (
	"encoding/json"
	"time"
)

// 报警类型（经营健康异常）
const (
	AlertTypeRevenueDrop   = "revenue_drop"
	AlertTypeLowOccupancy  = "low_occupancy"
	AlertTypeStaffShortage = "staff_shortage"
	AlertTypeCompliance    = "compliance"
)

// MonitoredAlertTypes 监控引擎负责的报警类型（固定评估顺序）
var MonitoredAlertTypes = []string{
	AlertTypeRevenueDrop,
	AlertTypeLowOccupancy,
	AlertTypeStaffShortage,
	AlertTypeCompliance,
}

// Alert 经营健康报警（对应 clinic_alerts 表）
// 同一 clinic 同一类型最多只能有一条未解决（active）的报警
type Alert struct {
	ID          string          `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id"`
	ClinicID    string          `json:"clinic_id" db:"clinic_id"`
	Type        string          `json:"type" db:"type"`
	Channel     string          `json:"channel" db:"channel"`
	TriggeredBy string          `json:"triggered_by" db:"triggered_by"`
	TriggeredAt time.Time       `json:"triggered_at" db:"triggered_at"`
	Payload     json.RawMessage `json:"payload" db:"payload"` // JSONB，类型相关的证据快照
	ResolvedBy  *string         `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// TriggerAlertInput 触发报警的输入（手工触发 API 与自动评估引擎共用同一写入路径）
type TriggerAlertInput struct {
	TenantID    string          `json:"tenant_id"`
	ClinicID    string          `json:"clinic_id"`
	Type        string          `json:"type"`
	Channel     string          `json:"channel"`
	TriggeredBy string          `json:"triggered_by"`
	Payload     json.RawMessage `json:"payload"`
}

// IsActive 报警是否仍未解决
func (a *Alert) IsActive() bool {
	return a.ResolvedAt == nil
}

// DedupKey 去重键：clinic_id + ":" + type
func (a *Alert) DedupKey() string {
	return a.ClinicID + ":" + a.Type
}
