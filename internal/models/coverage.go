package models

import (
	"encoding/json"
	"time"
)

// 代班状态（不可逆状态机：scheduled → active → completed，scheduled/active → cancelled）
const (
	CoverageStatusScheduled = "scheduled"
	CoverageStatusActive    = "active"
	CoverageStatusCompleted = "completed"
	CoverageStatusCancelled = "cancelled"
)

// 代班期限约束
const (
	// CoverageMaxSpanDays 代班最长跨度（天）
	CoverageMaxSpanDays = 31
	// CoverageStartDriftTolerance 创建时允许 start_at 早于当前时间的容差
	CoverageStartDriftTolerance = 15 * time.Minute
)

// Coverage 专业人员代班记录（对应 professional_coverages 表）
// 表示在一个时间窗口内，clinic 中一名专业人员由另一名专业人员临时接替
type Coverage struct {
	ID                     string          `json:"id" db:"id"`
	TenantID               string          `json:"tenant_id" db:"tenant_id"`
	ClinicID               string          `json:"clinic_id" db:"clinic_id"`
	ProfessionalID         string          `json:"professional_id" db:"professional_id"`                   // 被代班人（岗位持有者）
	CoverageProfessionalID string          `json:"coverage_professional_id" db:"coverage_professional_id"` // 代班人
	StartAt                time.Time       `json:"start_at" db:"start_at"`
	EndAt                  time.Time       `json:"end_at" db:"end_at"`
	Status                 string          `json:"status" db:"status"`
	Reason                 string          `json:"reason" db:"reason"`
	Notes                  *string         `json:"notes,omitempty" db:"notes"`
	Metadata               json.RawMessage `json:"metadata" db:"metadata"` // JSONB
	CreatedBy              string          `json:"created_by" db:"created_by"`
	CreatedAt              time.Time       `json:"created_at" db:"created_at"`
	UpdatedBy              *string         `json:"updated_by,omitempty" db:"updated_by"`
	UpdatedAt              time.Time       `json:"updated_at" db:"updated_at"`
	CancelledBy            *string         `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancelledAt            *time.Time      `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// IsTerminal 是否处于终态（completed/cancelled 不可再转移）
func (c *Coverage) IsTerminal() bool {
	return c.Status == CoverageStatusCompleted || c.Status == CoverageStatusCancelled
}

// WindowContains 判断参考时间是否落在代班窗口 [start_at, end_at) 内
func (c *Coverage) WindowContains(reference time.Time) bool {
	return !reference.Before(c.StartAt) && reference.Before(c.EndAt)
}
