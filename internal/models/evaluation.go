package models

import "time"

// 候选报警未触发/未落库的原因码（对运营透明度和测试同样重要）
const (
	SkipReasonThresholdNotMet          = "threshold_not_met"
	SkipReasonVariationWithinThreshold = "variation_within_threshold"
	SkipReasonSufficientStaff          = "sufficient_staff"
	SkipReasonFeatureDisabled          = "feature_disabled"
	SkipReasonAlertAlreadyActive       = "alert_already_active"
	SkipReasonTriggerFailed            = "trigger_failed"
)

// SkipDetail 单条跳过明细（哪个诊所、哪种类型、为什么没有触发）
type SkipDetail struct {
	ClinicID string `json:"clinic_id"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// TriggeredAlert 本轮评估中成功触发的报警摘要
type TriggeredAlert struct {
	AlertID  string `json:"alert_id"`
	ClinicID string `json:"clinic_id"`
	Type     string `json:"type"`
}

// TenantEvaluation 单租户一轮评估的结果
type TenantEvaluation struct {
	TenantID         string           `json:"tenant_id"`
	EvaluatedClinics int              `json:"evaluated_clinics"`
	Triggered        int              `json:"triggered"`
	Skipped          int              `json:"skipped"`
	Alerts           []TriggeredAlert `json:"alerts"`
	SkippedDetails   []SkipDetail     `json:"skipped_details"`
	EvaluatedAt      time.Time        `json:"evaluated_at"`
}
