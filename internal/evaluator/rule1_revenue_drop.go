package evaluator

import (
	"clinic-monitor/internal/models"
)

// EvaluateRevenueDrop 规则1：收入环比下降检测
// 触发条件（同时满足）：
//  1. thresholdPct > 0（规则开启）
//  2. entry.Revenue >= minimum 且 entry.Revenue > 0（低基数收入不评估，避免噪音）
//  3. entry.RevenueVariationPercentage < -thresholdPct
func EvaluateRevenueDrop(entry models.ComparisonEntry, thresholdPct, minimum float64) Decision {
	if thresholdPct <= 0 {
		return skipped(models.SkipReasonFeatureDisabled)
	}

	if entry.Revenue < minimum || entry.Revenue <= 0 {
		return skipped(models.SkipReasonThresholdNotMet)
	}

	if entry.RevenueVariationPercentage >= -thresholdPct {
		return skipped(models.SkipReasonVariationWithinThreshold)
	}

	payload := map[string]interface{}{
		"revenue":               entry.Revenue,
		"variation_percentage":  entry.RevenueVariationPercentage,
		"drop_threshold_pct":    thresholdPct,
		"revenue_minimum":       minimum,
	}

	// 上一周期收入估算（分母为 0 时缺省，不写入 payload）
	if previous := models.EstimatePreviousValue(entry.Revenue, entry.RevenueVariationPercentage); previous != nil {
		payload["previous_revenue_estimate"] = *previous
	}

	return triggered(payload)
}
