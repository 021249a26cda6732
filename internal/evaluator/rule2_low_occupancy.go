package evaluator

import (
	"clinic-monitor/internal/models"
)

// EvaluateLowOccupancy 规则2：入住率过低检测
// 触发条件：entry.OccupancyRate < threshold（threshold 为 0..1 之间的比例）
func EvaluateLowOccupancy(entry models.ComparisonEntry, threshold float64) Decision {
	if entry.OccupancyRate >= threshold {
		return skipped(models.SkipReasonThresholdNotMet)
	}

	return triggered(map[string]interface{}{
		"occupancy_rate":      entry.OccupancyRate,
		"occupancy_threshold": threshold,
		"active_patients":     entry.ActivePatients,
	})
}
