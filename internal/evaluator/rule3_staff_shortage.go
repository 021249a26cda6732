package evaluator

import (
	"clinic-monitor/internal/models"
)

// EvaluateStaffShortage 规则3：在岗专业人员不足检测
// minProfessionals <= 0 时规则关闭；触发条件：activeProfessionals < minProfessionals
func EvaluateStaffShortage(activeProfessionals, minProfessionals int) Decision {
	if minProfessionals <= 0 {
		return skipped(models.SkipReasonFeatureDisabled)
	}

	if activeProfessionals >= minProfessionals {
		return skipped(models.SkipReasonSufficientStaff)
	}

	return triggered(map[string]interface{}{
		"active_professionals": activeProfessionals,
		"min_professionals":    minProfessionals,
	})
}
