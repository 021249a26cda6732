package evaluator

import (
	"time"

	"clinic-monitor/internal/models"
)

// ComplianceBuckets 合规文件按到期状态分桶
// expired 是独立的严重级别桶（报表消费），但两者都能触发同一个 compliance 报警类型
type ComplianceBuckets struct {
	ExpiringSoon []models.ComplianceDocument
	Expired      []models.ComplianceDocument
}

// EvaluateCompliance 规则4：合规文件到期检测
// 触发条件：任一文件的 expires_at 落在 now + thresholdDays 之内（或已过期）
func EvaluateCompliance(docs []models.ComplianceDocument, thresholdDays int, now time.Time) Decision {
	if thresholdDays <= 0 {
		return skipped(models.SkipReasonFeatureDisabled)
	}

	deadline := now.AddDate(0, 0, thresholdDays)

	var buckets ComplianceBuckets
	for _, doc := range docs {
		switch {
		case doc.ExpiresAt.Before(now):
			buckets.Expired = append(buckets.Expired, doc)
		case !doc.ExpiresAt.After(deadline):
			buckets.ExpiringSoon = append(buckets.ExpiringSoon, doc)
		}
	}

	if len(buckets.ExpiringSoon) == 0 && len(buckets.Expired) == 0 {
		return skipped(models.SkipReasonThresholdNotMet)
	}

	return triggered(map[string]interface{}{
		"expiring_soon":  complianceSummaries(buckets.ExpiringSoon),
		"expired":        complianceSummaries(buckets.Expired),
		"threshold_days": thresholdDays,
	})
}

// complianceSummaries 生成 payload 用的文件摘要
func complianceSummaries(docs []models.ComplianceDocument) []map[string]interface{} {
	summaries := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, map[string]interface{}{
			"id":         doc.ID,
			"name":       doc.Name,
			"expires_at": doc.ExpiresAt.Format(time.RFC3339),
		})
	}
	return summaries
}
