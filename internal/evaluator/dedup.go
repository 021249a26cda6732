package evaluator

import "clinic-monitor/internal/models"

// DedupRegistry 报警去重集合
// 每轮评估、每个租户从"未解决报警"查询重建一次，键为 clinic_id + ":" + type。
// 触发成功后立即登记，保证同一轮内同一 (clinic, type) 不会重复触发
type DedupRegistry struct {
	keys map[string]struct{}
}

// NewDedupRegistry 从当前未解决的报警构建去重集合
func NewDedupRegistry(activeAlerts []models.Alert) *DedupRegistry {
	registry := &DedupRegistry{
		keys: make(map[string]struct{}, len(activeAlerts)),
	}
	for _, alert := range activeAlerts {
		registry.keys[alert.DedupKey()] = struct{}{}
	}
	return registry
}

// Key 构建去重键
func (r *DedupRegistry) Key(clinicID, alertType string) string {
	return clinicID + ":" + alertType
}

// Has 判断 (clinic, type) 是否已有未解决的报警
func (r *DedupRegistry) Has(clinicID, alertType string) bool {
	_, ok := r.keys[r.Key(clinicID, alertType)]
	return ok
}

// Add 登记一条刚触发成功的报警
func (r *DedupRegistry) Add(clinicID, alertType string) {
	r.keys[r.Key(clinicID, alertType)] = struct{}{}
}

// Size 当前集合大小
func (r *DedupRegistry) Size() int {
	return len(r.keys)
}
