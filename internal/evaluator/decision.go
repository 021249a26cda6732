package evaluator

// Decision 单条阈值规则的评估结论
// 未触发时 Reason 记录原因码，让调用方（以及测试）能审计"为什么没有触发"，
// 这和正向触发同样重要
type Decision struct {
	Trigger bool
	Reason  string                 // 未触发时的原因码（models.SkipReason*）
	Payload map[string]interface{} // 触发时的证据快照
}

// triggered 构建触发结论
func triggered(payload map[string]interface{}) Decision {
	return Decision{Trigger: true, Payload: payload}
}

// skipped 构建未触发结论
func skipped(reason string) Decision {
	return Decision{Trigger: false, Reason: reason}
}
