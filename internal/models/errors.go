package models

import "errors"

// 领域错误（封闭集合，调用方用 errors.Is 判断）
// 校验类错误由调用方同步感知，不重试
var (
	// ErrClinicNotFound 租户下不存在该诊所
	ErrClinicNotFound = errors.New("clinic not found")
	// ErrInvalidPeriod 代班时间窗口不合法（顺序、跨度、过期、漂移容差）
	ErrInvalidPeriod = errors.New("invalid coverage period")
	// ErrInvalidClinicData 诊所数据不合法（同人代班、角色不符等）
	ErrInvalidClinicData = errors.New("invalid clinic data")
	// ErrMemberNotFound 成员不存在或不在岗
	ErrMemberNotFound = errors.New("clinic member not found")
	// ErrConflictingCoverage 与既有代班窗口冲突
	ErrConflictingCoverage = errors.New("conflicting coverage")
	// ErrCoverageNotFound 代班记录不存在
	ErrCoverageNotFound = errors.New("coverage not found")
	// ErrInvalidTransition 状态机不允许的转移（终态不可逆）
	ErrInvalidTransition = errors.New("invalid coverage status transition")
	// ErrAlertAlreadyActive 该 clinic 已存在同类型的未解决报警
	ErrAlertAlreadyActive = errors.New("alert already active")
	// ErrAlertNotFound 报警不存在
	ErrAlertNotFound = errors.New("alert not found")
)
