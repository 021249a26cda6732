package models

import "time"

// 成员状态与角色
const (
	MemberStatusActive = "active"

	MemberRoleProfessional = "PROFESSIONAL"
)

// Clinic 诊所（租户下的运营单元）
type Clinic struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClinicMember 诊所成员关系（用户在某诊所的角色与状态）
type ClinicMember struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	ClinicID string `json:"clinic_id" db:"clinic_id"`
	UserID   string `json:"user_id" db:"user_id"`
	Role     string `json:"role" db:"role"`
	Status   string `json:"status" db:"status"`
}

// IsActiveProfessional 是否为在岗专业人员
func (m *ClinicMember) IsActiveProfessional() bool {
	return m.Status == MemberStatusActive && m.Role == MemberRoleProfessional
}

// ComplianceDocument 合规文件（执照、许可证等，带到期时间）
type ComplianceDocument struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	ClinicID  string    `json:"clinic_id" db:"clinic_id"`
	Name      string    `json:"name" db:"name"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
