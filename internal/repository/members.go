package repository

import (
	"context"
	"database/sql"
	"fmt"

	"clinic-monitor/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// MembersRepository 诊所成员仓库
type MembersRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMembersRepository 创建诊所成员仓库
func NewMembersRepository(db *sql.DB, logger *zap.Logger) *MembersRepository {
	return &MembersRepository{
		db:     db,
		logger: logger,
	}
}

// FindActiveByClinicAndUser 查询用户在某诊所的在岗成员关系
// 只返回 status = 'active' 的记录，不存在时返回 models.ErrMemberNotFound
func (r *MembersRepository) FindActiveByClinicAndUser(ctx context.Context, tenantID, clinicID, userID string) (*models.ClinicMember, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if clinicID == "" || userID == "" {
		return nil, fmt.Errorf("clinic_id and user_id are required")
	}

	query := `
		SELECT id, tenant_id, clinic_id, user_id, role, status
		FROM clinic_members
		WHERE tenant_id = $1
		  AND clinic_id = $2
		  AND user_id = $3
		  AND status = 'active'
	`

	var member models.ClinicMember
	err := r.db.QueryRowContext(ctx, query, tenantID, clinicID, userID).Scan(
		&member.ID,
		&member.TenantID,
		&member.ClinicID,
		&member.UserID,
		&member.Role,
		&member.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %s in clinic %s: %w", userID, clinicID, models.ErrMemberNotFound)
		}
		return nil, fmt.Errorf("failed to query clinic member: %w", err)
	}

	return &member, nil
}

// CountActiveProfessionalsByClinics 批量统计各诊所的在岗专业人员数
// 返回 clinic_id → count；没有任何在岗专业人员的诊所不会出现在结果里
func (r *MembersRepository) CountActiveProfessionalsByClinics(ctx context.Context, tenantID string, clinicIDs []string) (map[string]int, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if len(clinicIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT clinic_id, COUNT(*) AS professionals
		FROM clinic_members
		WHERE tenant_id = $1
		  AND clinic_id = ANY($2)
		  AND role = 'PROFESSIONAL'
		  AND status = 'active'
		GROUP BY clinic_id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(clinicIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count active professionals: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var clinicID string
		var count int
		if err := rows.Scan(&clinicID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan professional count: %w", err)
		}
		counts[clinicID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate professional counts: %w", err)
	}

	return counts, nil
}
