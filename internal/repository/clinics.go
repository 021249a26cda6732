package repository

import (
	"context"
	"database/sql"
	"fmt"

	"clinic-monitor/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ClinicsRepository 诊所仓库
type ClinicsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClinicsRepository 创建诊所仓库
func NewClinicsRepository(db *sql.DB, logger *zap.Logger) *ClinicsRepository {
	return &ClinicsRepository{
		db:     db,
		logger: logger,
	}
}

// FindByTenant 按 (tenant_id, clinic_id) 查询诊所
func (r *ClinicsRepository) FindByTenant(ctx context.Context, tenantID, clinicID string) (*models.Clinic, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if clinicID == "" {
		return nil, fmt.Errorf("clinic_id is required")
	}

	query := `
		SELECT id, tenant_id, name, status, created_at
		FROM clinics
		WHERE id = $1 AND tenant_id = $2
	`

	var clinic models.Clinic
	err := r.db.QueryRowContext(ctx, query, clinicID, tenantID).Scan(
		&clinic.ID,
		&clinic.TenantID,
		&clinic.Name,
		&clinic.Status,
		&clinic.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("clinic %s: %w", clinicID, models.ErrClinicNotFound)
		}
		return nil, fmt.Errorf("failed to query clinic: %w", err)
	}

	return &clinic, nil
}

// ListTenantIDs 列出所有存在活跃诊所的租户ID（调度器逐租户评估时使用）
func (r *ClinicsRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT tenant_id
		FROM clinics
		WHERE status = 'active'
		ORDER BY tenant_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant ids: %w", err)
	}
	defer rows.Close()

	var tenantIDs []string
	for rows.Next() {
		var tenantID string
		if err := rows.Scan(&tenantID); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		tenantIDs = append(tenantIDs, tenantID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenant ids: %w", err)
	}

	return tenantIDs, nil
}

// ListComplianceDocuments 列出诊所的合规文件（执照、许可证等）
// clinicIDs 为空时返回租户下所有诊所的文件
func (r *ClinicsRepository) ListComplianceDocuments(ctx context.Context, tenantID string, clinicIDs []string) ([]models.ComplianceDocument, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT id, tenant_id, clinic_id, name, expires_at
		FROM compliance_documents
		WHERE tenant_id = $1
		  AND ($2::uuid[] IS NULL OR clinic_id = ANY($2))
		ORDER BY expires_at ASC
	`

	var clinicFilter interface{}
	if len(clinicIDs) > 0 {
		clinicFilter = pq.Array(clinicIDs)
	}

	rows, err := r.db.QueryContext(ctx, query, tenantID, clinicFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to query compliance documents: %w", err)
	}
	defer rows.Close()

	var docs []models.ComplianceDocument
	for rows.Next() {
		var doc models.ComplianceDocument
		if err := rows.Scan(&doc.ID, &doc.TenantID, &doc.ClinicID, &doc.Name, &doc.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan compliance document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate compliance documents: %w", err)
	}

	return docs, nil
}
