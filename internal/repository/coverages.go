package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinic-monitor/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CoveragesRepository 专业人员代班仓库
type CoveragesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCoveragesRepository 创建代班仓库
func NewCoveragesRepository(db *sql.DB, logger *zap.Logger) *CoveragesRepository {
	return &CoveragesRepository{
		db:     db,
		logger: logger,
	}
}

const coverageColumns = `
	id, tenant_id, clinic_id, professional_id, coverage_professional_id,
	start_at, end_at, status, reason, notes, metadata,
	created_by, created_at, updated_by, updated_at, cancelled_by, cancelled_at
`

// Create 写入一条代班记录
func (r *CoveragesRepository) Create(ctx context.Context, coverage *models.Coverage) error {
	if coverage == nil {
		return fmt.Errorf("coverage is required")
	}
	if coverage.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}

	query := `
		INSERT INTO professional_coverages (
			id,
			tenant_id,
			clinic_id,
			professional_id,
			coverage_professional_id,
			start_at,
			end_at,
			status,
			reason,
			notes,
			metadata,
			created_by,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		coverage.ID,
		coverage.TenantID,
		coverage.ClinicID,
		coverage.ProfessionalID,
		coverage.CoverageProfessionalID,
		coverage.StartAt,
		coverage.EndAt,
		coverage.Status,
		coverage.Reason,
		coverage.Notes,
		coverage.Metadata,
		coverage.CreatedBy,
		coverage.CreatedAt,
		coverage.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create coverage: %w", err)
	}

	return nil
}

// FindByID 按 (tenant_id, id) 查询代班记录
func (r *CoveragesRepository) FindByID(ctx context.Context, tenantID, coverageID string) (*models.Coverage, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if coverageID == "" {
		return nil, fmt.Errorf("coverage_id is required")
	}

	query := `SELECT ` + coverageColumns + `
		FROM professional_coverages
		WHERE id = $1 AND tenant_id = $2
	`

	row := r.db.QueryRowContext(ctx, query, coverageID, tenantID)
	coverage, err := scanCoverageRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("coverage %s: %w", coverageID, models.ErrCoverageNotFound)
		}
		return nil, fmt.Errorf("failed to query coverage: %w", err)
	}

	return coverage, nil
}

// FindActiveOverlapping 冲突检测：返回与 [startAt, endAt) 相交、涉及任一当事人的
// scheduled/active 代班记录。对称规则：professional 和 coverage_professional
// 两个角色都参与匹配，代班人在别处已被占用同样视为冲突
func (r *CoveragesRepository) FindActiveOverlapping(ctx context.Context, tenantID, clinicID, professionalID, coverageProfessionalID string, startAt, endAt time.Time) ([]models.Coverage, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `SELECT ` + coverageColumns + `
		FROM professional_coverages
		WHERE tenant_id = $1
		  AND clinic_id = $2
		  AND status IN ('scheduled', 'active')
		  AND start_at < $6
		  AND end_at > $5
		  AND (
			professional_id IN ($3, $4)
			OR coverage_professional_id IN ($3, $4)
		  )
		ORDER BY start_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, clinicID, professionalID, coverageProfessionalID, startAt, endAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping coverages: %w", err)
	}
	defer rows.Close()

	return collectCoverages(rows)
}

// UpdateStatus 推进代班状态机；fromStatuses 作为 WHERE 守卫防止非法转移
// 没有命中任何行时返回 models.ErrInvalidTransition
func (r *CoveragesRepository) UpdateStatus(ctx context.Context, tenantID, coverageID, newStatus string, fromStatuses []string, updatedBy string, updatedAt time.Time) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if coverageID == "" {
		return fmt.Errorf("coverage_id is required")
	}

	var query string
	var args []interface{}

	if newStatus == models.CoverageStatusCancelled {
		query = `
			UPDATE professional_coverages
			SET status = $1, updated_by = $2, updated_at = $3,
			    cancelled_by = $2, cancelled_at = $3
			WHERE id = $4 AND tenant_id = $5 AND status = ANY($6)
		`
	} else {
		query = `
			UPDATE professional_coverages
			SET status = $1, updated_by = $2, updated_at = $3
			WHERE id = $4 AND tenant_id = $5 AND status = ANY($6)
		`
	}
	args = []interface{}{newStatus, updatedBy, updatedAt, coverageID, tenantID, statusArray(fromStatuses)}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update coverage status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("coverage %s to %s: %w", coverageID, newStatus, models.ErrInvalidTransition)
	}

	return nil
}

// FindScheduledToActivate 扫描查询：窗口已开启的 scheduled 代班
// 选择条件：status = 'scheduled' AND start_at <= reference AND end_at > reference
func (r *CoveragesRepository) FindScheduledToActivate(ctx context.Context, reference time.Time) ([]models.Coverage, error) {
	query := `SELECT ` + coverageColumns + `
		FROM professional_coverages
		WHERE status = 'scheduled'
		  AND start_at <= $1
		  AND end_at > $1
		ORDER BY start_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverages to activate: %w", err)
	}
	defer rows.Close()

	return collectCoverages(rows)
}

// FindDueToComplete 扫描查询：窗口已结束的 active 代班
// 选择条件：status = 'active' AND end_at <= reference
func (r *CoveragesRepository) FindDueToComplete(ctx context.Context, reference time.Time) ([]models.Coverage, error) {
	query := `SELECT ` + coverageColumns + `
		FROM professional_coverages
		WHERE status = 'active'
		  AND end_at <= $1
		ORDER BY end_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverages to complete: %w", err)
	}
	defer rows.Close()

	return collectCoverages(rows)
}

// statusArray 构造 status = ANY(...) 的参数
func statusArray(statuses []string) interface{} {
	return pq.Array(statuses)
}

// collectCoverages 扫描多行代班记录
func collectCoverages(rows *sql.Rows) ([]models.Coverage, error) {
	var coverages []models.Coverage
	for rows.Next() {
		coverage, err := scanCoverage(rows)
		if err != nil {
			return nil, err
		}
		coverages = append(coverages, *coverage)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate coverages: %w", err)
	}

	return coverages, nil
}

// rowScanner QueryRow 和 Rows 的公共扫描接口
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCoverage(rows *sql.Rows) (*models.Coverage, error) {
	coverage, err := scanCoverageRow(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan coverage: %w", err)
	}
	return coverage, nil
}

func scanCoverageRow(row rowScanner) (*models.Coverage, error) {
	var coverage models.Coverage
	var notes, updatedBy, cancelledBy sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&coverage.ID,
		&coverage.TenantID,
		&coverage.ClinicID,
		&coverage.ProfessionalID,
		&coverage.CoverageProfessionalID,
		&coverage.StartAt,
		&coverage.EndAt,
		&coverage.Status,
		&coverage.Reason,
		&notes,
		&coverage.Metadata,
		&coverage.CreatedBy,
		&coverage.CreatedAt,
		&updatedBy,
		&coverage.UpdatedAt,
		&cancelledBy,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		coverage.Notes = &notes.String
	}
	if updatedBy.Valid {
		coverage.UpdatedBy = &updatedBy.String
	}
	if cancelledBy.Valid {
		coverage.CancelledBy = &cancelledBy.String
	}
	if cancelledAt.Valid {
		coverage.CancelledAt = &cancelledAt.Time
	}

	return &coverage, nil
}
