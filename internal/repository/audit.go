package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clinic-monitor/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditRepository 审计仓库
// 代班状态转移和每轮监控评估的结果都经由 Register 落到 audit_log 表
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository 创建审计仓库
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Register 写入一条审计记录；ID 和 CreatedAt 为空时自动补齐
func (r *AuditRepository) Register(ctx context.Context, record *models.AuditRecord) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if record.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if record.Event == "" {
		return fmt.Errorf("event is required")
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Detail == nil {
		record.Detail = []byte(`{}`)
	}

	query := `
		INSERT INTO audit_log (
			id,
			tenant_id,
			clinic_id,
			performed_by,
			event,
			detail,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		record.ID,
		record.TenantID,
		record.ClinicID,
		record.PerformedBy,
		record.Event,
		record.Detail,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to register audit record: %w", err)
	}

	return nil
}
