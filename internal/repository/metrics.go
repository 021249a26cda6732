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

// MetricsRepository 诊所经营指标与报警仓库
type MetricsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMetricsRepository 创建指标仓库
func NewMetricsRepository(db *sql.DB, logger *zap.Logger) *MetricsRepository {
	return &MetricsRepository{
		db:     db,
		logger: logger,
	}
}

// GetComparison 获取各诊所在指定周期的指标快照（含与上一等长周期的环比变化）
// clinicIDs 为空时覆盖租户下所有活跃诊所；metric 目前只识别 "revenue"
func (r *MetricsRepository) GetComparison(ctx context.Context, tenantID string, clinicIDs []string, metric string, period models.Period) ([]models.ComparisonEntry, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	if metric != models.MetricRevenue {
		return nil, fmt.Errorf("unsupported metric: %s", metric)
	}
	if !period.Start.Before(period.End) {
		return nil, fmt.Errorf("period start must be before end")
	}

	// 上一周期：紧邻当前周期之前的等长窗口
	span := period.End.Sub(period.Start)
	prevStart := period.Start.Add(-span)

	// current/previous 两个窗口各自聚合 clinic_metrics_daily，再按诊所对齐计算环比。
	// 当前窗口没有任何指标行的诊所不返回（内连接），避免无数据诊所被当作全零评估
	query := `
		WITH current_period AS (
			SELECT clinic_id,
			       SUM(revenue)            AS revenue,
			       SUM(appointments)       AS appointments,
			       MAX(active_patients)    AS active_patients,
			       AVG(occupancy_rate)     AS occupancy_rate,
			       AVG(satisfaction)       AS satisfaction
			FROM clinic_metrics_daily
			WHERE tenant_id = $1
			  AND metric_date >= $2 AND metric_date < $3
			GROUP BY clinic_id
		),
		previous_period AS (
			SELECT clinic_id,
			       SUM(revenue)      AS revenue,
			       SUM(appointments) AS appointments
			FROM clinic_metrics_daily
			WHERE tenant_id = $1
			  AND metric_date >= $4 AND metric_date < $2
			GROUP BY clinic_id
		)
		SELECT c.id AS clinic_id,
		       c.name AS clinic_name,
		       COALESCE(cur.revenue, 0),
		       CASE WHEN COALESCE(prev.revenue, 0) = 0 THEN 0
		            ELSE (COALESCE(cur.revenue, 0) - prev.revenue) / prev.revenue * 100
		       END AS revenue_variation_percentage,
		       COALESCE(cur.appointments, 0),
		       CASE WHEN COALESCE(prev.appointments, 0) = 0 THEN 0
		            ELSE (COALESCE(cur.appointments, 0) - prev.appointments)::float / prev.appointments * 100
		       END AS appointments_variation_percentage,
		       COALESCE(cur.active_patients, 0),
		       COALESCE(cur.occupancy_rate, 0),
		       COALESCE(cur.satisfaction, 0)
		FROM clinics c
		JOIN current_period cur ON cur.clinic_id = c.id
		LEFT JOIN previous_period prev ON prev.clinic_id = c.id
		WHERE c.tenant_id = $1
		  AND c.status = 'active'
		  AND ($5::uuid[] IS NULL OR c.id = ANY($5))
		ORDER BY c.name ASC
	`

	var clinicFilter interface{}
	if len(clinicIDs) > 0 {
		clinicFilter = pq.Array(clinicIDs)
	}

	rows, err := r.db.QueryContext(ctx, query, tenantID, period.Start, period.End, prevStart, clinicFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison: %w", err)
	}
	defer rows.Close()

	var entries []models.ComparisonEntry
	for rows.Next() {
		var entry models.ComparisonEntry
		err := rows.Scan(
			&entry.ClinicID,
			&entry.ClinicName,
			&entry.Revenue,
			&entry.RevenueVariationPercentage,
			&entry.Appointments,
			&entry.AppointmentsVariationPercentage,
			&entry.ActivePatients,
			&entry.OccupancyRate,
			&entry.Satisfaction,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comparison entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comparison entries: %w", err)
	}

	return entries, nil
}

// ListActiveAlerts 列出未解决的报警（resolved_at IS NULL）
// 每轮评估开始时用它重建去重集合；limit <= 0 时不限制条数
func (r *MetricsRepository) ListActiveAlerts(ctx context.Context, tenantID string, clinicIDs []string, types []string, limit int) ([]models.Alert, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `
		SELECT id, tenant_id, clinic_id, type, channel,
		       triggered_by, triggered_at, payload, resolved_by, resolved_at
		FROM clinic_alerts
		WHERE tenant_id = $1
		  AND resolved_at IS NULL
		  AND ($2::uuid[] IS NULL OR clinic_id = ANY($2))
		  AND ($3::text[] IS NULL OR type = ANY($3))
		ORDER BY triggered_at DESC
	`

	var clinicFilter, typeFilter interface{}
	if len(clinicIDs) > 0 {
		clinicFilter = pq.Array(clinicIDs)
	}
	if len(types) > 0 {
		typeFilter = pq.Array(types)
	}

	args := []interface{}{tenantID, clinicFilter, typeFilter}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active alerts: %w", err)
	}

	return alerts, nil
}

// CreateAlert 写入一条报警记录
func (r *MetricsRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}

	query := `
		INSERT INTO clinic_alerts (
			id,
			tenant_id,
			clinic_id,
			type,
			channel,
			triggered_by,
			triggered_at,
			payload
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		alert.ID,
		alert.TenantID,
		alert.ClinicID,
		alert.Type,
		alert.Channel,
		alert.TriggeredBy,
		alert.TriggeredAt,
		alert.Payload,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// ResolveAlert 由操作员解除报警；只影响未解决的记录
func (r *MetricsRepository) ResolveAlert(ctx context.Context, tenantID, alertID, resolvedBy string, resolvedAt time.Time) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}

	query := `
		UPDATE clinic_alerts
		SET resolved_by = $1, resolved_at = $2
		WHERE id = $3 AND tenant_id = $4 AND resolved_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, resolvedBy, resolvedAt, alertID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to resolve alert: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("alert %s: %w", alertID, models.ErrAlertNotFound)
	}

	return nil
}

// scanAlert 扫描一行报警记录（处理可空字段）
func scanAlert(rows *sql.Rows) (*models.Alert, error) {
	var alert models.Alert
	var resolvedBy sql.NullString
	var resolvedAt sql.NullTime

	err := rows.Scan(
		&alert.ID,
		&alert.TenantID,
		&alert.ClinicID,
		&alert.Type,
		&alert.Channel,
		&alert.TriggeredBy,
		&alert.TriggeredAt,
		&alert.Payload,
		&resolvedBy,
		&resolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	if resolvedBy.Valid {
		alert.ResolvedBy = &resolvedBy.String
	}
	if resolvedAt.Valid {
		alert.ResolvedAt = &resolvedAt.Time
	}

	return &alert, nil
}
