package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-monitor/internal/models"
)

func setupMockMetricsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *MetricsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewMetricsRepository(db, logger)

	return db, mock, repo
}

func TestGetComparison_Success(t *testing.T) {
	db, mock, repo := setupMockMetricsDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	clinicID := uuid.New().String()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	rows := sqlmock.NewRows([]string{
		"clinic_id", "clinic_name", "revenue", "revenue_variation_percentage",
		"appointments", "appointments_variation_percentage",
		"active_patients", "occupancy_rate", "satisfaction",
	}).AddRow(
		clinicID, "Downtown Clinic", 10000.0, -25.0,
		120, -10.0,
		85, 0.62, 4.5,
	)

	mock.ExpectQuery(`WITH current_period`).
		WillReturnRows(rows)

	entries, err := repo.GetComparison(ctx, tenantID, nil, models.MetricRevenue, models.Period{Start: start, End: end})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, clinicID, entries[0].ClinicID)
	assert.Equal(t, 10000.0, entries[0].Revenue)
	assert.Equal(t, -25.0, entries[0].RevenueVariationPercentage)
	assert.Equal(t, 0.62, entries[0].OccupancyRate)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetComparison_ClinicsWithoutDataExcluded(t *testing.T) {
	db, mock, repo := setupMockMetricsDB(t)
	defer db.Close()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)

	// 当前窗口必须是内连接：没有指标行的诊所不出现在结果里，
	// 不会被当作全零条目触发 low_occupancy
	mock.ExpectQuery(`FROM clinics c\s+JOIN current_period`).
		WillReturnRows(sqlmock.NewRows([]string{
			"clinic_id", "clinic_name", "revenue", "revenue_variation_percentage",
			"appointments", "appointments_variation_percentage",
			"active_patients", "occupancy_rate", "satisfaction",
		}))

	entries, err := repo.GetComparison(context.Background(), uuid.New().String(), nil,
		models.MetricRevenue, models.Period{Start: start, End: end})

	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetComparison_UnsupportedMetric(t *testing.T) {
	db, mock, repo := setupMockMetricsDB(t)
	defer db.Close()

	end := time.Now().UTC()
	entries, err := repo.GetComparison(context.Background(), uuid.New().String(), nil,
		"satisfaction", models.Period{Start: end.AddDate(0, 0, -30), End: end})

	assert.Error(t, err)
	assert.Nil(t, entries)
	assert.Contains(t, err.Error(), "unsupported metric")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveAlerts_Success(t *testing.T) {
	db, mock, repo := setupMockMetricsDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	clinicID := uuid.New().String()
	alertID := uuid.New().String()
	triggeredAt := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "clinic_id", "type", "channel",
		"triggered_by", "triggered_at", "payload", "resolved_by", "resolved_at",
	}).AddRow(
		alertID, tenantID, clinicID, models.AlertTypeRevenueDrop, "in_app",
		"system:monitor", triggeredAt, []byte(`{"revenue": 10000}`), nil, nil,
	)

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(rows)

	alerts, err := repo.ListActiveAlerts(ctx, tenantID, []string{clinicID}, models.MonitoredAlertTypes, 0)

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, alertID, alerts[0].ID)
	assert.Equal(t, models.AlertTypeRevenueDrop, alerts[0].Type)
	assert.True(t, alerts[0].IsActive())
	assert.Equal(t, clinicID+":"+models.AlertTypeRevenueDrop, alerts[0].DedupKey())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAlert_Success(t *testing.T) {
	db, mock, repo := setupMockMetricsDB(t)
	defer db.Close()

	ctx := context.Background()
	alert := &models.Alert{
		ID:          uuid.New().String(),
		TenantID:    uuid.New().String(),
		ClinicID:    uuid.New().String(),
		Type:        models.AlertTypeLowOccupancy,
		Channel:     "in_app",
		TriggeredBy: "system:monitor",
		TriggeredAt: time.Now().UTC(),
		Payload:     []byte(`{"occupancy_rate": 0.4}`),
	}

	mock.ExpectExec(`INSERT INTO clinic_alerts`).
		WithArgs(
			alert.ID, alert.TenantID, alert.ClinicID, alert.Type,
			alert.Channel, alert.TriggeredBy, alert.TriggeredAt, alert.Payload,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateAlert(ctx, alert)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAlert_NotFound(t *testing.T) {
	db, mock, repo := setupMockMetricsDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	alertID := uuid.New().String()

	mock.ExpectExec(`UPDATE clinic_alerts`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ResolveAlert(ctx, tenantID, alertID, uuid.New().String(), time.Now().UTC())

	assert.Error(t, err)
	assert.ErrorIs(t, err, models.ErrAlertNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
