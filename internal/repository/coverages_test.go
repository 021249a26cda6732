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

func setupMockCoveragesDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *CoveragesRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewCoveragesRepository(db, logger)

	return db, mock, repo
}

func coverageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "clinic_id", "professional_id", "coverage_professional_id",
		"start_at", "end_at", "status", "reason", "notes", "metadata",
		"created_by", "created_at", "updated_by", "updated_at", "cancelled_by", "cancelled_at",
	})
}

func TestCreateCoverage_Success(t *testing.T) {
	db, mock, repo := setupMockCoveragesDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	coverage := &models.Coverage{
		ID:                     uuid.New().String(),
		TenantID:               uuid.New().String(),
		ClinicID:               uuid.New().String(),
		ProfessionalID:         uuid.New().String(),
		CoverageProfessionalID: uuid.New().String(),
		StartAt:                now.Add(time.Hour),
		EndAt:                  now.Add(5 * time.Hour),
		Status:                 models.CoverageStatusScheduled,
		Reason:                 "vacation",
		Metadata:               []byte(`{}`),
		CreatedBy:              uuid.New().String(),
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	mock.ExpectExec(`INSERT INTO professional_coverages`).
		WithArgs(
			coverage.ID, coverage.TenantID, coverage.ClinicID,
			coverage.ProfessionalID, coverage.CoverageProfessionalID,
			coverage.StartAt, coverage.EndAt, coverage.Status,
			coverage.Reason, coverage.Notes, coverage.Metadata,
			coverage.CreatedBy, coverage.CreatedAt, coverage.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(ctx, coverage)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCoverage_MissingTenantID(t *testing.T) {
	db, mock, repo := setupMockCoveragesDB(t)
	defer db.Close()

	err := repo.Create(context.Background(), &models.Coverage{})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tenant_id is required")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveOverlapping_Conflict(t *testing.T) {
	db, mock, repo := setupMockCoveragesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	clinicID := uuid.New().String()
	professionalID := uuid.New().String()
	substituteID := uuid.New().String()
	now := time.Now().UTC()

	existingID := uuid.New().String()
	rows := coverageRows().AddRow(
		existingID, tenantID, clinicID, professionalID, uuid.New().String(),
		now.Add(-2*time.Hour), now.Add(2*time.Hour), models.CoverageStatusActive,
		"sick leave", nil, []byte(`{}`),
		uuid.New().String(), now.Add(-3*time.Hour), nil, now.Add(-3*time.Hour), nil, nil,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(tenantID, clinicID, professionalID, substituteID, now, now.Add(4*time.Hour)).
		WillReturnRows(rows)

	coverages, err := repo.FindActiveOverlapping(ctx, tenantID, clinicID, professionalID, substituteID, now, now.Add(4*time.Hour))

	require.NoError(t, err)
	require.Len(t, coverages, 1)
	assert.Equal(t, existingID, coverages[0].ID)
	assert.Equal(t, models.CoverageStatusActive, coverages[0].Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveOverlapping_NoConflict(t *testing.T) {
	db, mock, repo := setupMockCoveragesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(coverageRows())

	coverages, err := repo.FindActiveOverlapping(ctx, tenantID, uuid.New().String(),
		uuid.New().String(), uuid.New().String(), now, now.Add(time.Hour))

	require.NoError(t, err)
	assert.Empty(t, coverages)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	db, mock, repo := setupMockCoveragesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	coverageID := uuid.New().String()
	now := time.Now().UTC()

	// 状态守卫没有命中任何行：已处于终态
	mock.ExpectExec(`UPDATE professional_coverages`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(ctx, tenantID, coverageID, models.CoverageStatusActive,
		[]string{models.CoverageStatusScheduled}, "system", now)

	assert.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindScheduledToActivate(t *testing.T) {
	db, mock, repo := setupMockCoveragesDB(t)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	coverageID := uuid.New().String()

	rows := coverageRows().AddRow(
		coverageID, uuid.New().String(), uuid.New().String(), uuid.New().String(), uuid.New().String(),
		now.Add(-10*time.Minute), now.Add(time.Hour), models.CoverageStatusScheduled,
		"training", nil, []byte(`{}`),
		uuid.New().String(), now.Add(-time.Hour), nil, now.Add(-time.Hour), nil, nil,
	)

	mock.ExpectQuery(`SELECT`).
		WithArgs(now).
		WillReturnRows(rows)

	coverages, err := repo.FindScheduledToActivate(ctx, now)

	require.NoError(t, err)
	require.Len(t, coverages, 1)
	assert.Equal(t, coverageID, coverages[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByID_NotFound(t *testing.T) {
	db, mock, repo := setupMockCoveragesDB(t)
	defer db.Close()

	ctx := context.Background()
	tenantID := uuid.New().String()
	coverageID := uuid.New().String()

	mock.ExpectQuery(`SELECT`).
		WithArgs(coverageID, tenantID).
		WillReturnError(sql.ErrNoRows)

	coverage, err := repo.FindByID(ctx, tenantID, coverageID)

	assert.Error(t, err)
	assert.Nil(t, coverage)
	assert.ErrorIs(t, err, models.ErrCoverageNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
