package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-monitor/internal/models"
)

// ============================================
// 测试用的协作方假实现
// ============================================

type fakeAlertStore struct {
	active   []models.Alert
	created  []*models.Alert
	resolved []string

	resolveErr error
}

func (f *fakeAlertStore) ListActiveAlerts(ctx context.Context, tenantID string, clinicIDs []string, types []string, limit int) ([]models.Alert, error) {
	var hits []models.Alert
	for _, alert := range f.active {
		if len(clinicIDs) > 0 && alert.ClinicID != clinicIDs[0] {
			continue
		}
		if len(types) > 0 && alert.Type != types[0] {
			continue
		}
		hits = append(hits, alert)
	}
	return hits, nil
}

func (f *fakeAlertStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	f.created = append(f.created, alert)
	return nil
}

func (f *fakeAlertStore) ResolveAlert(ctx context.Context, tenantID, alertID, resolvedBy string, resolvedAt time.Time) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.resolved = append(f.resolved, alertID)
	return nil
}

type publishedEvent struct {
	event string
	alert *models.Alert
}

type fakeAlertPublisher struct {
	events []publishedEvent
}

func (f *fakeAlertPublisher) PublishAlertEvent(ctx context.Context, event string, alert *models.Alert) error {
	f.events = append(f.events, publishedEvent{event: event, alert: alert})
	return nil
}

func newTriggerFixture() (*AlertTriggerService, *fakeAlertStore, *fakeAlertPublisher, *fakeAuditSink) {
	store := &fakeAlertStore{}
	publisher := &fakeAlertPublisher{}
	audit := &fakeAuditSink{}
	service := NewAlertTriggerService(store, publisher, audit, zap.NewNop())
	service.now = func() time.Time { return testNow }
	return service, store, publisher, audit
}

// ============================================
// Trigger / Resolve
// ============================================

func TestTriggerAlert_Success(t *testing.T) {
	service, store, publisher, audit := newTriggerFixture()

	alert, err := service.Trigger(context.Background(), models.TriggerAlertInput{
		TenantID:    "tenant-1",
		ClinicID:    "clinic-1",
		Type:        models.AlertTypeLowOccupancy,
		Channel:     "in_app",
		TriggeredBy: "system:monitor",
		Payload:     json.RawMessage(`{"occupancy_rate":0.4}`),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, testNow, alert.TriggeredAt)
	assert.True(t, alert.IsActive())

	require.Len(t, store.created, 1)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.AuditEventAlertTriggered, publisher.events[0].event)
	assert.Equal(t, []string{models.AuditEventAlertTriggered}, audit.events())
}

func TestTriggerAlert_DuplicateActive(t *testing.T) {
	service, store, publisher, _ := newTriggerFixture()
	store.active = []models.Alert{
		{ID: "existing", ClinicID: "clinic-1", Type: models.AlertTypeLowOccupancy},
	}

	_, err := service.Trigger(context.Background(), models.TriggerAlertInput{
		TenantID: "tenant-1",
		ClinicID: "clinic-1",
		Type:     models.AlertTypeLowOccupancy,
	})

	assert.ErrorIs(t, err, models.ErrAlertAlreadyActive)
	assert.Empty(t, store.created)
	assert.Empty(t, publisher.events)
}

func TestTriggerAlert_OtherTypeNotBlocked(t *testing.T) {
	// clinic-1 已有 revenue_drop 未解决：不阻塞 low_occupancy
	service, store, _, _ := newTriggerFixture()
	store.active = []models.Alert{
		{ID: "existing", ClinicID: "clinic-1", Type: models.AlertTypeRevenueDrop},
	}

	_, err := service.Trigger(context.Background(), models.TriggerAlertInput{
		TenantID: "tenant-1",
		ClinicID: "clinic-1",
		Type:     models.AlertTypeLowOccupancy,
	})

	require.NoError(t, err)
	assert.Len(t, store.created, 1)
}

func TestTriggerAlert_EmptyPayloadDefaulted(t *testing.T) {
	service, store, _, _ := newTriggerFixture()

	_, err := service.Trigger(context.Background(), models.TriggerAlertInput{
		TenantID: "tenant-1",
		ClinicID: "clinic-1",
		Type:     models.AlertTypeCompliance,
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(store.created[0].Payload))
}

func TestTriggerAlert_MissingFields(t *testing.T) {
	service, store, _, _ := newTriggerFixture()

	_, err := service.Trigger(context.Background(), models.TriggerAlertInput{
		TenantID: "tenant-1",
		ClinicID: "clinic-1",
	})

	assert.Error(t, err)
	assert.Empty(t, store.created)
}

func TestResolveAlert_Success(t *testing.T) {
	service, store, publisher, audit := newTriggerFixture()

	err := service.Resolve(context.Background(), "tenant-1", "alert-1", "operator")

	require.NoError(t, err)
	assert.Equal(t, []string{"alert-1"}, store.resolved)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.AuditEventAlertResolved, publisher.events[0].event)
	assert.Equal(t, []string{models.AuditEventAlertResolved}, audit.events())
}

func TestResolveAlert_NotFoundPropagated(t *testing.T) {
	service, store, publisher, _ := newTriggerFixture()
	store.resolveErr = models.ErrAlertNotFound

	err := service.Resolve(context.Background(), "tenant-1", "missing", "operator")

	assert.ErrorIs(t, err, models.ErrAlertNotFound)
	assert.Empty(t, publisher.events)
}
