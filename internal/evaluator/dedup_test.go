package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clinic-monitor/internal/models"
)

func TestDedupRegistry_BuildFromActiveAlerts(t *testing.T) {
	alerts := []models.Alert{
		{ClinicID: "clinic-1", Type: models.AlertTypeRevenueDrop},
		{ClinicID: "clinic-2", Type: models.AlertTypeLowOccupancy},
	}

	registry := NewDedupRegistry(alerts)

	assert.Equal(t, 2, registry.Size())
	assert.True(t, registry.Has("clinic-1", models.AlertTypeRevenueDrop))
	assert.True(t, registry.Has("clinic-2", models.AlertTypeLowOccupancy))
	assert.False(t, registry.Has("clinic-1", models.AlertTypeLowOccupancy))
	assert.False(t, registry.Has("clinic-3", models.AlertTypeRevenueDrop))
}

func TestDedupRegistry_AddAfterTrigger(t *testing.T) {
	registry := NewDedupRegistry(nil)

	assert.False(t, registry.Has("clinic-1", models.AlertTypeCompliance))

	registry.Add("clinic-1", models.AlertTypeCompliance)

	assert.True(t, registry.Has("clinic-1", models.AlertTypeCompliance))
	assert.Equal(t, 1, registry.Size())
}

func TestDedupRegistry_Key(t *testing.T) {
	registry := NewDedupRegistry(nil)
	assert.Equal(t, "clinic-1:revenue_drop", registry.Key("clinic-1", models.AlertTypeRevenueDrop))
}
