package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinic-monitor/internal/config"
	"clinic-monitor/internal/models"
)

func setupTestPublisher(t *testing.T) (*redis.Client, *StreamPublisher) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cfg := &config.Config{}
	cfg.Streams.AlertStream = "clinic:alerts:events"

	publisher := NewStreamPublisher(cfg, redisClient, zap.NewNop())
	return redisClient, publisher
}

func TestPublishAlertEvent_Success(t *testing.T) {
	redisClient, publisher := setupTestPublisher(t)
	ctx := context.Background()

	alert := &models.Alert{
		ID:          "alert-1",
		TenantID:    "tenant-1",
		ClinicID:    "clinic-1",
		Type:        models.AlertTypeRevenueDrop,
		Channel:     "in_app",
		TriggeredBy: "system:monitor",
		TriggeredAt: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}

	err := publisher.PublishAlertEvent(ctx, models.AuditEventAlertTriggered, alert)
	require.NoError(t, err)

	// 流上正好一条消息，data 字段携带完整事件
	messages, err := redisClient.XRange(ctx, "clinic:alerts:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var event AlertEvent
	require.NoError(t, json.Unmarshal([]byte(messages[0].Values["data"].(string)), &event))
	assert.Equal(t, models.AuditEventAlertTriggered, event.Event)
	assert.Equal(t, "alert-1", event.Alert.ID)
	assert.Equal(t, models.AlertTypeRevenueDrop, event.Alert.Type)
}

func TestPublishAlertEvent_MultipleOrdered(t *testing.T) {
	redisClient, publisher := setupTestPublisher(t)
	ctx := context.Background()

	for _, id := range []string{"alert-1", "alert-2"} {
		err := publisher.PublishAlertEvent(ctx, models.AuditEventAlertTriggered, &models.Alert{ID: id})
		require.NoError(t, err)
	}

	length, err := redisClient.XLen(ctx, "clinic:alerts:events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}
