package notify

import (
	"context"
	"fmt"

	commonredis "clinic-monitor/common/redis"
	"clinic-monitor/internal/config"
	"clinic-monitor/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AlertEvent 报警事件消息（写入 Redis Streams，下游通知消费方订阅）
type AlertEvent struct {
	Event string        `json:"event"`
	Alert *models.Alert `json:"alert"`
}

// StreamPublisher 报警事件流发布器
type StreamPublisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

// NewStreamPublisher 创建流发布器
func NewStreamPublisher(cfg *config.Config, client *redis.Client, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: cfg.Streams.AlertStream,
		logger: logger,
	}
}

// PublishAlertEvent 把报警事件推到流上
func (p *StreamPublisher) PublishAlertEvent(ctx context.Context, event string, alert *models.Alert) error {
	id, err := commonredis.PublishJSONToStream(ctx, p.client, p.stream, AlertEvent{
		Event: event,
		Alert: alert,
	})
	if err != nil {
		return fmt.Errorf("failed to publish alert event: %w", err)
	}

	p.logger.Debug("Alert event published",
		zap.String("stream", p.stream),
		zap.String("message_id", id),
		zap.String("event", event),
		zap.String("alert_id", alert.ID),
	)

	return nil
}
