package hook

import (
	"context"
	"fmt"
	"time"

	"clinic-monitor/internal/config"
	"clinic-monitor/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SchedulingRequest 排班系统请求
type SchedulingRequest struct {
	Coverage      *models.Coverage `json:"coverage"`
	TriggeredBy   string           `json:"triggered_by"`
	TriggerSource string           `json:"trigger_source"`
}

// SchedulingResponse 排班系统响应
type SchedulingResponse struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
}

// SchedulingHookClient 外部排班/日历系统 API 客户端
// 代班激活时占用代班人档期，完结/取消时释放
type SchedulingHookClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewSchedulingHookClient 创建排班钩子客户端
func NewSchedulingHookClient(cfg *config.Config, logger *zap.Logger) *SchedulingHookClient {
	timeout := time.Duration(cfg.Hook.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.Hook.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.Hook.RetryCount).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &SchedulingHookClient{
		httpClient: client,
		logger:     logger,
	}
}

// ApplyCoverage 在排班系统中应用代班
func (c *SchedulingHookClient) ApplyCoverage(ctx context.Context, coverage *models.Coverage, triggeredBy, triggerSource string) error {
	return c.post(ctx, "/scheduling/coverages/apply", coverage, triggeredBy, triggerSource)
}

// ReleaseCoverage 在排班系统中释放代班
func (c *SchedulingHookClient) ReleaseCoverage(ctx context.Context, coverage *models.Coverage, triggeredBy, triggerSource string) error {
	return c.post(ctx, "/scheduling/coverages/release", coverage, triggeredBy, triggerSource)
}

func (c *SchedulingHookClient) post(ctx context.Context, path string, coverage *models.Coverage, triggeredBy, triggerSource string) error {
	request := SchedulingRequest{
		Coverage:      coverage,
		TriggeredBy:   triggeredBy,
		TriggerSource: triggerSource,
	}

	c.logger.Info("Calling scheduling hook",
		zap.String("path", path),
		zap.String("coverage_id", coverage.ID),
		zap.String("trigger_source", triggerSource),
	)

	var response SchedulingResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&response).
		Post(path)

	if err != nil {
		c.logger.Error("Scheduling hook call failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to call scheduling hook: %w", err)
	}

	if resp.IsError() {
		c.logger.Error("Scheduling hook returned error",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", response.Msg),
		)
		return fmt.Errorf("scheduling hook error: %s (status: %d)", response.Msg, resp.StatusCode())
	}

	return nil
}
