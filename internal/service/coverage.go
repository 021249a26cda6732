package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinic-monitor/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 系统执行者标识（后台扫描触发的状态转移）
const SystemSchedulerActor = "system:scheduler"

// 代班激活来源
const (
	TriggerSourceManual    = "manual"
	TriggerSourceScheduler = "scheduler"
)

// ClinicFinder 诊所查询协作方
type ClinicFinder interface {
	FindByTenant(ctx context.Context, tenantID, clinicID string) (*models.Clinic, error)
}

// MemberFinder 诊所成员查询协作方
type MemberFinder interface {
	FindActiveByClinicAndUser(ctx context.Context, tenantID, clinicID, userID string) (*models.ClinicMember, error)
}

// CoverageStore 代班记录存储协作方
type CoverageStore interface {
	Create(ctx context.Context, coverage *models.Coverage) error
	FindByID(ctx context.Context, tenantID, coverageID string) (*models.Coverage, error)
	FindActiveOverlapping(ctx context.Context, tenantID, clinicID, professionalID, coverageProfessionalID string, startAt, endAt time.Time) ([]models.Coverage, error)
	UpdateStatus(ctx context.Context, tenantID, coverageID, newStatus string, fromStatuses []string, updatedBy string, updatedAt time.Time) error
	FindScheduledToActivate(ctx context.Context, reference time.Time) ([]models.Coverage, error)
	FindDueToComplete(ctx context.Context, reference time.Time) ([]models.Coverage, error)
}

// SchedulingHook 外部排班系统钩子
// 每次激活/释放保证恰好调用一次
type SchedulingHook interface {
	ApplyCoverage(ctx context.Context, coverage *models.Coverage, triggeredBy, triggerSource string) error
	ReleaseCoverage(ctx context.Context, coverage *models.Coverage, triggeredBy, triggerSource string) error
}

// AuditSink 审计记录协作方
type AuditSink interface {
	Register(ctx context.Context, record *models.AuditRecord) error
}

// CreateCoverageInput 创建代班的输入
type CreateCoverageInput struct {
	TenantID               string          `json:"tenant_id"`
	ClinicID               string          `json:"clinic_id"`
	ProfessionalID         string          `json:"professional_id"`
	CoverageProfessionalID string          `json:"coverage_professional_id"`
	StartAt                time.Time       `json:"start_at"`
	EndAt                  time.Time       `json:"end_at"`
	Reason                 string          `json:"reason"`
	Notes                  *string         `json:"notes,omitempty"`
	Metadata               json.RawMessage `json:"metadata,omitempty"`
	CreatedBy              string          `json:"created_by"`
}

// CoverageService 代班生命周期管理
// 负责创建校验、状态机推进和到期扫描
type CoverageService struct {
	clinics   ClinicFinder
	members   MemberFinder
	coverages CoverageStore
	hook      SchedulingHook
	audit     AuditSink
	logger    *zap.Logger

	now func() time.Time
}

// NewCoverageService 创建代班服务
func NewCoverageService(
	clinics ClinicFinder,
	members MemberFinder,
	coverages CoverageStore,
	hook SchedulingHook,
	audit AuditSink,
	logger *zap.Logger,
) *CoverageService {
	return &CoverageService{
		clinics:   clinics,
		members:   members,
		coverages: coverages,
		hook:      hook,
		audit:     audit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateCoverage 创建代班记录
// 校验步骤（2-5）是纯校验，不产生任何写入；全部通过后才落库，
// 窗口已开启时随即激活并恰好调用一次排班钩子
func (s *CoverageService) CreateCoverage(ctx context.Context, input CreateCoverageInput) (*models.Coverage, error) {
	if input.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}
	now := s.now()

	// 1. 解析诊所
	clinic, err := s.clinics.FindByTenant(ctx, input.TenantID, input.ClinicID)
	if err != nil {
		return nil, err
	}

	// 2. 期限校验
	if err := validateCoveragePeriod(input.StartAt, input.EndAt, now); err != nil {
		return nil, err
	}

	// 3. 当事人必须不同
	if input.ProfessionalID == input.CoverageProfessionalID {
		return nil, fmt.Errorf("professional and coverage professional must differ: %w", models.ErrInvalidClinicData)
	}

	// 4. 双方都必须是该诊所的在岗专业人员
	for _, userID := range []string{input.ProfessionalID, input.CoverageProfessionalID} {
		member, err := s.members.FindActiveByClinicAndUser(ctx, input.TenantID, input.ClinicID, userID)
		if err != nil {
			return nil, err
		}
		if !member.IsActiveProfessional() {
			return nil, fmt.Errorf("member %s is not an active professional: %w", userID, models.ErrInvalidClinicData)
		}
	}

	// 5. 冲突检测（对称：两个角色都参与匹配）
	overlapping, err := s.coverages.FindActiveOverlapping(ctx,
		input.TenantID, input.ClinicID,
		input.ProfessionalID, input.CoverageProfessionalID,
		input.StartAt, input.EndAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to check overlapping coverages: %w", err)
	}
	if len(overlapping) > 0 {
		return nil, fmt.Errorf("%d overlapping coverage(s) in window: %w", len(overlapping), models.ErrConflictingCoverage)
	}

	// 6. 落库（scheduled）
	metadata := input.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage(`{}`)
	}
	coverage := &models.Coverage{
		ID:                     uuid.New().String(),
		TenantID:               input.TenantID,
		ClinicID:               clinic.ID,
		ProfessionalID:         input.ProfessionalID,
		CoverageProfessionalID: input.CoverageProfessionalID,
		StartAt:                input.StartAt,
		EndAt:                  input.EndAt,
		Status:                 models.CoverageStatusScheduled,
		Reason:                 input.Reason,
		Notes:                  input.Notes,
		Metadata:               metadata,
		CreatedBy:              input.CreatedBy,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.coverages.Create(ctx, coverage); err != nil {
		return nil, err
	}
	s.registerCoverageAudit(ctx, coverage, input.CreatedBy, models.AuditEventCoverageCreated, nil)

	// 7. 窗口已开启：立即激活
	if coverage.WindowContains(now) {
		if err := s.activate(ctx, coverage, input.CreatedBy, TriggerSourceManual, now); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Coverage created",
		zap.String("tenant_id", coverage.TenantID),
		zap.String("coverage_id", coverage.ID),
		zap.String("status", coverage.Status),
	)

	return coverage, nil
}

// CancelCoverage 取消代班（仅 scheduled/active 可取消）
// active 状态下取消会释放外部排班占用
func (s *CoverageService) CancelCoverage(ctx context.Context, tenantID, coverageID, cancelledBy string) (*models.Coverage, error) {
	coverage, err := s.coverages.FindByID(ctx, tenantID, coverageID)
	if err != nil {
		return nil, err
	}
	if coverage.IsTerminal() {
		return nil, fmt.Errorf("coverage %s is %s: %w", coverageID, coverage.Status, models.ErrInvalidTransition)
	}
	wasActive := coverage.Status == models.CoverageStatusActive

	now := s.now()
	err = s.coverages.UpdateStatus(ctx, tenantID, coverageID,
		models.CoverageStatusCancelled,
		[]string{models.CoverageStatusScheduled, models.CoverageStatusActive},
		cancelledBy, now,
	)
	if err != nil {
		return nil, err
	}

	coverage.Status = models.CoverageStatusCancelled
	coverage.UpdatedBy = &cancelledBy
	coverage.UpdatedAt = now
	coverage.CancelledBy = &cancelledBy
	coverage.CancelledAt = &now

	if wasActive {
		if err := s.hook.ReleaseCoverage(ctx, coverage, cancelledBy, TriggerSourceManual); err != nil {
			s.logger.Error("Failed to release coverage in scheduling hook",
				zap.String("coverage_id", coverage.ID),
				zap.Error(err),
			)
		}
	}
	s.registerCoverageAudit(ctx, coverage, cancelledBy, models.AuditEventCoverageCancelled, map[string]interface{}{
		"was_active": wasActive,
	})

	s.logger.Info("Coverage cancelled",
		zap.String("tenant_id", tenantID),
		zap.String("coverage_id", coverageID),
		zap.Bool("was_active", wasActive),
	)

	return coverage, nil
}

// ActivateDue 扫描并激活窗口已开启的 scheduled 代班
// 单条失败不影响其余记录，返回成功激活的条数
func (s *CoverageService) ActivateDue(ctx context.Context, reference time.Time) (int, error) {
	if reference.IsZero() {
		reference = s.now()
	}

	due, err := s.coverages.FindScheduledToActivate(ctx, reference)
	if err != nil {
		return 0, fmt.Errorf("failed to find coverages to activate: %w", err)
	}

	activated := 0
	for i := range due {
		coverage := &due[i]
		if err := s.activate(ctx, coverage, SystemSchedulerActor, TriggerSourceScheduler, reference); err != nil {
			s.logger.Error("Failed to activate due coverage",
				zap.String("tenant_id", coverage.TenantID),
				zap.String("coverage_id", coverage.ID),
				zap.Error(err),
			)
			continue
		}
		activated++
	}

	return activated, nil
}

// CompleteDue 扫描并完结窗口已结束的 active 代班
func (s *CoverageService) CompleteDue(ctx context.Context, reference time.Time) (int, error) {
	if reference.IsZero() {
		reference = s.now()
	}

	due, err := s.coverages.FindDueToComplete(ctx, reference)
	if err != nil {
		return 0, fmt.Errorf("failed to find coverages to complete: %w", err)
	}

	completed := 0
	for i := range due {
		coverage := &due[i]
		err := s.coverages.UpdateStatus(ctx, coverage.TenantID, coverage.ID,
			models.CoverageStatusCompleted,
			[]string{models.CoverageStatusActive},
			SystemSchedulerActor, reference,
		)
		if err != nil {
			s.logger.Error("Failed to complete due coverage",
				zap.String("tenant_id", coverage.TenantID),
				zap.String("coverage_id", coverage.ID),
				zap.Error(err),
			)
			continue
		}
		coverage.Status = models.CoverageStatusCompleted

		if err := s.hook.ReleaseCoverage(ctx, coverage, SystemSchedulerActor, TriggerSourceScheduler); err != nil {
			s.logger.Error("Failed to release coverage in scheduling hook",
				zap.String("coverage_id", coverage.ID),
				zap.Error(err),
			)
		}
		s.registerCoverageAudit(ctx, coverage, SystemSchedulerActor, models.AuditEventCoverageCompleted, nil)
		completed++
	}

	return completed, nil
}

// activate 推进 scheduled → active，调用排班钩子并记审计
func (s *CoverageService) activate(ctx context.Context, coverage *models.Coverage, actor, source string, at time.Time) error {
	err := s.coverages.UpdateStatus(ctx, coverage.TenantID, coverage.ID,
		models.CoverageStatusActive,
		[]string{models.CoverageStatusScheduled},
		actor, at,
	)
	if err != nil {
		return err
	}
	coverage.Status = models.CoverageStatusActive
	coverage.UpdatedBy = &actor
	coverage.UpdatedAt = at

	if err := s.hook.ApplyCoverage(ctx, coverage, actor, source); err != nil {
		// 不回滚不重试：下一轮扫描前由人工介入，失败进入日志与审计
		s.logger.Error("Failed to apply coverage in scheduling hook",
			zap.String("coverage_id", coverage.ID),
			zap.String("trigger_source", source),
			zap.Error(err),
		)
	}
	s.registerCoverageAudit(ctx, coverage, actor, models.AuditEventCoverageActivated, map[string]interface{}{
		"trigger_source": source,
	})

	return nil
}

// registerCoverageAudit 写一条代班审计记录；失败仅记日志，不阻断主流程
func (s *CoverageService) registerCoverageAudit(ctx context.Context, coverage *models.Coverage, performedBy, event string, extra map[string]interface{}) {
	detail := map[string]interface{}{
		"coverage_id":              coverage.ID,
		"professional_id":          coverage.ProfessionalID,
		"coverage_professional_id": coverage.CoverageProfessionalID,
		"start_at":                 coverage.StartAt,
		"end_at":                   coverage.EndAt,
		"status":                   coverage.Status,
	}
	for k, v := range extra {
		detail[k] = v
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		s.logger.Error("Failed to marshal audit detail", zap.Error(err))
		payload = json.RawMessage(`{}`)
	}

	clinicID := coverage.ClinicID
	record := &models.AuditRecord{
		TenantID:    coverage.TenantID,
		ClinicID:    &clinicID,
		PerformedBy: performedBy,
		Event:       event,
		Detail:      payload,
	}
	if err := s.audit.Register(ctx, record); err != nil {
		s.logger.Error("Failed to register audit record",
			zap.String("event", event),
			zap.String("coverage_id", coverage.ID),
			zap.Error(err),
		)
	}
}

// validateCoveragePeriod 期限校验
// start < end、跨度 ≤ 31 天、end 必须在未来、start 不得早于当前时间 15 分钟以上
func validateCoveragePeriod(startAt, endAt, now time.Time) error {
	if startAt.IsZero() || endAt.IsZero() {
		return fmt.Errorf("start_at and end_at are required: %w", models.ErrInvalidPeriod)
	}
	if !startAt.Before(endAt) {
		return fmt.Errorf("start_at must be before end_at: %w", models.ErrInvalidPeriod)
	}
	if endAt.Sub(startAt) > models.CoverageMaxSpanDays*24*time.Hour {
		return fmt.Errorf("coverage span exceeds %d days: %w", models.CoverageMaxSpanDays, models.ErrInvalidPeriod)
	}
	if !endAt.After(now) {
		return fmt.Errorf("end_at must be in the future: %w", models.ErrInvalidPeriod)
	}
	if startAt.Before(now.Add(-models.CoverageStartDriftTolerance)) {
		return fmt.Errorf("start_at is too far in the past: %w", models.ErrInvalidPeriod)
	}
	return nil
}
