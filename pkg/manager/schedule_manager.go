package manager

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/metrics"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
)

// ScheduleManager 命名调度管理
type ScheduleManager struct {
	schedules store.ScheduleStore
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewScheduleManager(schedules store.ScheduleStore, m *metrics.Metrics) *ScheduleManager {
	return &ScheduleManager{schedules: schedules, metrics: m, now: time.Now}
}

func (m *ScheduleManager) CreateSchedule(ctx context.Context, params model.ScheduleParams) (s *model.Schedule, err error) {
	defer func() { m.metrics.ObserveOperation("create_schedule", err) }()

	schedule, err := model.NewSchedule(params)
	if err != nil {
		return nil, err
	}
	s, err = m.schedules.Create(ctx, schedule)
	if err != nil {
		return nil, err
	}
	logger.Info("schedule created",
		zap.String("schedule_id", s.ScheduleID),
		zap.String("collector_id", s.CollectorID),
		zap.Strings("kinds", s.Schedule.Kinds()))
	return s, nil
}

func (m *ScheduleManager) UpdateSchedule(ctx context.Context, scheduleID, domainID string, update model.ScheduleUpdate) (s *model.Schedule, err error) {
	defer func() { m.metrics.ObserveOperation("update_schedule", err) }()
	return m.schedules.Update(ctx, domainID, scheduleID, update)
}

func (m *ScheduleManager) DeleteSchedule(ctx context.Context, scheduleID, domainID string) (err error) {
	defer func() { m.metrics.ObserveOperation("delete_schedule", err) }()
	return m.schedules.Delete(ctx, domainID, scheduleID)
}

// GetSchedule only 不为空时只返回指定字段
func (m *ScheduleManager) GetSchedule(ctx context.Context, scheduleID, domainID string, only ...string) (*model.Schedule, error) {
	s, err := m.schedules.Get(ctx, domainID, scheduleID)
	if err != nil {
		return nil, err
	}
	if len(only) == 0 {
		return s, nil
	}
	doc, err := store.ToDocument(s)
	if err != nil {
		return nil, err
	}
	return store.Project[*model.Schedule](doc, only)
}

func (m *ScheduleManager) ListSchedules(ctx context.Context, domainID string, query store.Query) ([]*model.Schedule, int, error) {
	return m.schedules.Query(ctx, domainID, query)
}

func (m *ScheduleManager) StatSchedules(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	return m.schedules.Stat(ctx, domainID, query)
}

// UpdateLastScheduledTime 刷新最近调度时间
func (m *ScheduleManager) UpdateLastScheduledTime(ctx context.Context, schedule *model.Schedule) (s *model.Schedule, err error) {
	defer func() { m.metrics.ObserveOperation("update_last_scheduled_time", err) }()
	now := m.now().UTC()
	return m.schedules.Update(ctx, schedule.DomainID, schedule.ScheduleID, model.ScheduleUpdate{LastScheduledAt: &now})
}
