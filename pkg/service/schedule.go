package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/collector-manager/pkg/dispatch"
	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
)

// CreateSchedule 为已有采集器添加命名调度，调度类型需被插件支持
func (s *CollectorService) CreateSchedule(ctx context.Context, params model.ScheduleParams) (*model.Schedule, error) {
	c, err := s.collectors.GetCollector(ctx, params.CollectorID, params.DomainID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSchedule(c.CollectorID, c.PluginInfo, params.Schedule); err != nil {
		return nil, err
	}
	sched, err := s.schedules.CreateSchedule(ctx, params)
	if err != nil {
		return nil, err
	}

	// 采集器可能在校验之后被删除，此时撤销刚写入的调度
	if _, err := s.collectors.GetCollector(ctx, params.CollectorID, params.DomainID); err != nil {
		if errs.IsNotFound(err) {
			if derr := s.schedules.DeleteSchedule(context.WithoutCancel(ctx), sched.ScheduleID, params.DomainID); derr != nil && !errs.IsNotFound(derr) {
				logger.Error("[ROLLBACK] delete schedule failed",
					zap.String("schedule_id", sched.ScheduleID),
					zap.Error(derr))
			}
		}
		return nil, err
	}
	return sched, nil
}

// UpdateSchedule 调度描述或所属采集器变化时重新校验
func (s *CollectorService) UpdateSchedule(ctx context.Context, scheduleID, domainID string, update model.ScheduleUpdate) (*model.Schedule, error) {
	if update.Schedule != nil || update.CollectorID != nil {
		current, err := s.schedules.GetSchedule(ctx, scheduleID, domainID)
		if err != nil {
			return nil, err
		}
		collectorID, spec := current.CollectorID, current.Schedule
		if update.CollectorID != nil {
			collectorID = *update.CollectorID
		}
		if update.Schedule != nil {
			spec = *update.Schedule
		}
		c, err := s.collectors.GetCollector(ctx, collectorID, domainID)
		if err != nil {
			return nil, err
		}
		if err := s.checkSchedule(c.CollectorID, c.PluginInfo, spec); err != nil {
			return nil, err
		}
	}
	return s.schedules.UpdateSchedule(ctx, scheduleID, domainID, update)
}

func (s *CollectorService) DeleteSchedule(ctx context.Context, scheduleID, domainID string) error {
	return s.schedules.DeleteSchedule(ctx, scheduleID, domainID)
}

func (s *CollectorService) GetSchedule(ctx context.Context, scheduleID, domainID string, only ...string) (*model.Schedule, error) {
	return s.schedules.GetSchedule(ctx, scheduleID, domainID, only...)
}

func (s *CollectorService) ListSchedules(ctx context.Context, domainID string, query store.Query) ([]*model.Schedule, int, error) {
	return s.schedules.ListSchedules(ctx, domainID, query)
}

func (s *CollectorService) StatSchedules(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	return s.schedules.StatSchedules(ctx, domainID, query)
}

// RunSchedule 调度触发：校验能力后下发任务，并刷新 last_scheduled_at
func (s *CollectorService) RunSchedule(ctx context.Context, scheduleID, domainID string, req CollectRequest) (*dispatch.Pipeline, error) {
	sched, err := s.schedules.GetSchedule(ctx, scheduleID, domainID)
	if err != nil {
		return nil, err
	}
	c, err := s.collectors.GetCollector(ctx, sched.CollectorID, domainID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSchedule(c.CollectorID, c.PluginInfo, sched.Schedule); err != nil {
		return nil, err
	}

	pipeline, err := s.dispatch(ctx, c, domainID, req)
	if err != nil {
		return nil, err
	}
	if _, err := s.schedules.UpdateLastScheduledTime(ctx, sched); err != nil {
		// 任务已入队，时间戳刷新失败只记录
		logger.Warn("update last_scheduled_at failed",
			zap.String("schedule_id", scheduleID),
			zap.Error(err))
	}
	return pipeline, nil
}
