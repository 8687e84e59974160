package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/collector-manager/pkg/dispatch"
	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/manager"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/schedule"
	"github.com/collector-manager/pkg/store"
)

// CollectorService 编排采集器与调度的业务流程
type CollectorService struct {
	collectors *manager.CollectorManager
	schedules  *manager.ScheduleManager
	checker    *schedule.Checker
	dispatcher *dispatch.Dispatcher
}

// New 创建服务
func New(collectors *manager.CollectorManager, schedules *manager.ScheduleManager, checker *schedule.Checker, dispatcher *dispatch.Dispatcher) *CollectorService {
	return &CollectorService{
		collectors: collectors,
		schedules:  schedules,
		checker:    checker,
		dispatcher: dispatcher,
	}
}

// CollectRequest 临时采集或调度触发采集的参数
type CollectRequest struct {
	SecretID  string         `json:"secret_id"`
	JobID     string         `json:"job_id"`
	JobTaskID string         `json:"job_task_id"`
	Queue     string         `json:"queue"`
	Params    map[string]any `json:"params"`
}

// CreateCollector 创建采集器，调度与插件能力不兼容时回滚
func (s *CollectorService) CreateCollector(ctx context.Context, params model.CollectorParams) (*model.Collector, error) {
	return s.collectors.CreateCollector(ctx, params, func(_ context.Context, c *model.Collector) error {
		if c.Schedule == nil {
			return nil
		}
		return s.checkSchedule(c.CollectorID, c.PluginInfo, *c.Schedule)
	})
}

// UpdateCollector 更新采集器，调度或插件变化时重新校验兼容性
func (s *CollectorService) UpdateCollector(ctx context.Context, collectorID, domainID string, update model.CollectorUpdate) (*model.Collector, error) {
	if update.Schedule != nil || update.PluginInfo != nil {
		current, err := s.collectors.GetCollector(ctx, collectorID, domainID)
		if err != nil {
			return nil, err
		}
		next, err := update.Apply(current)
		if err != nil {
			return nil, err
		}
		if next.Schedule != nil {
			if err := s.checkSchedule(collectorID, next.PluginInfo, *next.Schedule); err != nil {
				return nil, err
			}
		}
	}
	return s.collectors.UpdateCollector(ctx, collectorID, domainID, update)
}

func (s *CollectorService) DeleteCollector(ctx context.Context, collectorID, domainID string) error {
	return s.collectors.DeleteCollector(ctx, collectorID, domainID)
}

func (s *CollectorService) GetCollector(ctx context.Context, collectorID, domainID string, only ...string) (*model.Collector, error) {
	return s.collectors.GetCollector(ctx, collectorID, domainID, only...)
}

func (s *CollectorService) EnableCollector(ctx context.Context, collectorID, domainID string) (*model.Collector, error) {
	return s.collectors.EnableCollector(ctx, collectorID, domainID)
}

func (s *CollectorService) DisableCollector(ctx context.Context, collectorID, domainID string) (*model.Collector, error) {
	return s.collectors.DisableCollector(ctx, collectorID, domainID)
}

func (s *CollectorService) ListCollectors(ctx context.Context, domainID string, query store.Query) ([]*model.Collector, int, error) {
	return s.collectors.ListCollectors(ctx, domainID, query)
}

func (s *CollectorService) StatCollectors(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	return s.collectors.StatCollectors(ctx, domainID, query)
}

// Collect 对启用状态的采集器下发一次采集任务
func (s *CollectorService) Collect(ctx context.Context, collectorID, domainID string, req CollectRequest) (*dispatch.Pipeline, error) {
	c, err := s.collectors.GetCollector(ctx, collectorID, domainID)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, c, domainID, req)
}

// CompleteCollection 作业完成回调，刷新 last_collected_at
func (s *CollectorService) CompleteCollection(ctx context.Context, collectorID, domainID string) (*model.Collector, error) {
	c, err := s.collectors.GetCollector(ctx, collectorID, domainID)
	if err != nil {
		return nil, err
	}
	return s.collectors.UpdateLastCollectedTime(ctx, c)
}

func (s *CollectorService) dispatch(ctx context.Context, c *model.Collector, domainID string, req CollectRequest) (*dispatch.Pipeline, error) {
	if !c.IsEnabled() {
		return nil, errs.Newf(errs.CodeCollectorDisabled, "collector %s is disabled", c.CollectorID)
	}
	if req.JobID == "" {
		req.JobID = model.NewJobID()
	}
	if req.JobTaskID == "" {
		req.JobTaskID = model.NewJobTaskID()
	}
	return s.dispatcher.Dispatch(ctx, req.Queue, dispatch.CollectingRequest{
		SecretID:  req.SecretID,
		Collector: c,
		DomainID:  domainID,
		Job:       dispatch.Job{JobID: req.JobID},
		JobTask:   dispatch.JobTask{JobTaskID: req.JobTaskID},
		Params:    req.Params,
	})
}

// checkSchedule 未声明能力时按配置放行并告警
func (s *CollectorService) checkSchedule(collectorID string, info *model.PluginInfo, spec model.ScheduleSpec) error {
	var pi model.PluginInfo
	if info != nil {
		pi = *info
	}
	res, err := s.checker.CheckSupported(pi, spec)
	if res.Undeclared {
		logger.Warn("[is_supported_schedule] plugin does not declare supported_schedules",
			zap.String("collector_id", collectorID),
			zap.String("plugin_id", pi.PluginID),
			zap.Strings("requested", res.Requested),
			zap.Bool("allowed", err == nil))
	}
	return err
}
