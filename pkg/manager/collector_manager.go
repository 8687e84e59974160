package manager

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/metrics"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
)

// Downstream 创建采集器后，在同一次尝试内需要完成的后续工作
// 返回错误或 panic 都会触发回滚
type Downstream func(ctx context.Context, collector *model.Collector) error

// CollectorManager 采集器生命周期管理
type CollectorManager struct {
	collectors store.CollectorStore
	schedules  store.ScheduleStore
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewCollectorManager 创建采集器管理器，m 可为 nil
func NewCollectorManager(collectors store.CollectorStore, schedules store.ScheduleStore, m *metrics.Metrics) *CollectorManager {
	return &CollectorManager{
		collectors: collectors,
		schedules:  schedules,
		metrics:    m,
		now:        time.Now,
	}
}

// CreateCollector 持久化采集器并依次执行 downstream
// 任一 downstream 失败（含 panic）时同步删除刚创建的记录
func (m *CollectorManager) CreateCollector(ctx context.Context, params model.CollectorParams, downstream ...Downstream) (_ *model.Collector, err error) {
	defer func() { m.metrics.ObserveOperation("create_collector", err) }()

	collector, err := model.NewCollector(params)
	if err != nil {
		return nil, err
	}
	created, err := m.collectors.Create(ctx, collector)
	if err != nil {
		return nil, fmt.Errorf("create collector: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		r := recover()
		m.rollback(ctx, created)
		if r != nil {
			err = fmt.Errorf("downstream panic: %v", r)
			panic(r)
		}
	}()

	for _, fn := range downstream {
		if err := fn(ctx, created.Clone()); err != nil {
			return nil, err
		}
	}
	committed = true
	return created, nil
}

func (m *CollectorManager) rollback(ctx context.Context, c *model.Collector) {
	logger.Info("[ROLLBACK] Delete collector",
		zap.String("name", c.Name),
		zap.String("collector_id", c.CollectorID),
		zap.String("domain_id", c.DomainID))
	m.metrics.IncRollback()
	if err := m.collectors.Delete(context.WithoutCancel(ctx), c.DomainID, c.CollectorID); err != nil {
		logger.Error("[ROLLBACK] delete collector failed",
			zap.String("collector_id", c.CollectorID),
			zap.Error(err))
	}
}

// DeleteCollector 删除采集器，级联删除其全部调度
func (m *CollectorManager) DeleteCollector(ctx context.Context, collectorID, domainID string) (err error) {
	defer func() { m.metrics.ObserveOperation("delete_collector", err) }()

	if _, err = m.collectors.Get(ctx, domainID, collectorID); err != nil {
		return err
	}
	n, err := m.schedules.DeleteByCollector(ctx, domainID, collectorID)
	if err != nil {
		return fmt.Errorf("delete schedules of collector %s: %w", collectorID, err)
	}
	if err = m.collectors.Delete(ctx, domainID, collectorID); err != nil {
		return err
	}
	// 第一次级联与删除采集器之间新建的调度
	late, err := m.schedules.DeleteByCollector(ctx, domainID, collectorID)
	if err != nil {
		return fmt.Errorf("delete schedules of collector %s: %w", collectorID, err)
	}
	n += late
	logger.Info("collector deleted",
		zap.String("collector_id", collectorID),
		zap.String("domain_id", domainID),
		zap.Int("schedules", n))
	return nil
}

// GetCollector 获取采集器，only 不为空时只返回指定字段
func (m *CollectorManager) GetCollector(ctx context.Context, collectorID, domainID string, only ...string) (*model.Collector, error) {
	c, err := m.collectors.Get(ctx, domainID, collectorID)
	if err != nil {
		return nil, err
	}
	if len(only) == 0 {
		return c, nil
	}
	doc, err := store.ToDocument(c)
	if err != nil {
		return nil, err
	}
	return store.Project[*model.Collector](doc, only)
}

// EnableCollector 启用，重复启用不报错
func (m *CollectorManager) EnableCollector(ctx context.Context, collectorID, domainID string) (*model.Collector, error) {
	return m.setState(ctx, "enable_collector", collectorID, domainID, model.StateEnabled)
}

// DisableCollector 禁用，重复禁用不报错
func (m *CollectorManager) DisableCollector(ctx context.Context, collectorID, domainID string) (*model.Collector, error) {
	return m.setState(ctx, "disable_collector", collectorID, domainID, model.StateDisabled)
}

func (m *CollectorManager) setState(ctx context.Context, op, collectorID, domainID string, state model.State) (c *model.Collector, err error) {
	defer func() { m.metrics.ObserveOperation(op, err) }()
	return m.collectors.Update(ctx, domainID, collectorID, model.CollectorUpdate{State: &state})
}

// UpdateCollector 更新可更新字段
func (m *CollectorManager) UpdateCollector(ctx context.Context, collectorID, domainID string, update model.CollectorUpdate) (c *model.Collector, err error) {
	defer func() { m.metrics.ObserveOperation("update_collector", err) }()
	return m.collectors.Update(ctx, domainID, collectorID, update)
}

// ListCollectors 查询
func (m *CollectorManager) ListCollectors(ctx context.Context, domainID string, query store.Query) ([]*model.Collector, int, error) {
	return m.collectors.Query(ctx, domainID, query)
}

// StatCollectors 统计
func (m *CollectorManager) StatCollectors(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	return m.collectors.Stat(ctx, domainID, query)
}

// UpdateLastCollectedTime 刷新最近采集时间，并发时以最后一次写入为准
func (m *CollectorManager) UpdateLastCollectedTime(ctx context.Context, collector *model.Collector) (c *model.Collector, err error) {
	defer func() { m.metrics.ObserveOperation("update_last_collected_time", err) }()
	now := m.now().UTC()
	return m.collectors.Update(ctx, collector.DomainID, collector.CollectorID, model.CollectorUpdate{LastCollectedAt: &now})
}
