package store

import (
	"context"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
)

// CollectorStore 采集器仓储接口，所有读写都必须带租户（domainID）
type CollectorStore interface {
	// Create 持久化新采集器，created_at 由存储写入
	Create(ctx context.Context, collector *model.Collector) (*model.Collector, error)

	// Get 根据ID查找采集器，不存在返回 NotFound
	Get(ctx context.Context, domainID, collectorID string) (*model.Collector, error)

	// Update 更新可更新字段
	Update(ctx context.Context, domainID, collectorID string, update model.CollectorUpdate) (*model.Collector, error)

	// Delete 删除采集器，不存在返回 NotFound
	Delete(ctx context.Context, domainID, collectorID string) error

	// Query 按条件查询，返回当前页与总数
	Query(ctx context.Context, domainID string, query Query) ([]*model.Collector, int, error)

	// Stat 聚合统计
	Stat(ctx context.Context, domainID string, query StatQuery) (*StatResult, error)
}

// ScheduleStore 调度仓储接口
type ScheduleStore interface {
	Create(ctx context.Context, schedule *model.Schedule) (*model.Schedule, error)
	Get(ctx context.Context, domainID, scheduleID string) (*model.Schedule, error)
	Update(ctx context.Context, domainID, scheduleID string, update model.ScheduleUpdate) (*model.Schedule, error)
	Delete(ctx context.Context, domainID, scheduleID string) error
	Query(ctx context.Context, domainID string, query Query) ([]*model.Schedule, int, error)
	Stat(ctx context.Context, domainID string, query StatQuery) (*StatResult, error)

	// DeleteByCollector 级联删除某采集器下的全部调度，返回删除数量
	DeleteByCollector(ctx context.Context, domainID, collectorID string) (int, error)
}

// RequireDomain 租户参数不能为空
func RequireDomain(domainID string) error {
	if domainID == "" {
		return errs.New(errs.CodeInvalidArgument, "domain_id is required")
	}
	return nil
}
