package memory

import (
	"context"
	"time"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
)

var scheduleOptions = store.Options{
	Aliases:     model.ScheduleAliases,
	DefaultSort: "name",
}

type scheduleStoreImpl struct {
	t *table[*model.Schedule]
}

// NewScheduleStore 创建内存调度仓储
func NewScheduleStore() store.ScheduleStore {
	return &scheduleStoreImpl{t: newTable((*model.Schedule).Clone)}
}

func (s *scheduleStoreImpl) Create(ctx context.Context, sched *model.Schedule) (*model.Schedule, error) {
	if err := store.RequireDomain(sched.DomainID); err != nil {
		return nil, err
	}
	out := sched.Clone()
	out.CreatedAt = time.Now().UTC()
	if err := s.t.insert(out.DomainID, out.ScheduleID, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *scheduleStoreImpl) Get(ctx context.Context, domainID, scheduleID string) (*model.Schedule, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	sched, ok := s.t.get(domainID, scheduleID)
	if !ok {
		return nil, errs.NotFound("schedule", scheduleID, domainID)
	}
	return sched, nil
}

func (s *scheduleStoreImpl) Update(ctx context.Context, domainID, scheduleID string, update model.ScheduleUpdate) (*model.Schedule, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	sched, ok, err := s.t.modify(domainID, scheduleID, update.Apply)
	if !ok {
		return nil, errs.NotFound("schedule", scheduleID, domainID)
	}
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *scheduleStoreImpl) Delete(ctx context.Context, domainID, scheduleID string) error {
	if err := store.RequireDomain(domainID); err != nil {
		return err
	}
	if !s.t.remove(domainID, scheduleID) {
		return errs.NotFound("schedule", scheduleID, domainID)
	}
	return nil
}

func (s *scheduleStoreImpl) Query(ctx context.Context, domainID string, query store.Query) ([]*model.Schedule, int, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, 0, err
	}
	return store.Evaluate(s.t.list(domainID), query, scheduleOptions)
}

func (s *scheduleStoreImpl) Stat(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	return store.Aggregate(s.t.list(domainID), query, scheduleOptions)
}

func (s *scheduleStoreImpl) DeleteByCollector(ctx context.Context, domainID, collectorID string) (int, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return 0, err
	}
	return s.t.removeWhere(domainID, func(sched *model.Schedule) bool {
		return sched.CollectorID == collectorID
	}), nil
}
