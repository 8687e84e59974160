package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
)

var scheduleOptions = store.Options{
	Aliases:     model.ScheduleAliases,
	DefaultSort: "name",
}

type scheduleStoreImpl struct {
	t *docTable[*model.Schedule]
}

// NewScheduleStore 创建 Redis 调度仓储，另外维护 采集器 -> 调度 的反向索引用于级联删除
func NewScheduleStore(rdb goredis.UniversalClient, prefix string) store.ScheduleStore {
	return &scheduleStoreImpl{t: &docTable[*model.Schedule]{rdb: rdb, prefix: prefix, kind: "schedule"}}
}

func (s *scheduleStoreImpl) byCollector(domainID, collectorID string) string {
	return fmt.Sprintf("%s:collector:%s", s.t.index(domainID), part(collectorID))
}

func (s *scheduleStoreImpl) Create(ctx context.Context, sched *model.Schedule) (*model.Schedule, error) {
	if err := store.RequireDomain(sched.DomainID); err != nil {
		return nil, err
	}
	out := sched.Clone()
	out.CreatedAt = time.Now().UTC()
	if err := s.t.insert(ctx, out.DomainID, out.ScheduleID, out, s.byCollector(out.DomainID, out.CollectorID)); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *scheduleStoreImpl) Get(ctx context.Context, domainID, scheduleID string) (*model.Schedule, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	sched, err := s.t.get(ctx, domainID, scheduleID)
	if errors.Is(err, errNotFound) {
		return nil, errs.NotFound("schedule", scheduleID, domainID)
	}
	return sched, err
}

func (s *scheduleStoreImpl) Update(ctx context.Context, domainID, scheduleID string, update model.ScheduleUpdate) (*model.Schedule, error) {
	cur, err := s.Get(ctx, domainID, scheduleID)
	if err != nil {
		return nil, err
	}
	next, err := update.Apply(cur)
	if err != nil {
		return nil, err
	}
	if next.CollectorID != cur.CollectorID {
		err = s.t.move(ctx, domainID, scheduleID, next,
			s.byCollector(domainID, cur.CollectorID), s.byCollector(domainID, next.CollectorID))
	} else {
		err = s.t.put(ctx, domainID, scheduleID, next)
	}
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, errs.NotFound("schedule", scheduleID, domainID)
		}
		return nil, err
	}
	return next, nil
}

func (s *scheduleStoreImpl) Delete(ctx context.Context, domainID, scheduleID string) error {
	sched, err := s.Get(ctx, domainID, scheduleID)
	if err != nil {
		return err
	}
	err = s.t.remove(ctx, domainID, scheduleID, s.byCollector(domainID, sched.CollectorID))
	if errors.Is(err, errNotFound) {
		return errs.NotFound("schedule", scheduleID, domainID)
	}
	return err
}

func (s *scheduleStoreImpl) Query(ctx context.Context, domainID string, query store.Query) ([]*model.Schedule, int, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, 0, err
	}
	items, err := s.t.list(ctx, domainID)
	if err != nil {
		return nil, 0, err
	}
	return store.Evaluate(items, query, scheduleOptions)
}

func (s *scheduleStoreImpl) Stat(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	items, err := s.t.list(ctx, domainID)
	if err != nil {
		return nil, err
	}
	return store.Aggregate(items, query, scheduleOptions)
}

func (s *scheduleStoreImpl) DeleteByCollector(ctx context.Context, domainID, collectorID string) (int, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return 0, err
	}
	idxKey := s.byCollector(domainID, collectorID)
	ids, err := s.t.rdb.SMembers(ctx, idxKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list schedules of collector %s: %w", collectorID, err)
	}

	deleted := 0
	for _, id := range ids {
		err := s.t.remove(ctx, domainID, id)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, errNotFound):
		default:
			return deleted, err
		}
	}
	if err := s.t.rdb.Del(ctx, idxKey).Err(); err != nil {
		return deleted, fmt.Errorf("drop schedule index of collector %s: %w", collectorID, err)
	}
	return deleted, nil
}
