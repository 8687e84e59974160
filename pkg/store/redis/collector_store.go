package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
)

var collectorOptions = store.Options{
	Aliases:       model.CollectorAliases,
	DefaultSort:   "name",
	MinimalFields: model.CollectorMinimalFields,
}

type collectorStoreImpl struct {
	t *docTable[*model.Collector]
}

// NewCollectorStore 创建 Redis 采集器仓储
// 更新为读取-修改-写回，并发更新同一采集器时后写者胜出
func NewCollectorStore(rdb goredis.UniversalClient, prefix string) store.CollectorStore {
	return &collectorStoreImpl{t: &docTable[*model.Collector]{rdb: rdb, prefix: prefix, kind: "collector"}}
}

func (s *collectorStoreImpl) Create(ctx context.Context, c *model.Collector) (*model.Collector, error) {
	if err := store.RequireDomain(c.DomainID); err != nil {
		return nil, err
	}
	out := c.Clone()
	out.CreatedAt = time.Now().UTC()
	if err := s.t.insert(ctx, out.DomainID, out.CollectorID, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *collectorStoreImpl) Get(ctx context.Context, domainID, collectorID string) (*model.Collector, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	c, err := s.t.get(ctx, domainID, collectorID)
	if errors.Is(err, errNotFound) {
		return nil, errs.NotFound("collector", collectorID, domainID)
	}
	return c, err
}

func (s *collectorStoreImpl) Update(ctx context.Context, domainID, collectorID string, update model.CollectorUpdate) (*model.Collector, error) {
	cur, err := s.Get(ctx, domainID, collectorID)
	if err != nil {
		return nil, err
	}
	next, err := update.Apply(cur)
	if err != nil {
		return nil, err
	}
	if err := s.t.put(ctx, domainID, collectorID, next); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, errs.NotFound("collector", collectorID, domainID)
		}
		return nil, err
	}
	return next, nil
}

func (s *collectorStoreImpl) Delete(ctx context.Context, domainID, collectorID string) error {
	if err := store.RequireDomain(domainID); err != nil {
		return err
	}
	err := s.t.remove(ctx, domainID, collectorID)
	if errors.Is(err, errNotFound) {
		return errs.NotFound("collector", collectorID, domainID)
	}
	return err
}

func (s *collectorStoreImpl) Query(ctx context.Context, domainID string, query store.Query) ([]*model.Collector, int, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, 0, err
	}
	items, err := s.t.list(ctx, domainID)
	if err != nil {
		return nil, 0, err
	}
	return store.Evaluate(items, query, collectorOptions)
}

func (s *collectorStoreImpl) Stat(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	items, err := s.t.list(ctx, domainID)
	if err != nil {
		return nil, err
	}
	return store.Aggregate(items, query, collectorOptions)
}
