package memory

import (
	"context"
	"time"

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
	t *table[*model.Collector]
}

// NewCollectorStore 创建内存采集器仓储
func NewCollectorStore() store.CollectorStore {
	return &collectorStoreImpl{t: newTable((*model.Collector).Clone)}
}

func (s *collectorStoreImpl) Create(ctx context.Context, c *model.Collector) (*model.Collector, error) {
	if err := store.RequireDomain(c.DomainID); err != nil {
		return nil, err
	}
	out := c.Clone()
	out.CreatedAt = time.Now().UTC()
	if err := s.t.insert(out.DomainID, out.CollectorID, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *collectorStoreImpl) Get(ctx context.Context, domainID, collectorID string) (*model.Collector, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	c, ok := s.t.get(domainID, collectorID)
	if !ok {
		return nil, errs.NotFound("collector", collectorID, domainID)
	}
	return c, nil
}

func (s *collectorStoreImpl) Update(ctx context.Context, domainID, collectorID string, update model.CollectorUpdate) (*model.Collector, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	c, ok, err := s.t.modify(domainID, collectorID, update.Apply)
	if !ok {
		return nil, errs.NotFound("collector", collectorID, domainID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *collectorStoreImpl) Delete(ctx context.Context, domainID, collectorID string) error {
	if err := store.RequireDomain(domainID); err != nil {
		return err
	}
	if !s.t.remove(domainID, collectorID) {
		return errs.NotFound("collector", collectorID, domainID)
	}
	return nil
}

func (s *collectorStoreImpl) Query(ctx context.Context, domainID string, query store.Query) ([]*model.Collector, int, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, 0, err
	}
	return store.Evaluate(s.t.list(domainID), query, collectorOptions)
}

func (s *collectorStoreImpl) Stat(ctx context.Context, domainID string, query store.StatQuery) (*store.StatResult, error) {
	if err := store.RequireDomain(domainID); err != nil {
		return nil, err
	}
	return store.Aggregate(s.t.list(domainID), query, collectorOptions)
}
