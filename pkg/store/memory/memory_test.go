package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
)

func newCollector(t *testing.T, name, domainID string) *model.Collector {
	t.Helper()
	c, err := model.NewCollector(model.CollectorParams{Name: name, DomainID: domainID})
	require.NoError(t, err)
	return c
}

func TestCollectorStoreTenantScoping(t *testing.T) {
	ctx := context.Background()
	s := NewCollectorStore()

	created, err := s.Create(ctx, newCollector(t, "aws", "domain-a"))
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.Get(ctx, "domain-b", created.CollectorID)
	assert.True(t, errs.IsNotFound(err))

	err = s.Delete(ctx, "domain-b", created.CollectorID)
	assert.True(t, errs.IsNotFound(err))

	got, err := s.Get(ctx, "domain-a", created.CollectorID)
	require.NoError(t, err)
	assert.Equal(t, "aws", got.Name)

	_, err = s.Get(ctx, "", created.CollectorID)
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))
}

func TestCollectorStoreReturnsSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewCollectorStore()

	created, err := s.Create(ctx, newCollector(t, "aws", "domain-a"))
	require.NoError(t, err)

	created.Name = "mutated"
	got, err := s.Get(ctx, "domain-a", created.CollectorID)
	require.NoError(t, err)
	assert.Equal(t, "aws", got.Name)
}

func TestCollectorStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewCollectorStore()

	created, err := s.Create(ctx, newCollector(t, "aws", "domain-a"))
	require.NoError(t, err)

	now := time.Now()
	name := "aws-prod"
	updated, err := s.Update(ctx, "domain-a", created.CollectorID, model.CollectorUpdate{Name: &name, LastCollectedAt: &now})
	require.NoError(t, err)
	assert.Equal(t, "aws-prod", updated.Name)
	require.NotNil(t, updated.LastCollectedAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	priority := 500
	_, err = s.Update(ctx, "domain-a", created.CollectorID, model.CollectorUpdate{Priority: &priority})
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))

	_, err = s.Update(ctx, "domain-a", "collector-missing", model.CollectorUpdate{Name: &name})
	assert.True(t, errs.IsNotFound(err))
}

func TestCollectorStoreQueryAndStat(t *testing.T) {
	ctx := context.Background()
	s := NewCollectorStore()

	for _, n := range []string{"b", "a", "c"} {
		_, err := s.Create(ctx, newCollector(t, n, "domain-a"))
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, newCollector(t, "other", "domain-b"))
	require.NoError(t, err)

	items, total, err := s.Query(ctx, "domain-a", store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "a", items[0].Name)

	stat, err := s.Stat(ctx, "domain-a", store.StatQuery{GroupBy: "state"})
	require.NoError(t, err)
	assert.Equal(t, 3, stat.Total)
	assert.Equal(t, map[string]int{"ENABLED": 3}, stat.Groups)
}

func TestScheduleStoreDeleteByCollector(t *testing.T) {
	ctx := context.Background()
	s := NewScheduleStore()

	mk := func(collectorID, domainID string) {
		sched, err := model.NewSchedule(model.ScheduleParams{Name: "s", CollectorID: collectorID, DomainID: domainID})
		require.NoError(t, err)
		_, err = s.Create(ctx, sched)
		require.NoError(t, err)
	}
	mk("collector-1", "domain-a")
	mk("collector-1", "domain-a")
	mk("collector-2", "domain-a")
	mk("collector-1", "domain-b")

	n, err := s.DeleteByCollector(ctx, "domain-a", "collector-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, total, err := s.Query(ctx, "domain-a", store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = s.Query(ctx, "domain-b", store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
