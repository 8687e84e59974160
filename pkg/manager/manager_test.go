package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/metrics"
	"github.com/collector-manager/pkg/model"
	"github.com/collector-manager/pkg/store"
	"github.com/collector-manager/pkg/store/memory"
)

const domain = "domain-1"

type fixture struct {
	collectors store.CollectorStore
	schedules  store.ScheduleStore
	cm         *CollectorManager
	sm         *ScheduleManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := metrics.New(metrics.NewPromRegistry(prometheus.NewRegistry()))
	f := &fixture{
		collectors: memory.NewCollectorStore(),
		schedules:  memory.NewScheduleStore(),
	}
	f.cm = NewCollectorManager(f.collectors, f.schedules, m)
	f.sm = NewScheduleManager(f.schedules, m)
	return f
}

func collectorParams(t *testing.T, name string) model.CollectorParams {
	t.Helper()
	info, err := model.NewPluginInfo("plugin-aws-ec2", "1.0", "", nil, nil, nil)
	require.NoError(t, err)
	return model.CollectorParams{Name: name, Provider: "aws", PluginInfo: &info, DomainID: domain}
}

func countCollectors(t *testing.T, s store.CollectorStore, domainID string) int {
	t.Helper()
	_, total, err := s.Query(context.Background(), domainID, store.Query{})
	require.NoError(t, err)
	return total
}

func TestCreateCollector(t *testing.T) {
	f := newFixture(t)
	var seen *model.Collector
	c, err := f.cm.CreateCollector(context.Background(), collectorParams(t, "ec2"), func(_ context.Context, c *model.Collector) error {
		seen = c
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, c.CollectorID, seen.CollectorID)
	assert.Equal(t, model.StateEnabled, c.State)
	assert.Equal(t, model.DefaultPriority, c.Priority)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, 1, countCollectors(t, f.collectors, domain))
}

func TestCreateCollectorRollback(t *testing.T) {
	tests := []struct {
		name       string
		downstream []Downstream
		panics     bool
	}{
		{
			name: "downstream error",
			downstream: []Downstream{func(context.Context, *model.Collector) error {
				return errors.New("plugin init failed")
			}},
		},
		{
			name: "second downstream error",
			downstream: []Downstream{
				func(context.Context, *model.Collector) error { return nil },
				func(context.Context, *model.Collector) error { return errors.New("schedule rejected") },
			},
		},
		{
			name: "downstream panic",
			downstream: []Downstream{func(context.Context, *model.Collector) error {
				panic("boom")
			}},
			panics: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			create := func() (*model.Collector, error) {
				return f.cm.CreateCollector(context.Background(), collectorParams(t, "ec2"), tt.downstream...)
			}
			if tt.panics {
				assert.Panics(t, func() { _, _ = create() })
			} else {
				c, err := create()
				assert.Error(t, err)
				assert.Nil(t, c)
			}
			assert.Equal(t, 0, countCollectors(t, f.collectors, domain))
		})
	}
}

func TestCreateCollectorRollbackIgnoresCanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.cm.CreateCollector(ctx, collectorParams(t, "ec2"), func(context.Context, *model.Collector) error {
		cancel()
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, countCollectors(t, f.collectors, domain))
}

func TestCreateCollectorInvalidParams(t *testing.T) {
	f := newFixture(t)
	params := collectorParams(t, "")
	_, err := f.cm.CreateCollector(context.Background(), params)
	assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
}

func TestEnableDisableIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.cm.CreateCollector(ctx, collectorParams(t, "ec2"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, err := f.cm.EnableCollector(ctx, c.CollectorID, domain)
		require.NoError(t, err)
		assert.Equal(t, model.StateEnabled, got.State)
	}
	for i := 0; i < 2; i++ {
		got, err := f.cm.DisableCollector(ctx, c.CollectorID, domain)
		require.NoError(t, err)
		assert.Equal(t, model.StateDisabled, got.State)
	}

	_, err = f.cm.EnableCollector(ctx, "collector-missing", domain)
	assert.True(t, errs.IsNotFound(err))
}

func TestDeleteCollectorCascadesSchedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1, err := f.cm.CreateCollector(ctx, collectorParams(t, "c1"))
	require.NoError(t, err)
	c2, err := f.cm.CreateCollector(ctx, collectorParams(t, "c2"))
	require.NoError(t, err)

	hours, err := model.NewScheduleSpec("", 0, nil, []int{3})
	require.NoError(t, err)
	for _, cid := range []string{c1.CollectorID, c1.CollectorID, c2.CollectorID} {
		_, err := f.sm.CreateSchedule(ctx, model.ScheduleParams{Name: "nightly", CollectorID: cid, Schedule: hours, DomainID: domain})
		require.NoError(t, err)
	}

	require.NoError(t, f.cm.DeleteCollector(ctx, c1.CollectorID, domain))

	_, err = f.cm.GetCollector(ctx, c1.CollectorID, domain)
	assert.True(t, errs.IsNotFound(err))

	remaining, total, err := f.sm.ListSchedules(ctx, domain, store.Query{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, c2.CollectorID, remaining[0].CollectorID)
}

// interleavedSchedules 在第一次级联删除返回后写入一个调度，模拟与删除交错的创建
type interleavedSchedules struct {
	store.ScheduleStore
	calls int
	late  *model.Schedule
}

func (s *interleavedSchedules) DeleteByCollector(ctx context.Context, domainID, collectorID string) (int, error) {
	n, err := s.ScheduleStore.DeleteByCollector(ctx, domainID, collectorID)
	s.calls++
	if s.calls == 1 && s.late != nil {
		if _, cerr := s.ScheduleStore.Create(ctx, s.late); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

func TestDeleteCollectorSweepsInterleavedSchedules(t *testing.T) {
	ctx := context.Background()
	collectors := memory.NewCollectorStore()
	schedules := &interleavedSchedules{ScheduleStore: memory.NewScheduleStore()}
	cm := NewCollectorManager(collectors, schedules, nil)

	c, err := cm.CreateCollector(ctx, collectorParams(t, "ec2"))
	require.NoError(t, err)
	schedules.late, err = model.NewSchedule(model.ScheduleParams{Name: "late", CollectorID: c.CollectorID, DomainID: domain})
	require.NoError(t, err)

	require.NoError(t, cm.DeleteCollector(ctx, c.CollectorID, domain))
	assert.Equal(t, 2, schedules.calls)

	_, total, err := schedules.Query(ctx, domain, store.Query{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDeleteCollectorTenantScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.cm.CreateCollector(ctx, collectorParams(t, "ec2"))
	require.NoError(t, err)

	err = f.cm.DeleteCollector(ctx, c.CollectorID, "domain-2")
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, 1, countCollectors(t, f.collectors, domain))
}

func TestGetCollectorProjection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.cm.CreateCollector(ctx, collectorParams(t, "ec2"))
	require.NoError(t, err)

	got, err := f.cm.GetCollector(ctx, c.CollectorID, domain, "collector_id", "name")
	require.NoError(t, err)
	assert.Equal(t, c.CollectorID, got.CollectorID)
	assert.Equal(t, "ec2", got.Name)
	assert.Empty(t, got.Provider)
	assert.Nil(t, got.PluginInfo)
}

func TestUpdateLastCollectedTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, err := f.cm.CreateCollector(ctx, collectorParams(t, "ec2"))
	require.NoError(t, err)

	fixed := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	f.cm.now = func() time.Time { return fixed }

	got, err := f.cm.UpdateLastCollectedTime(ctx, c)
	require.NoError(t, err)
	require.NotNil(t, got.LastCollectedAt)
	assert.True(t, fixed.Equal(*got.LastCollectedAt))

	// 后写入者覆盖
	later := fixed.Add(time.Minute)
	f.cm.now = func() time.Time { return later }
	got, err = f.cm.UpdateLastCollectedTime(ctx, c)
	require.NoError(t, err)
	assert.True(t, later.Equal(*got.LastCollectedAt))
}

func TestListAndStatCollectors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := f.cm.CreateCollector(ctx, collectorParams(t, name))
		require.NoError(t, err)
	}
	list, total, err := f.cm.ListCollectors(ctx, domain, store.Query{Page: &store.Page{Start: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, list, 2)

	stat, err := f.cm.StatCollectors(ctx, domain, store.StatQuery{GroupBy: "state"})
	require.NoError(t, err)
	assert.Equal(t, 3, stat.Total)
	assert.Equal(t, 3, stat.Groups["ENABLED"])
}

func TestScheduleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	spec, err := model.NewScheduleSpec("0 * * * *", 0, nil, nil)
	require.NoError(t, err)

	s, err := f.sm.CreateSchedule(ctx, model.ScheduleParams{Name: "hourly", CollectorID: "collector-1", Schedule: spec, DomainID: domain})
	require.NoError(t, err)
	assert.Equal(t, model.CollectModeAll, s.CollectMode)

	name := "hourly-2"
	s, err = f.sm.UpdateSchedule(ctx, s.ScheduleID, domain, model.ScheduleUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "hourly-2", s.Name)

	s, err = f.sm.UpdateLastScheduledTime(ctx, s)
	require.NoError(t, err)
	assert.NotNil(t, s.LastScheduledAt)

	got, err := f.sm.GetSchedule(ctx, s.ScheduleID, domain, "schedule_id")
	require.NoError(t, err)
	assert.Equal(t, s.ScheduleID, got.ScheduleID)
	assert.Empty(t, got.Name)

	stat, err := f.sm.StatSchedules(ctx, domain, store.StatQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, stat.Total)

	require.NoError(t, f.sm.DeleteSchedule(ctx, s.ScheduleID, domain))
	_, err = f.sm.GetSchedule(ctx, s.ScheduleID, domain)
	assert.True(t, errs.IsNotFound(err))
}
