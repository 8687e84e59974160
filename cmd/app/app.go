package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/collector-manager/pkg/config"
	"github.com/collector-manager/pkg/dispatch"
	"github.com/collector-manager/pkg/dispatch/channel"
	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/manager"
	"github.com/collector-manager/pkg/metrics"
	"github.com/collector-manager/pkg/schedule"
	"github.com/collector-manager/pkg/service"
	"github.com/collector-manager/pkg/store"
	"github.com/collector-manager/pkg/store/memory"
	redisstore "github.com/collector-manager/pkg/store/redis"
)

// components 按配置装配的运行时组件
type components struct {
	registry metrics.Registers
	svc      *service.CollectorService
	closers  []func() error
}

func newComponents(ctx context.Context, cfg *config.Config) (_ *components, err error) {
	a := &components{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	promReg := prometheus.NewRegistry()
	a.registry = metrics.NewPromRegistry(promReg)
	a.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	m := metrics.New(a.registry)

	var rdb goredis.UniversalClient
	if cfg.Store.Backend == "redis" || cfg.Dispatch.Channel == "redis" {
		client, err := redisstore.NewClient(ctx, redisstore.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			PoolSize: cfg.Store.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		rdb = client
	}

	var (
		collectorStore store.CollectorStore
		scheduleStore  store.ScheduleStore
	)
	switch cfg.Store.Backend {
	case "redis":
		collectorStore = redisstore.NewCollectorStore(rdb, cfg.Store.Redis.Prefix)
		scheduleStore = redisstore.NewScheduleStore(rdb, cfg.Store.Redis.Prefix)
	default:
		collectorStore = memory.NewCollectorStore()
		scheduleStore = memory.NewScheduleStore()
	}

	submitter, err := newSubmitter(ctx, cfg, rdb)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, submitter.Close)

	builder := dispatch.NewBuilder(dispatch.StaticToken(cfg.Dispatch.Token), cfg.Dispatch.Queues)
	// 启动时检查默认队列，未配置只告警
	builder.QueueName(config.DefaultQueueKey)

	a.svc = service.New(
		manager.NewCollectorManager(collectorStore, scheduleStore, m),
		manager.NewScheduleManager(scheduleStore, m),
		schedule.NewChecker(cfg.Schedule.AllowUndeclared),
		dispatch.NewDispatcher(builder, submitter, m),
	)

	logger.Info("collector manager assembled",
		zap.String("store", cfg.Store.Backend),
		zap.String("channel", cfg.Dispatch.Channel),
		zap.Bool("allow_undeclared_schedules", cfg.Schedule.AllowUndeclared))
	return a, nil
}

func newSubmitter(ctx context.Context, cfg *config.Config, rdb goredis.UniversalClient) (dispatch.Submitter, error) {
	switch cfg.Dispatch.Channel {
	case "redis":
		return channel.NewRedisQueue(rdb, cfg.Store.Redis.Prefix), nil
	case "nats":
		js, err := channel.ConnectJetStream(ctx, cfg.Dispatch.NATS.URL, cfg.Dispatch.NATS.Stream, cfg.Dispatch.NATS.SubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("connect jetstream: %w", err)
		}
		return js, nil
	default:
		return channel.NewMemory(), nil
	}
}

// Close 逆序释放连接
func (a *components) Close() error {
	var errList []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	a.closers = nil
	return errors.Join(errList...)
}
