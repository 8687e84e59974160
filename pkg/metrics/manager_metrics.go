package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "collector_manager"

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// NewOperationsTotal 创建「管理操作总数」指标
// 标签说明：
// operation: 操作名（create_collector / delete_collector / enable_collector ...）
// result: success / failure
func (f *MetricFactory) NewOperationsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total collector/schedule management operations",
		},
		[]string{"operation", "result"},
	)
}

// NewDispatchTotal 创建「任务下发总数」指标
func (f *MetricFactory) NewDispatchTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Total collection tasks submitted per queue",
		},
		[]string{"queue", "result"},
	)
}

// NewDispatchDurationSeconds 创建「任务入队耗时分布」指标
func (f *MetricFactory) NewDispatchDurationSeconds() *prometheus.HistogramVec {
	return promauto.With(f.reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of submitting a task to the channel",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms ~ 2s
		},
		[]string{"queue"},
	)
}

// NewRollbacksTotal 创建「创建回滚次数」指标
func (f *MetricFactory) NewRollbacksTotal() prometheus.Counter {
	return promauto.With(f.reg).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Total compensating deletes after a failed collector creation",
		},
	)
}

// Metrics 业务指标集合，nil 接收者上的方法均为空操作
type Metrics struct {
	operations       *prometheus.CounterVec
	dispatch         *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	rollbacks        prometheus.Counter
}

// New 通过工厂创建并注册全部业务指标
func New(reg Registers) *Metrics {
	f := NewMetricFactory(reg)
	return &Metrics{
		operations:       f.NewOperationsTotal(),
		dispatch:         f.NewDispatchTotal(),
		dispatchDuration: f.NewDispatchDurationSeconds(),
		rollbacks:        f.NewRollbacksTotal(),
	}
}

// ObserveOperation 记录一次管理操作
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result(err)).Inc()
}

// ObserveDispatch 记录一次任务下发及耗时
func (m *Metrics) ObserveDispatch(queue string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(queue, result(err)).Inc()
	m.dispatchDuration.WithLabelValues(queue).Observe(time.Since(start).Seconds())
}

// IncRollback 记录一次创建回滚
func (m *Metrics) IncRollback() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
