package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/collector-manager/pkg/config"
	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/metrics"
)

// Dispatcher 构建任务并提交到任务通道（fire-and-forget）
type Dispatcher struct {
	builder   *Builder
	submitter Submitter
	metrics   *metrics.Metrics
}

// NewDispatcher 创建下发器，m 可为 nil
func NewDispatcher(builder *Builder, submitter Submitter, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{builder: builder, submitter: submitter, metrics: m}
}

// Builder 返回内部构建器
func (d *Dispatcher) Builder() *Builder {
	return d.builder
}

// Dispatch 构建并入队，queueKey 为空时使用 collect_queue
// 构建失败返回 DISPATCH_BUILD_FAILURE，队列未配置返回 CONFIGURATION_MISSING，均不入队
func (d *Dispatcher) Dispatch(ctx context.Context, queueKey string, req CollectingRequest) (*Pipeline, error) {
	pipeline, err := d.builder.BuildCollectionTask(ctx, req)
	if err != nil {
		return nil, err
	}

	if queueKey == "" {
		queueKey = config.DefaultQueueKey
	}
	queue := d.builder.QueueName(queueKey)
	if queue == "" {
		return nil, errs.Newf(errs.CodeConfigurationMissing, "queue %q is not configured", queueKey)
	}

	start := time.Now()
	err = d.submitter.Submit(ctx, queue, pipeline)
	d.metrics.ObserveDispatch(queue, start, err)
	if err != nil {
		logger.Error("submit collection task failed",
			zap.String("queue", queue),
			zap.String("collector_id", req.Collector.CollectorID),
			zap.Error(err))
		return nil, fmt.Errorf("submit to queue %s: %w", queue, err)
	}

	logger.Info("collection task submitted",
		zap.String("queue", queue),
		zap.String("collector_id", req.Collector.CollectorID),
		zap.String("job_id", req.Job.JobID),
		zap.String("job_task_id", req.JobTask.JobTaskID))
	return pipeline, nil
}
