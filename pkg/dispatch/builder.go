package dispatch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/collector-manager/pkg/config"
	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/model"
)

// Job 采集作业引用
type Job struct {
	JobID string
}

// JobTask 作业下的子任务引用
type JobTask struct {
	JobTaskID string
}

// CollectingRequest 构建采集任务的输入
type CollectingRequest struct {
	SecretID  string
	Collector *model.Collector
	DomainID  string
	Job       Job
	JobTask   JobTask
	Params    map[string]any
}

// Builder 组装采集任务描述
type Builder struct {
	tokens TokenProvider
	queues map[string]string
}

// NewBuilder 创建任务构建器，queues 为配置中的队列名映射
func NewBuilder(tokens TokenProvider, queues map[string]string) *Builder {
	q := make(map[string]string, len(queues))
	for k, v := range queues {
		q[k] = v
	}
	return &Builder{tokens: tokens, queues: q}
}

// BuildCollectionTask 构建单阶段任务描述
// 任何失败都返回 nil 与 DISPATCH_BUILD_FAILURE，不返回半成品
func (b *Builder) BuildCollectionTask(ctx context.Context, req CollectingRequest) (*Pipeline, error) {
	params, err := b.MakeCollectingParams(req)
	if err != nil {
		return nil, b.buildFailure(err, req)
	}
	pipeline, err := b.CreateTaskPipeline(ctx, params, req.DomainID)
	if err != nil {
		return nil, b.buildFailure(err, req)
	}
	return pipeline, nil
}

// MakeCollectingParams 生成 collecting_resources 参数，use_cache 缺省为 false
func (b *Builder) MakeCollectingParams(req CollectingRequest) (CollectingParams, error) {
	if req.Collector == nil {
		return CollectingParams{}, fmt.Errorf("collector is required")
	}
	switch {
	case req.Job.JobID == "":
		return CollectingParams{}, fmt.Errorf("job_id is required")
	case req.JobTask.JobTaskID == "":
		return CollectingParams{}, fmt.Errorf("job_task_id is required")
	case req.Collector.CollectorID == "":
		return CollectingParams{}, fmt.Errorf("collector_id is required")
	case req.Collector.PluginInfo == nil:
		return CollectingParams{}, fmt.Errorf("collector %s has no plugin_info", req.Collector.CollectorID)
	}

	pluginInfo, err := req.Collector.PluginInfo.ToMap()
	if err != nil {
		return CollectingParams{}, err
	}

	useCache := false
	if raw, ok := req.Params["use_cache"]; ok && raw != nil {
		v, ok := raw.(bool)
		if !ok {
			return CollectingParams{}, fmt.Errorf("use_cache must be a boolean, got %T", raw)
		}
		useCache = v
	}

	return CollectingParams{
		SecretID:    req.SecretID,
		JobID:       req.Job.JobID,
		JobTaskID:   req.JobTask.JobTaskID,
		DomainID:    req.DomainID,
		CollectorID: req.Collector.CollectorID,
		PluginInfo:  pluginInfo,
		UseCache:    useCache,
	}, nil
}

// CreateTaskPipeline 把参数包装为版本化任务描述
func (b *Builder) CreateTaskPipeline(ctx context.Context, params CollectingParams, domainID string) (*Pipeline, error) {
	if b.tokens == nil {
		return nil, fmt.Errorf("token provider is not configured")
	}
	token, err := b.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	pipeline := &Pipeline{
		Name:            PipelineName,
		Version:         PipelineVersion,
		ExecutionEngine: ExecutionEngine,
		Stages: []Stage{{
			Locator:  StageLocator,
			Name:     StageName,
			Metadata: StageMetadata{Token: token, DomainID: domainID},
			Method:   StageMethod,
			Params:   params,
		}},
	}
	logger.Debug("[create_task_pipeline] pipeline built",
		zap.String("collector_id", params.CollectorID),
		zap.String("job_id", params.JobID),
		zap.String("job_task_id", params.JobTaskID))
	return pipeline, nil
}

// QueueName 解析配置中的队列名，name 为空时使用 collect_queue
// 未配置时返回空串并告警
func (b *Builder) QueueName(name string) string {
	if name == "" {
		name = config.DefaultQueueKey
	}
	queue, ok := b.queues[name]
	if !ok || queue == "" {
		logger.Warn("[get_queue_name] queue is not configured",
			zap.String("name", name),
			zap.String("code", string(errs.CodeConfigurationMissing)))
		return ""
	}
	return queue
}

func (b *Builder) buildFailure(err error, req CollectingRequest) error {
	collectorID := ""
	if req.Collector != nil {
		collectorID = req.Collector.CollectorID
	}
	logger.Warn("[create_task_pipeline] failed asynchronous collect",
		zap.String("collector_id", collectorID),
		zap.String("job_id", req.Job.JobID),
		zap.String("domain_id", req.DomainID),
		zap.Error(err))
	return errs.Wrap(errs.CodeDispatchBuildFailure, "build collection task", err)
}
