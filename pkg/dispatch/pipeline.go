package dispatch

import (
	"context"
)

// 采集任务描述中的固定取值
const (
	PipelineName    = "collecting_resources"
	PipelineVersion = "v1"
	ExecutionEngine = "BaseWorker"
	StageLocator    = "MANAGER"
	StageName       = "CollectingManager"
	StageMethod     = "collecting_resources"
)

// Pipeline 版本化的任务描述，交给任务通道异步执行
type Pipeline struct {
	Name            string  `json:"name"`
	Version         string  `json:"version"`
	ExecutionEngine string  `json:"executionEngine"`
	Stages          []Stage `json:"stages"`
}

// Stage 单个执行阶段
type Stage struct {
	Locator  string           `json:"locator"`
	Name     string           `json:"name"`
	Metadata StageMetadata    `json:"metadata"`
	Method   string           `json:"method"`
	Params   CollectingParams `json:"params"`
}

// StageMetadata 执行阶段的认证与租户信息
type StageMetadata struct {
	Token    string `json:"token"`
	DomainID string `json:"domain_id"`
}

// CollectingParams collecting_resources 的参数集合
type CollectingParams struct {
	SecretID    string         `json:"secret_id"`
	JobID       string         `json:"job_id"`
	JobTaskID   string         `json:"job_task_id"`
	DomainID    string         `json:"domain_id"`
	CollectorID string         `json:"collector_id"`
	PluginInfo  map[string]any `json:"plugin_info"`
	UseCache    bool           `json:"use_cache"`
}

// Submitter 任务提交通道，只负责入队，不等待执行结果
type Submitter interface {
	Submit(ctx context.Context, queue string, pipeline *Pipeline) error
	Close() error
}
