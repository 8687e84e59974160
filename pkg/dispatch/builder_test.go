package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
)

func testCollector(t *testing.T) *model.Collector {
	t.Helper()
	info, err := model.NewPluginInfo("plugin-aws-ec2", "1.2", model.UpgradeModeManual,
		map[string]any{"region": "ap-northeast-2"},
		map[string]any{"supported_schedules": []any{"hours"}}, nil)
	require.NoError(t, err)
	c, err := model.NewCollector(model.CollectorParams{Name: "ec2", PluginInfo: &info, DomainID: "domain-1"})
	require.NoError(t, err)
	return c
}

func testRequest(t *testing.T) CollectingRequest {
	return CollectingRequest{
		SecretID:  "secret-1",
		Collector: testCollector(t),
		DomainID:  "domain-1",
		Job:       Job{JobID: "job-1"},
		JobTask:   JobTask{JobTaskID: "job-task-1"},
		Params:    map[string]any{},
	}
}

func counterToken() TokenProvider {
	n := 0
	return TokenFunc(func(context.Context) (string, error) {
		n++
		return fmt.Sprintf("token-%d", n), nil
	})
}

func TestBuildCollectionTask(t *testing.T) {
	b := NewBuilder(StaticToken("tk"), nil)
	req := testRequest(t)

	p, err := b.BuildCollectionTask(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "collecting_resources", p.Name)
	assert.Equal(t, "v1", p.Version)
	assert.Equal(t, "BaseWorker", p.ExecutionEngine)
	require.Len(t, p.Stages, 1)

	stage := p.Stages[0]
	assert.Equal(t, "MANAGER", stage.Locator)
	assert.Equal(t, "CollectingManager", stage.Name)
	assert.Equal(t, "collecting_resources", stage.Method)
	assert.Equal(t, StageMetadata{Token: "tk", DomainID: "domain-1"}, stage.Metadata)

	params := stage.Params
	assert.Equal(t, "secret-1", params.SecretID)
	assert.Equal(t, "job-1", params.JobID)
	assert.Equal(t, "job-task-1", params.JobTaskID)
	assert.Equal(t, "domain-1", params.DomainID)
	assert.Equal(t, req.Collector.CollectorID, params.CollectorID)
	assert.Equal(t, "plugin-aws-ec2", params.PluginInfo["plugin_id"])
	assert.Equal(t, "MANUAL", params.PluginInfo["upgrade_mode"])
	assert.False(t, params.UseCache)
}

func TestBuildCollectionTaskDeterministicExceptToken(t *testing.T) {
	b := NewBuilder(counterToken(), nil)
	req := testRequest(t)

	p1, err := b.BuildCollectionTask(context.Background(), req)
	require.NoError(t, err)
	p2, err := b.BuildCollectionTask(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, p1.Stages[0].Metadata.Token, p2.Stages[0].Metadata.Token)
	p2.Stages[0].Metadata.Token = p1.Stages[0].Metadata.Token
	assert.Equal(t, p1, p2)
}

func TestUseCache(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		want    bool
		wantErr bool
	}{
		{name: "nil params", params: nil, want: false},
		{name: "absent", params: map[string]any{"other": 1}, want: false},
		{name: "true", params: map[string]any{"use_cache": true}, want: true},
		{name: "false", params: map[string]any{"use_cache": false}, want: false},
		{name: "not a bool", params: map[string]any{"use_cache": "yes"}, wantErr: true},
	}

	b := NewBuilder(StaticToken("tk"), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest(t)
			req.Params = tt.params
			p, err := b.BuildCollectionTask(context.Background(), req)
			if tt.wantErr {
				assert.Nil(t, p)
				assert.Equal(t, errs.CodeDispatchBuildFailure, errs.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Stages[0].Params.UseCache)
		})
	}
}

func TestBuildCollectionTaskFailure(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CollectingRequest)
		tokens TokenProvider
	}{
		{name: "missing collector", mutate: func(r *CollectingRequest) { r.Collector = nil }},
		{name: "missing job", mutate: func(r *CollectingRequest) { r.Job = Job{} }},
		{name: "missing job task", mutate: func(r *CollectingRequest) { r.JobTask = JobTask{} }},
		{name: "missing plugin info", mutate: func(r *CollectingRequest) { r.Collector.PluginInfo = nil }},
		{
			name:   "token failure",
			mutate: func(r *CollectingRequest) {},
			tokens: TokenFunc(func(context.Context) (string, error) { return "", errors.New("identity unavailable") }),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tt.tokens
			if tokens == nil {
				tokens = StaticToken("tk")
			}
			req := testRequest(t)
			tt.mutate(&req)

			p, err := NewBuilder(tokens, nil).BuildCollectionTask(context.Background(), req)
			assert.Nil(t, p)
			require.Error(t, err)
			assert.Equal(t, errs.CodeDispatchBuildFailure, errs.CodeOf(err))
		})
	}
}

func TestQueueName(t *testing.T) {
	b := NewBuilder(StaticToken("tk"), map[string]string{"collect_queue": "collector_q", "blank": ""})

	assert.Equal(t, "collector_q", b.QueueName(""))
	assert.Equal(t, "collector_q", b.QueueName("collect_queue"))
	assert.Equal(t, "", b.QueueName("missing"))
	assert.Equal(t, "", b.QueueName("blank"))
}
