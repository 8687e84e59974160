package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collector-manager/pkg/dispatch"
)

func samplePipeline() *dispatch.Pipeline {
	return &dispatch.Pipeline{
		Name:            dispatch.PipelineName,
		Version:         dispatch.PipelineVersion,
		ExecutionEngine: dispatch.ExecutionEngine,
		Stages: []dispatch.Stage{{
			Locator:  dispatch.StageLocator,
			Name:     dispatch.StageName,
			Metadata: dispatch.StageMetadata{Token: "tk", DomainID: "domain-1"},
			Method:   dispatch.StageMethod,
			Params: dispatch.CollectingParams{
				JobID:       "job-1",
				JobTaskID:   "task-1",
				DomainID:    "domain-1",
				CollectorID: "collector-1",
				PluginInfo:  map[string]any{"plugin_id": "p", "version": "1"},
			},
		}},
	}
}

func TestMemorySubmit(t *testing.T) {
	ch := NewMemory()
	require.NoError(t, ch.Submit(context.Background(), "collector_q", samplePipeline()))
	require.NoError(t, ch.Submit(context.Background(), "collector_q", samplePipeline()))

	assert.Equal(t, 2, ch.Len("collector_q"))
	msgs := ch.Drain("collector_q")
	require.Len(t, msgs, 2)
	assert.NotEqual(t, msgs[0].ID, msgs[1].ID)
	assert.Equal(t, "collector-1", msgs[0].Pipeline.Stages[0].Params.CollectorID)
	assert.Equal(t, 0, ch.Len("collector_q"))
}

func TestMemorySubmitRejects(t *testing.T) {
	ch := NewMemory()
	assert.Error(t, ch.Submit(context.Background(), "", samplePipeline()))
	assert.Error(t, ch.Submit(context.Background(), "q", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ch.Submit(ctx, "q", samplePipeline()), context.Canceled)
}

func TestRedisQueueSubmit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := NewRedisQueue(rdb, "collector-manager")
	require.NoError(t, q.Submit(context.Background(), "collector_q", samplePipeline()))

	items, err := mr.List("collector-manager:collector_q")
	require.NoError(t, err)
	require.Len(t, items, 1)

	msg, err := Decode([]byte(items[0]))
	require.NoError(t, err)
	assert.Equal(t, "collector_q", msg.Queue)
	assert.Equal(t, dispatch.PipelineName, msg.Pipeline.Name)
	assert.Equal(t, "tk", msg.Pipeline.Stages[0].Metadata.Token)
}

func TestRedisQueueKey(t *testing.T) {
	assert.Equal(t, "q", NewRedisQueue(nil, "").Key("q"))
	assert.Equal(t, "p:q", NewRedisQueue(nil, "p").Key("q"))
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return &jetstream.PubAck{Stream: "COLLECTOR_TASKS", Sequence: uint64(len(f.subjects))}, nil
}

func TestJetStreamSubmit(t *testing.T) {
	pub := &fakePublisher{}
	ch := NewJetStream(pub, "collector.tasks")

	require.NoError(t, ch.Submit(context.Background(), "collector_q", samplePipeline()))
	require.Equal(t, []string{"collector.tasks.collector_q"}, pub.subjects)

	msg, err := Decode(pub.payloads[0])
	require.NoError(t, err)
	assert.Equal(t, "domain-1", msg.Pipeline.Stages[0].Metadata.DomainID)
	assert.NoError(t, ch.Close())
}

func TestJetStreamSubmitError(t *testing.T) {
	ch := NewJetStream(&fakePublisher{err: errors.New("no responders")}, "collector.tasks")
	err := ch.Submit(context.Background(), "collector_q", samplePipeline())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no responders")
}
