package channel

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/collector-manager/pkg/dispatch"
	"github.com/collector-manager/pkg/logger"
)

// Publisher jetstream.JetStream 中用到的发布方法
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStream 发布任务到 <subjectPrefix>.<queue>
type JetStream struct {
	js            Publisher
	subjectPrefix string
	nc            *nats.Conn
}

var _ dispatch.Submitter = (*JetStream)(nil)

// NewJetStream 基于已有的发布者创建通道
func NewJetStream(js Publisher, subjectPrefix string) *JetStream {
	return &JetStream{js: js, subjectPrefix: subjectPrefix}
}

// ConnectJetStream 连接 NATS，并确保 stream 覆盖 <subjectPrefix>.>
func ConnectJetStream(ctx context.Context, url, stream, subjectPrefix string, opts ...nats.Option) (*JetStream, error) {
	opts = append(opts,
		nats.Name("collector-manager"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if stream != "" {
		if _, err := js.Stream(ctx, stream); err != nil {
			_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
				Name:     stream,
				Subjects: []string{subjectPrefix + ".>"},
			})
			if err != nil {
				nc.Close()
				return nil, fmt.Errorf("failed to create or get stream %s: %w", stream, err)
			}
		}
	}

	ch := NewJetStream(js, subjectPrefix)
	ch.nc = nc
	return ch, nil
}

// Subject 队列对应的 subject
func (j *JetStream) Subject(queue string) string {
	return j.subjectPrefix + "." + queue
}

func (j *JetStream) Submit(ctx context.Context, queue string, pipeline *dispatch.Pipeline) error {
	msg, b, err := encode(queue, pipeline)
	if err != nil {
		return err
	}
	ack, err := j.js.Publish(ctx, j.Subject(queue), b, jetstream.WithMsgID(msg.ID))
	if err != nil {
		return fmt.Errorf("failed to publish collection task: %w", err)
	}
	logger.Debug("published collection task",
		zap.String("id", msg.ID),
		zap.String("subject", j.Subject(queue)),
		zap.Uint64("seq", ack.Sequence))
	return nil
}

// Close 关闭自建的 NATS 连接
func (j *JetStream) Close() error {
	if j.nc != nil {
		return j.nc.Drain()
	}
	return nil
}
