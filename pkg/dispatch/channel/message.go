package channel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/collector-manager/pkg/dispatch"
)

// Message 通道中传输的任务消息
type Message struct {
	ID          string             `json:"id"`
	Queue       string             `json:"queue"`
	SubmittedAt time.Time          `json:"submitted_at"`
	Pipeline    *dispatch.Pipeline `json:"pipeline"`
}

func newMessage(queue string, pipeline *dispatch.Pipeline) Message {
	return Message{
		ID:          uuid.New().String(),
		Queue:       queue,
		SubmittedAt: time.Now().UTC(),
		Pipeline:    pipeline,
	}
}

func encode(queue string, pipeline *dispatch.Pipeline) (Message, []byte, error) {
	if pipeline == nil {
		return Message{}, nil, fmt.Errorf("pipeline is nil")
	}
	if queue == "" {
		return Message{}, nil, fmt.Errorf("queue is required")
	}
	msg := newMessage(queue, pipeline)
	b, err := json.Marshal(msg)
	if err != nil {
		return Message{}, nil, fmt.Errorf("marshal task message: %w", err)
	}
	return msg, b, nil
}

// Decode 解析通道消息（消费端与测试使用）
func Decode(b []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		return Message{}, fmt.Errorf("unmarshal task message: %w", err)
	}
	return msg, nil
}
