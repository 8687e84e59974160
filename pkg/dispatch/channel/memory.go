package channel

import (
	"context"
	"sync"

	"github.com/collector-manager/pkg/dispatch"
)

// Memory 进程内通道，用于开发与测试
type Memory struct {
	mu     sync.Mutex
	queues map[string][]Message
}

var _ dispatch.Submitter = (*Memory)(nil)

// NewMemory 创建内存通道
func NewMemory() *Memory {
	return &Memory{queues: make(map[string][]Message)}
}

func (m *Memory) Submit(ctx context.Context, queue string, pipeline *dispatch.Pipeline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, _, err := encode(queue, pipeline)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.queues[queue] = append(m.queues[queue], msg)
	m.mu.Unlock()
	return nil
}

// Len 队列长度
func (m *Memory) Len(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[queue])
}

// Drain 取出并清空队列
func (m *Memory) Drain(queue string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.queues[queue]
	delete(m.queues, queue)
	return msgs
}

func (m *Memory) Close() error {
	return nil
}
