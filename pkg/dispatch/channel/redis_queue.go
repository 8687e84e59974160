package channel

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/collector-manager/pkg/dispatch"
)

// RedisQueue 以 redis list 作为任务队列，LPUSH 入队，消费端 BRPOP
type RedisQueue struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ dispatch.Submitter = (*RedisQueue)(nil)

// NewRedisQueue 创建 redis 通道，key 为 <prefix>:<queue>
func NewRedisQueue(rdb redis.UniversalClient, prefix string) *RedisQueue {
	return &RedisQueue{rdb: rdb, prefix: prefix}
}

// Key 队列对应的 redis key
func (q *RedisQueue) Key(queue string) string {
	if q.prefix == "" {
		return queue
	}
	return q.prefix + ":" + queue
}

func (q *RedisQueue) Submit(ctx context.Context, queue string, pipeline *dispatch.Pipeline) error {
	_, b, err := encode(queue, pipeline)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.Key(queue), b).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.Key(queue), err)
	}
	return nil
}

// Close 连接由调用方统一管理
func (q *RedisQueue) Close() error {
	return nil
}
