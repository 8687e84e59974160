package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Options Redis 连接参数
type Options struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// NewClient 创建 Redis 客户端并探测连接
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 100
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: poolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return rdb, nil
}
