package dispatch

import (
	"context"
)

// TokenProvider 按需提供访问令牌
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken 配置中的固定令牌
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// TokenFunc 函数适配器
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
