package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	goredis "github.com/redis/go-redis/v9"
)

var (
	errNotFound = errors.New("record not found")
	errExists   = errors.New("record already exists")
)

// document 存储文档需要暴露所属租户，读取时校验
type document interface {
	Domain() string
}

// docTable 以 JSON 文档形式保存实体
// 文档键: <prefix>:<kind>:<domain>:<id>，租户索引: <prefix>:<kind>s:<domain>
// domain 与 id 经过转义，不会包含分隔符 ':'
type docTable[T document] struct {
	rdb    goredis.UniversalClient
	prefix string
	kind   string
}

// part 转义键中的一段
func part(s string) string {
	return url.QueryEscape(s)
}

func (t *docTable[T]) key(domainID, id string) string {
	return fmt.Sprintf("%s:%s:%s:%s", t.prefix, t.kind, part(domainID), part(id))
}

func (t *docTable[T]) index(domainID string) string {
	return fmt.Sprintf("%s:%ss:%s", t.prefix, t.kind, part(domainID))
}

// insert 写入新文档，文档与全部索引（租户索引 + sets）在同一事务中提交
func (t *docTable[T]) insert(ctx context.Context, domainID, id string, v T, sets ...string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.kind, err)
	}
	key := t.key(domainID, id)
	err = t.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, t.index(domainID), id)
			for _, set := range sets {
				pipe.SAdd(ctx, set, id)
			}
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errExists):
		return fmt.Errorf("%s already exists: %s", t.kind, id)
	default:
		return fmt.Errorf("create %s: %w", t.kind, err)
	}
}

func (t *docTable[T]) get(ctx context.Context, domainID, id string) (T, error) {
	var out T
	data, err := t.rdb.Get(ctx, t.key(domainID, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return out, errNotFound
	}
	if err != nil {
		return out, fmt.Errorf("get %s: %w", t.kind, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", t.kind, err)
	}
	if out.Domain() != domainID {
		var zero T
		return zero, errNotFound
	}
	return out, nil
}

// put 覆盖已存在的文档，文档已被删除时返回 errNotFound
func (t *docTable[T]) put(ctx context.Context, domainID, id string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.kind, err)
	}
	ok, err := t.rdb.SetXX(ctx, t.key(domainID, id), data, 0).Result()
	if err != nil {
		return fmt.Errorf("update %s: %w", t.kind, err)
	}
	if !ok {
		return errNotFound
	}
	return nil
}

// move 覆盖已存在的文档，并在同一事务中把 id 从 from 索引移到 to 索引
func (t *docTable[T]) move(ctx context.Context, domainID, id string, v T, from, to string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", t.kind, err)
	}
	key := t.key(domainID, id)
	err = t.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return errNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SRem(ctx, from, id)
			pipe.SAdd(ctx, to, id)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotFound):
		return errNotFound
	default:
		return fmt.Errorf("update %s: %w", t.kind, err)
	}
}

// remove 删除文档，并从租户索引及 sets 中移除
func (t *docTable[T]) remove(ctx context.Context, domainID, id string, sets ...string) error {
	var del *goredis.IntCmd
	_, err := t.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, t.key(domainID, id))
		pipe.SRem(ctx, t.index(domainID), id)
		for _, set := range sets {
			pipe.SRem(ctx, set, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.kind, err)
	}
	if del.Val() == 0 {
		return errNotFound
	}
	return nil
}

func (t *docTable[T]) list(ctx context.Context, domainID string) ([]T, error) {
	ids, err := t.rdb.SMembers(ctx, t.index(domainID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s index: %w", t.kind, err)
	}
	if len(ids) == 0 {
		return []T{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = t.key(domainID, id)
	}
	vals, err := t.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.kind, err)
	}
	out := make([]T, 0, len(vals))
	for _, raw := range vals {
		s, ok := raw.(string)
		if !ok {
			// 索引残留，文档已删除
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", t.kind, err)
		}
		if v.Domain() != domainID {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
