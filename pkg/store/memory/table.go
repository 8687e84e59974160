package memory

import (
	"fmt"
	"sync"
)

// table 按租户分区的内存表，读写都返回副本
type table[T any] struct {
	mu    sync.RWMutex
	rows  map[string]map[string]T
	clone func(T) T
}

func newTable[T any](clone func(T) T) *table[T] {
	return &table[T]{
		rows:  make(map[string]map[string]T),
		clone: clone,
	}
}

func (t *table[T]) insert(domainID, id string, v T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	part, ok := t.rows[domainID]
	if !ok {
		part = make(map[string]T)
		t.rows[domainID] = part
	}
	if _, exists := part[id]; exists {
		return fmt.Errorf("record already exists: %s", id)
	}
	part[id] = t.clone(v)
	return nil
}

func (t *table[T]) get(domainID, id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.rows[domainID][id]
	if !ok {
		var zero T
		return zero, false
	}
	return t.clone(v), true
}

// modify 在写锁内读取-修改-写回
func (t *table[T]) modify(domainID, id string, fn func(T) (T, error)) (T, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	cur, ok := t.rows[domainID][id]
	if !ok {
		return zero, false, nil
	}
	next, err := fn(t.clone(cur))
	if err != nil {
		return zero, true, err
	}
	t.rows[domainID][id] = t.clone(next)
	return t.clone(next), true, nil
}

func (t *table[T]) remove(domainID, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.rows[domainID][id]; !ok {
		return false
	}
	delete(t.rows[domainID], id)
	return true
}

// removeWhere 删除满足条件的记录，返回删除数量
func (t *table[T]) removeWhere(domainID string, pred func(T) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for id, v := range t.rows[domainID] {
		if pred(v) {
			delete(t.rows[domainID], id)
			n++
		}
	}
	return n
}

func (t *table[T]) list(domainID string) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0, len(t.rows[domainID]))
	for _, v := range t.rows[domainID] {
		out = append(out, t.clone(v))
	}
	return out
}
