package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/collector-manager/pkg/errs"
)

// Operator 过滤操作符
type Operator string

const (
	OpEq      Operator = "eq"
	OpNot     Operator = "not"
	OpIn      Operator = "in"
	OpNotIn   Operator = "not_in"
	OpContain Operator = "contain"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpExists  Operator = "exists"
)

// Condition 过滤条件，Key 支持点号访问嵌入文档（如 plugin_info.plugin_id）
type Condition struct {
	Key      string   `json:"k"`
	Value    any      `json:"v"`
	Operator Operator `json:"o"`
}

// Sort 排序
type Sort struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc"`
}

// Page 分页，Start 从 1 开始
type Page struct {
	Start int `json:"start"`
	Limit int `json:"limit"`
}

// Query 查询
type Query struct {
	Filter  []Condition `json:"filter,omitempty"`
	Sort    *Sort       `json:"sort,omitempty"`
	Page    *Page       `json:"page,omitempty"`
	Only    []string    `json:"only,omitempty"`
	Minimal bool        `json:"minimal,omitempty"`
}

// StatQuery 统计查询
type StatQuery struct {
	Filter  []Condition `json:"filter,omitempty"`
	GroupBy string      `json:"group_by,omitempty"`
}

// StatResult 统计结果
type StatResult struct {
	Total  int            `json:"total"`
	Groups map[string]int `json:"groups,omitempty"`
}

// Options 实体相关的查询选项
type Options struct {
	Aliases       map[string]string
	DefaultSort   string
	MinimalFields []string
}

// Document 实体的键值形式，嵌入结构体保持为子文档
type Document map[string]any

// ToDocument 将实体转换为键值形式
func ToDocument(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Lookup 点号路径取值
func (d Document) Lookup(key string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

type row[T any] struct {
	item T
	doc  Document
}

// Evaluate 在内存中执行过滤、排序、分页与字段投影，返回当前页与过滤后的总数
func Evaluate[T any](items []T, q Query, opts Options) ([]T, int, error) {
	conds, err := resolve(q.Filter, opts.Aliases)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]row[T], 0, len(items))
	for _, item := range items {
		doc, err := ToDocument(item)
		if err != nil {
			return nil, 0, err
		}
		ok, err := matchAll(doc, conds)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			rows = append(rows, row[T]{item: item, doc: doc})
		}
	}

	sortKey, desc := opts.DefaultSort, false
	if q.Sort != nil && q.Sort.Key != "" {
		sortKey, desc = alias(q.Sort.Key, opts.Aliases), q.Sort.Desc
	}
	if sortKey != "" {
		slices.SortStableFunc(rows, func(a, b row[T]) int {
			av, _ := a.doc.Lookup(sortKey)
			bv, _ := b.doc.Lookup(sortKey)
			c := compareForSort(av, bv)
			if desc {
				return -c
			}
			return c
		})
	}

	total := len(rows)
	if q.Page != nil && q.Page.Limit > 0 {
		start := max(q.Page.Start, 1) - 1
		if start > len(rows) {
			start = len(rows)
		}
		end := min(start+q.Page.Limit, len(rows))
		rows = rows[start:end]
	}

	only := q.Only
	if len(only) == 0 && q.Minimal {
		only = opts.MinimalFields
	}

	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if len(only) == 0 {
			out = append(out, r.item)
			continue
		}
		projected, err := Project[T](r.doc, only)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, projected)
	}
	return out, total, nil
}

// Aggregate 统计过滤后的数量，可按字段分组
func Aggregate[T any](items []T, q StatQuery, opts Options) (*StatResult, error) {
	conds, err := resolve(q.Filter, opts.Aliases)
	if err != nil {
		return nil, err
	}
	groupBy := alias(q.GroupBy, opts.Aliases)

	result := &StatResult{}
	if groupBy != "" {
		result.Groups = make(map[string]int)
	}
	for _, item := range items {
		doc, err := ToDocument(item)
		if err != nil {
			return nil, err
		}
		ok, err := matchAll(doc, conds)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		result.Total++
		if groupBy != "" {
			v, found := doc.Lookup(groupBy)
			key := ""
			if found && v != nil {
				key = fmt.Sprint(v)
			}
			result.Groups[key]++
		}
	}
	return result, nil
}

// Select 只保留指定的顶层字段（点号路径取第一段），未请求的字段不出现在结果中
func (d Document) Select(only []string) Document {
	kept := make(Document, len(only))
	for _, key := range only {
		top, _, _ := strings.Cut(key, ".")
		if v, ok := d[top]; ok {
			kept[top] = v
		}
	}
	return kept
}

// Project 按 Select 裁剪后解码回实体类型，未选字段为零值
func Project[T any](doc Document, only []string) (T, error) {
	var out T
	b, err := json.Marshal(doc.Select(only))
	if err != nil {
		return out, fmt.Errorf("encode projection: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode projection: %w", err)
	}
	return out, nil
}

func alias(key string, aliases map[string]string) string {
	if target, ok := aliases[key]; ok {
		return target
	}
	return key
}

func resolve(conds []Condition, aliases map[string]string) ([]Condition, error) {
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c.Key == "" {
			return nil, errs.New(errs.CodeInvalidArgument, "filter key is required")
		}
		if c.Operator == "" {
			c.Operator = OpEq
		}
		switch c.Operator {
		case OpEq, OpNot, OpIn, OpNotIn, OpContain, OpGt, OpGte, OpLt, OpLte, OpExists:
		default:
			return nil, errs.Newf(errs.CodeInvalidArgument, "unsupported filter operator %q", c.Operator)
		}
		c.Key = alias(c.Key, aliases)
		out = append(out, c)
	}
	return out, nil
}

func matchAll(doc Document, conds []Condition) (bool, error) {
	for _, c := range conds {
		ok, err := match(doc, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func match(doc Document, c Condition) (bool, error) {
	v, found := doc.Lookup(c.Key)
	switch c.Operator {
	case OpEq:
		return found && equal(v, c.Value), nil
	case OpNot:
		return !found || !equal(v, c.Value), nil
	case OpIn, OpNotIn:
		list, err := toList(c.Value)
		if err != nil {
			return false, err
		}
		in := found && slices.ContainsFunc(list, func(item any) bool { return equal(v, item) })
		return in == (c.Operator == OpIn), nil
	case OpContain:
		if !found {
			return false, nil
		}
		if s, ok := v.(string); ok {
			return strings.Contains(strings.ToLower(s), strings.ToLower(fmt.Sprint(c.Value))), nil
		}
		if list, ok := v.([]any); ok {
			return slices.ContainsFunc(list, func(item any) bool { return equal(item, c.Value) }), nil
		}
		return false, nil
	case OpGt, OpGte, OpLt, OpLte:
		if !found {
			return false, nil
		}
		r, ok := compare(v, c.Value)
		if !ok {
			return false, nil
		}
		switch c.Operator {
		case OpGt:
			return r > 0, nil
		case OpGte:
			return r >= 0, nil
		case OpLt:
			return r < 0, nil
		default:
			return r <= 0, nil
		}
	case OpExists:
		want := true
		if b, ok := c.Value.(bool); ok {
			want = b
		}
		return (found && v != nil) == want, nil
	}
	return false, errs.Newf(errs.CodeInvalidArgument, "unsupported filter operator %q", c.Operator)
}

// normalize 把数字统一为 float64，命名字符串类型统一为 string
func normalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	}
	return v
}

func equal(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	switch na.(type) {
	case string, float64, bool, nil:
		return na == nb
	}
	return reflect.DeepEqual(na, nb)
}

func compare(a, b any) (int, bool) {
	na, nb := normalize(a), normalize(b)
	switch x := na.(type) {
	case float64:
		if y, ok := nb.(float64); ok {
			return cmp.Compare(x, y), true
		}
	case string:
		if y, ok := nb.(string); ok {
			return strings.Compare(x, y), true
		}
	}
	return 0, false
}

// compareForSort 缺失值排在最前
func compareForSort(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if r, ok := compare(a, b); ok {
		return r
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toList(v any) ([]any, error) {
	if list, ok := v.([]any); ok {
		return list, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errs.Newf(errs.CodeInvalidArgument, "filter value must be a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
