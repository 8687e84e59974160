package model

import (
	"maps"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/collector-manager/pkg/errs"
)

var validate = validator.New()

// State 采集器状态
type State string

const (
	StateEnabled  State = "ENABLED"
	StateDisabled State = "DISABLED"
)

// Valid 状态是否为枚举值之一
func (s State) Valid() bool {
	return s == StateEnabled || s == StateDisabled
}

const (
	DefaultPriority = 10
	MinPriority     = 0
	MaxPriority     = 99
)

// Collector 采集器实体（聚合根）
type Collector struct {
	CollectorID     string         `json:"collector_id"`
	Name            string         `json:"name" validate:"required,max=255"`
	State           State          `json:"state" validate:"oneof=ENABLED DISABLED"`
	Provider        string         `json:"provider,omitempty" validate:"max=40"`
	Capability      map[string]any `json:"capability,omitempty"`
	PluginInfo      *PluginInfo    `json:"plugin_info,omitempty"`
	Schedule        *ScheduleSpec  `json:"schedule,omitempty"`
	Priority        int            `json:"priority" validate:"min=0,max=99"`
	Tags            map[string]any `json:"tags,omitempty"`
	DomainID        string         `json:"domain_id" validate:"required,max=255"`
	CreatedAt       time.Time      `json:"created_at"`
	LastCollectedAt *time.Time     `json:"last_collected_at,omitempty"`
}

// CollectorParams 创建采集器的参数
type CollectorParams struct {
	Name       string
	Provider   string
	Capability map[string]any
	PluginInfo *PluginInfo
	Schedule   *ScheduleSpec
	State      State
	Priority   *int
	Tags       map[string]any
	DomainID   string
}

// NewCollector 根据参数构造采集器，补齐默认值并生成 ID
func NewCollector(params CollectorParams) (*Collector, error) {
	c := &Collector{
		CollectorID: NewCollectorID(),
		Name:        params.Name,
		State:       params.State,
		Provider:    params.Provider,
		Capability:  cloneMap(params.Capability),
		Priority:    DefaultPriority,
		Tags:        cloneMap(params.Tags),
		DomainID:    params.DomainID,
	}
	if c.State == "" {
		c.State = StateEnabled
	}
	if params.Priority != nil {
		c.Priority = *params.Priority
	}
	if params.PluginInfo != nil {
		p := params.PluginInfo.Clone()
		c.PluginInfo = &p
	}
	if params.Schedule != nil {
		s := params.Schedule.Clone()
		c.Schedule = &s
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate 校验采集器（含嵌入的插件绑定与调度描述）
func (c *Collector) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errs.Wrap(errs.CodeInvalidArgument, "invalid collector", err)
	}
	if c.PluginInfo != nil {
		if err := c.PluginInfo.Validate(); err != nil {
			return err
		}
	}
	if c.Schedule != nil {
		if err := c.Schedule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsEnabled 是否启用
func (c *Collector) IsEnabled() bool {
	return c.State == StateEnabled
}

// Domain 所属租户
func (c *Collector) Domain() string {
	if c == nil {
		return ""
	}
	return c.DomainID
}

// Clone 返回快照，调用方修改不会影响存储
func (c *Collector) Clone() *Collector {
	if c == nil {
		return nil
	}
	out := *c
	out.Capability = cloneMap(c.Capability)
	out.Tags = cloneMap(c.Tags)
	if c.PluginInfo != nil {
		p := c.PluginInfo.Clone()
		out.PluginInfo = &p
	}
	if c.Schedule != nil {
		s := c.Schedule.Clone()
		out.Schedule = &s
	}
	if c.LastCollectedAt != nil {
		t := *c.LastCollectedAt
		out.LastCollectedAt = &t
	}
	return &out
}

// CollectorUpdate 可更新字段，nil 表示不修改
type CollectorUpdate struct {
	Name            *string
	State           *State
	PluginInfo      *PluginInfo
	Schedule        *ScheduleSpec
	ClearSchedule   bool
	Priority        *int
	Tags            map[string]any
	LastCollectedAt *time.Time
}

// Apply 将更新应用到采集器副本上并校验，返回新副本
func (u CollectorUpdate) Apply(c *Collector) (*Collector, error) {
	out := c.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.State != nil {
		out.State = *u.State
	}
	if u.PluginInfo != nil {
		p := u.PluginInfo.Clone()
		out.PluginInfo = &p
	}
	if u.ClearSchedule {
		out.Schedule = nil
	} else if u.Schedule != nil {
		s := u.Schedule.Clone()
		out.Schedule = &s
	}
	if u.Priority != nil {
		out.Priority = *u.Priority
	}
	if u.Tags != nil {
		out.Tags = cloneMap(u.Tags)
	}
	if u.LastCollectedAt != nil {
		t := u.LastCollectedAt.UTC()
		out.LastCollectedAt = &t
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// CollectorAliases 查询键别名
var CollectorAliases = map[string]string{
	"plugin_id": "plugin_info.plugin_id",
}

// CollectorMinimalFields 列表时的精简字段
var CollectorMinimalFields = []string{"collector_id", "name", "state", "provider", "capability", "plugin_info"}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}
