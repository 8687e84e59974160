package model

import (
	"time"

	"github.com/collector-manager/pkg/errs"
)

// CollectMode 采集模式
type CollectMode string

const (
	CollectModeAll    CollectMode = "ALL"
	CollectModeCreate CollectMode = "CREATE"
	CollectModeUpdate CollectMode = "UPDATE"
)

// Schedule 命名的周期采集绑定，一个采集器可以有多个
type Schedule struct {
	ScheduleID      string         `json:"schedule_id"`
	Name            string         `json:"name" validate:"required,max=255"`
	CollectorID     string         `json:"collector_id" validate:"required,max=40"`
	Schedule        ScheduleSpec   `json:"schedule"`
	Filters         map[string]any `json:"filters,omitempty"`
	CollectMode     CollectMode    `json:"collect_mode" validate:"oneof=ALL CREATE UPDATE"`
	DomainID        string         `json:"domain_id" validate:"required,max=255"`
	CreatedAt       time.Time      `json:"created_at"`
	LastScheduledAt *time.Time     `json:"last_scheduled_at,omitempty"`
}

// ScheduleParams 创建调度的参数
type ScheduleParams struct {
	Name        string
	CollectorID string
	Schedule    ScheduleSpec
	Filters     map[string]any
	CollectMode CollectMode
	DomainID    string
}

// NewSchedule 构造调度
func NewSchedule(params ScheduleParams) (*Schedule, error) {
	s := &Schedule{
		ScheduleID:  NewScheduleID(),
		Name:        params.Name,
		CollectorID: params.CollectorID,
		Schedule:    params.Schedule.Clone(),
		Filters:     cloneMap(params.Filters),
		CollectMode: params.CollectMode,
		DomainID:    params.DomainID,
	}
	if s.CollectMode == "" {
		s.CollectMode = CollectModeAll
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate 校验
func (s *Schedule) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errs.Wrap(errs.CodeInvalidArgument, "invalid schedule", err)
	}
	return s.Schedule.Validate()
}

// Clone 快照
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	out := *s
	out.Schedule = s.Schedule.Clone()
	out.Filters = cloneMap(s.Filters)
	if s.LastScheduledAt != nil {
		t := *s.LastScheduledAt
		out.LastScheduledAt = &t
	}
	return &out
}

// Domain 所属租户
func (s *Schedule) Domain() string {
	if s == nil {
		return ""
	}
	return s.DomainID
}

// ScheduleUpdate 可更新字段，CollectorID 变更即把调度改绑到同租户下的另一个采集器
type ScheduleUpdate struct {
	Name            *string
	CollectorID     *string
	CollectMode     *CollectMode
	Schedule        *ScheduleSpec
	Filters         map[string]any
	LastScheduledAt *time.Time
}

// Apply 返回应用更新后的副本
func (u ScheduleUpdate) Apply(s *Schedule) (*Schedule, error) {
	out := s.Clone()
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.CollectorID != nil {
		out.CollectorID = *u.CollectorID
	}
	if u.CollectMode != nil {
		out.CollectMode = *u.CollectMode
	}
	if u.Schedule != nil {
		out.Schedule = u.Schedule.Clone()
	}
	if u.Filters != nil {
		out.Filters = cloneMap(u.Filters)
	}
	if u.LastScheduledAt != nil {
		t := u.LastScheduledAt.UTC()
		out.LastScheduledAt = &t
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduleAliases 查询键别名
var ScheduleAliases = map[string]string{
	"collector.collector_id": "collector_id",
}
