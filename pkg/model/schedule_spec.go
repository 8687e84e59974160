package model

import (
	"fmt"
	"slices"

	"github.com/robfig/cron/v3"

	"github.com/collector-manager/pkg/errs"
)

// 调度类型标签，与插件 metadata.supported_schedules 中的取值一致
const (
	ScheduleKindCron     = "cron"
	ScheduleKindInterval = "interval"
	ScheduleKindMinutes  = "minutes"
	ScheduleKindHours    = "hours"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ScheduleSpec 调度描述（值对象），通过 NewScheduleSpec 构造并校验
type ScheduleSpec struct {
	Cron     string `json:"cron,omitempty" validate:"omitempty,max=1024"`
	Interval int    `json:"interval,omitempty" validate:"omitempty,min=1,max=3600"`
	Minutes  []int  `json:"minutes,omitempty" validate:"omitempty,dive,min=0,max=59"`
	Hours    []int  `json:"hours,omitempty" validate:"omitempty,dive,min=0,max=23"`
}

// NewScheduleSpec 创建调度描述，空描述是合法的
func NewScheduleSpec(cronExpr string, interval int, minutes, hours []int) (ScheduleSpec, error) {
	s := ScheduleSpec{
		Cron:     cronExpr,
		Interval: interval,
		Minutes:  slices.Clone(minutes),
		Hours:    slices.Clone(hours),
	}
	if err := s.Validate(); err != nil {
		return ScheduleSpec{}, err
	}
	return s, nil
}

// Validate 校验字段范围以及 cron 表达式
func (s ScheduleSpec) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errs.Wrap(errs.CodeInvalidArgument, "invalid schedule", err)
	}
	if s.Cron != "" {
		if _, err := cronParser.Parse(s.Cron); err != nil {
			return errs.Wrap(errs.CodeInvalidArgument, fmt.Sprintf("invalid cron expression %q", s.Cron), err)
		}
	}
	return nil
}

// Kinds 返回已填写的调度字段名，顺序固定为 cron/interval/minutes/hours
func (s ScheduleSpec) Kinds() []string {
	kinds := make([]string, 0, 4)
	if s.Cron != "" {
		kinds = append(kinds, ScheduleKindCron)
	}
	if s.Interval != 0 {
		kinds = append(kinds, ScheduleKindInterval)
	}
	if len(s.Minutes) > 0 {
		kinds = append(kinds, ScheduleKindMinutes)
	}
	if len(s.Hours) > 0 {
		kinds = append(kinds, ScheduleKindHours)
	}
	return kinds
}

// IsEmpty 没有任何调度字段
func (s ScheduleSpec) IsEmpty() bool {
	return len(s.Kinds()) == 0
}

// Clone 深拷贝
func (s ScheduleSpec) Clone() ScheduleSpec {
	return ScheduleSpec{
		Cron:     s.Cron,
		Interval: s.Interval,
		Minutes:  slices.Clone(s.Minutes),
		Hours:    slices.Clone(s.Hours),
	}
}
