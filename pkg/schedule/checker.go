package schedule

import (
	"slices"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
)

// Checker 校验请求的调度类型是否在插件声明的 supported_schedules 范围内
// AllowUndeclared 为 true 时，插件未声明能力则放行任何调度
type Checker struct {
	AllowUndeclared bool
}

// Result 校验结果
// Undeclared 表示插件没有声明 supported_schedules，调用方需要记录告警
type Result struct {
	Undeclared bool
	Supported  []string
	Requested  []string
}

// NewChecker 创建校验器
func NewChecker(allowUndeclared bool) *Checker {
	return &Checker{AllowUndeclared: allowUndeclared}
}

// CheckSupported 纯函数，不访问存储
func (c *Checker) CheckSupported(info model.PluginInfo, spec model.ScheduleSpec) (Result, error) {
	requested := spec.Kinds()
	supported, declared, err := info.SupportedSchedules()
	if err != nil {
		return Result{Requested: requested}, errs.Wrap(errs.CodeInvalidArgument, "invalid plugin metadata", err)
	}

	if !declared {
		res := Result{Undeclared: true, Supported: []string{}, Requested: requested}
		if c.AllowUndeclared {
			return res, nil
		}
		return res, errs.UnsupportedSchedule(res.Supported, requested)
	}

	res := Result{Supported: supported, Requested: requested}
	for _, kind := range requested {
		if !slices.Contains(supported, kind) {
			return res, errs.UnsupportedSchedule(supported, requested)
		}
	}
	return res, nil
}
