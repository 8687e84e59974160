package errs

import (
	"errors"
	"fmt"
)

// ErrorCode 错误分类
type ErrorCode string

const (
	// CodeNotFound 指定租户下不存在该记录
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeUnsupportedSchedule 请求的调度类型超出插件声明的能力
	CodeUnsupportedSchedule ErrorCode = "UNSUPPORTED_SCHEDULE"
	// CodeDispatchBuildFailure 任务描述构建失败
	CodeDispatchBuildFailure ErrorCode = "DISPATCH_BUILD_FAILURE"
	// CodeConfigurationMissing 队列名未配置
	CodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
	// CodeInvalidArgument 参数校验失败
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// CodeCollectorDisabled 对已禁用的采集器发起采集
	CodeCollectorDisabled ErrorCode = "COLLECTOR_DISABLED"
)

// Error 结构化错误，Context 携带诊断信息
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持 errors.Is / errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// New 创建错误
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 格式化创建错误
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NotFound 资源不存在
func NotFound(kind, id, domainID string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Context: map[string]any{"kind": kind, "id": id, "domain_id": domainID},
	}
}

// UnsupportedSchedule 调度类型不被插件支持，同时携带声明集合与请求集合
func UnsupportedSchedule(supported, requested []string) *Error {
	return &Error{
		Code:    CodeUnsupportedSchedule,
		Message: fmt.Sprintf("schedule %v is not supported (supported: %v)", requested, supported),
		Context: map[string]any{"supported": supported, "requested": requested},
	}
}

// CodeOf 取出错误码，非结构化错误返回空串
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is 判断错误链上是否存在指定错误码
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool { return Is(err, CodeNotFound) }

func IsUnsupportedSchedule(err error) bool { return Is(err, CodeUnsupportedSchedule) }

// Strings 从 Context 中读取字符串列表
func (e *Error) Strings(key string) []string {
	if e.Context == nil {
		return nil
	}
	v, _ := e.Context[key].([]string)
	return v
}
