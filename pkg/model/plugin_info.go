package model

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/collector-manager/pkg/errs"
)

// UpgradeMode 插件升级模式
type UpgradeMode string

const (
	UpgradeModeAuto   UpgradeMode = "AUTO"
	UpgradeModeManual UpgradeMode = "MANUAL"
)

// MetadataSupportedSchedules 插件 metadata 中声明支持的调度类型的键
const MetadataSupportedSchedules = "supported_schedules"

// PluginInfo 插件绑定（值对象）
type PluginInfo struct {
	PluginID     string         `json:"plugin_id" mapstructure:"plugin_id" validate:"required,max=255"`
	Version      string         `json:"version" mapstructure:"version" validate:"required,max=255"`
	Options      map[string]any `json:"options,omitempty" mapstructure:"options"`
	Metadata     map[string]any `json:"metadata,omitempty" mapstructure:"metadata"`
	UpgradeMode  UpgradeMode    `json:"upgrade_mode" mapstructure:"upgrade_mode" validate:"oneof=AUTO MANUAL"`
	SecretFilter map[string]any `json:"secret_filter,omitempty" mapstructure:"secret_filter"`
}

// NewPluginInfo 创建插件绑定，升级模式缺省为 AUTO
func NewPluginInfo(pluginID, version string, upgradeMode UpgradeMode, options, metadata, secretFilter map[string]any) (PluginInfo, error) {
	if upgradeMode == "" {
		upgradeMode = UpgradeModeAuto
	}
	p := PluginInfo{
		PluginID:     pluginID,
		Version:      version,
		Options:      cloneMap(options),
		Metadata:     cloneMap(metadata),
		UpgradeMode:  upgradeMode,
		SecretFilter: cloneMap(secretFilter),
	}
	if err := p.Validate(); err != nil {
		return PluginInfo{}, err
	}
	return p, nil
}

// Validate 校验
func (p PluginInfo) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errs.Wrap(errs.CodeInvalidArgument, "invalid plugin_info", err)
	}
	if _, _, err := p.SupportedSchedules(); err != nil {
		return errs.Wrap(errs.CodeInvalidArgument, "invalid plugin_info.metadata", err)
	}
	return nil
}

// SupportedSchedules 读取 metadata.supported_schedules
// declared 为 false 表示插件没有声明（metadata 为空或缺少该键）
func (p PluginInfo) SupportedSchedules() (kinds []string, declared bool, err error) {
	if p.Metadata == nil {
		return nil, false, nil
	}
	raw, ok := p.Metadata[MetadataSupportedSchedules]
	if !ok || raw == nil {
		return nil, false, nil
	}
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), true, nil
	case []any:
		kinds = make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("%s must contain strings, got %T", MetadataSupportedSchedules, item)
			}
			kinds = append(kinds, s)
		}
		return kinds, true, nil
	default:
		return nil, true, fmt.Errorf("%s must be a list, got %T", MetadataSupportedSchedules, raw)
	}
}

// ToMap 序列化为普通的键值结构（交给任务构建器）
func (p PluginInfo) ToMap() (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(p.Clone(), &out); err != nil {
		return nil, fmt.Errorf("encode plugin_info: %w", err)
	}
	out["upgrade_mode"] = string(p.UpgradeMode)
	return out, nil
}

// Clone 深拷贝
func (p PluginInfo) Clone() PluginInfo {
	return PluginInfo{
		PluginID:     p.PluginID,
		Version:      p.Version,
		Options:      cloneMap(p.Options),
		Metadata:     cloneMap(p.Metadata),
		UpgradeMode:  p.UpgradeMode,
		SecretFilter: cloneMap(p.SecretFilter),
	}
}
