package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// EnvPrefix 环境变量前缀，如 COLLECTOR_MANAGER_SERVER_ADDR -> server.addr
const EnvPrefix = "COLLECTOR_MANAGER"

// DefaultQueueKey 采集任务默认使用的队列配置键
const DefaultQueueKey = "collect_queue"

// Config 全局配置结构体
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      ZapLogConfig   `yaml:"log" mapstructure:"log"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"required,gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"required,gt=0"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"required,gt=0"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format    string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console"`
	Path      string `yaml:"path" mapstructure:"path" validate:"required"`
	MaxSize   int    `yaml:"max_size" mapstructure:"max_size" validate:"gt=0"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" validate:"gte=0"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0"`
	Compress  bool   `yaml:"compress" mapstructure:"compress"`
}

// StoreConfig 实体存储配置
type StoreConfig struct {
	Backend string      `yaml:"backend" mapstructure:"backend" validate:"required,oneof=memory redis"`
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 连接配置（实体存储与 redis 任务通道共用）
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db" validate:"gte=0"`
	PoolSize int    `yaml:"pool_size" mapstructure:"pool_size" validate:"gte=0"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
}

// DispatchConfig 任务下发配置
type DispatchConfig struct {
	Channel string            `yaml:"channel" mapstructure:"channel" validate:"required,oneof=memory redis nats"`
	Queues  map[string]string `yaml:"queues" mapstructure:"queues"`
	Token   string            `yaml:"token" mapstructure:"token"`
	NATS    NATSConfig        `yaml:"nats" mapstructure:"nats"`
}

// NATSConfig JetStream 通道配置
type NATSConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	Stream        string `yaml:"stream" mapstructure:"stream"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// ScheduleConfig 调度校验配置
// AllowUndeclared 为 true 时，未声明 supported_schedules 的插件接受任何调度
type ScheduleConfig struct {
	AllowUndeclared bool `yaml:"allow_undeclared" mapstructure:"allow_undeclared"`
}

// NewDefaultConfig 创建默认配置
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "json",
			Path:      "./logs",
			MaxSize:   100,
			MaxBackup: 30,
			MaxAge:    7,
			Compress:  true,
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr:     "127.0.0.1:6379",
				PoolSize: 100,
				Prefix:   "collector-manager",
			},
		},
		Dispatch: DispatchConfig{
			Channel: "memory",
			Queues:  map[string]string{DefaultQueueKey: "collector_q"},
			NATS: NATSConfig{
				URL:           "nats://127.0.0.1:4222",
				Stream:        "COLLECTOR_TASKS",
				SubjectPrefix: "collector.tasks",
			},
		},
		Schedule: ScheduleConfig{
			AllowUndeclared: true,
		},
	}
}

// LoadConfigWithCli 加载配置 (Flags + YAML + ENV)
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// 3. 环境变量 (COLLECTOR_MANAGER_SERVER_ADDR -> server.addr)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return decode(v)
}

// LoadFile 只从配置文件加载（测试与工具使用）
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	settings := v.AllSettings()
	delete(settings, "config")
	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 1，校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 2，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	// 3，校验存储与下发配置
	if err := c.Store.Validate(); err != nil {
		return err
	}
	return c.Dispatch.Validate(c.Store.Redis)
}
