package config

import (
	"fmt"
	"strings"
)

// Validate 存储配置校验，redis 后端必须配置地址
func (s *StoreConfig) Validate() error {
	if err := valid.Struct(s); err != nil {
		return err
	}
	if s.Backend == "redis" && strings.TrimSpace(s.Redis.Addr) == "" {
		return fmt.Errorf("store.redis.addr is required when store.backend=redis")
	}
	return nil
}

// Validate 下发配置校验
// 队列名允许缺失（运行时告警并解析为空），但不能是空白字符串
func (d *DispatchConfig) Validate(redis RedisConfig) error {
	if err := valid.Struct(d); err != nil {
		return err
	}
	for key, name := range d.Queues {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("dispatch.queues contains an empty key")
		}
		if name != "" && strings.TrimSpace(name) == "" {
			return fmt.Errorf("dispatch.queues.%s must not be blank", key)
		}
		if strings.ContainsAny(name, " \t\r\n*>") {
			return fmt.Errorf("dispatch.queues.%s: queue name %q contains invalid characters", key, name)
		}
	}
	switch d.Channel {
	case "nats":
		if strings.TrimSpace(d.NATS.URL) == "" {
			return fmt.Errorf("dispatch.nats.url is required when dispatch.channel=nats")
		}
		if strings.TrimSpace(d.NATS.SubjectPrefix) == "" {
			return fmt.Errorf("dispatch.nats.subject_prefix is required when dispatch.channel=nats")
		}
	case "redis":
		if strings.TrimSpace(redis.Addr) == "" {
			return fmt.Errorf("store.redis.addr is required when dispatch.channel=redis")
		}
	}
	return nil
}
