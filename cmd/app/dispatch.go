package app

import (
	"github.com/spf13/cobra"
)

func initStoreFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("store.backend", defaultCfg.Store.Backend, "-> Entity store backend [memory,redis] | 存储后端")
	f.String("store.redis.addr", defaultCfg.Store.Redis.Addr, "-> Redis address | Redis 地址")
	f.String("store.redis.password", defaultCfg.Store.Redis.Password, "-> Redis password | Redis 密码")
	f.Int("store.redis.db", defaultCfg.Store.Redis.DB, "-> Redis database | Redis 库")
	f.String("store.redis.prefix", defaultCfg.Store.Redis.Prefix, "-> Redis key prefix | Redis key 前缀")
}

func initDispatchFlags(root *cobra.Command) {
	f := root.PersistentFlags()

	f.String("dispatch.channel", defaultCfg.Dispatch.Channel, "-> Task channel [memory,redis,nats] | 任务通道")
	f.String("dispatch.token", defaultCfg.Dispatch.Token, "-> Access token put into task metadata | 任务令牌")
	f.String("dispatch.nats.url", defaultCfg.Dispatch.NATS.URL, "-> NATS server url | NATS 地址")
	f.String("dispatch.nats.stream", defaultCfg.Dispatch.NATS.Stream, "-> JetStream stream name | JetStream stream")
	f.String("dispatch.nats.subject_prefix", defaultCfg.Dispatch.NATS.SubjectPrefix, "-> JetStream subject prefix | subject 前缀")
	f.Bool("schedule.allow_undeclared", defaultCfg.Schedule.AllowUndeclared,
		"-> Accept any schedule when a plugin declares no supported_schedules | 插件未声明调度能力时放行")
}
