package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/collector-manager/cmd/server"
	"github.com/collector-manager/pkg/config"
	"github.com/collector-manager/pkg/logger"
	"github.com/collector-manager/pkg/signal"
	"github.com/collector-manager/pkg/util"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "collector-manager",
	Short: "Collector registry and schedule-driven collection task dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
			os.Exit(1)
		}
		if err := runServer(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "服务启动失败: %v\n", err)
			os.Exit(1)
		}
		return nil
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")
	// 注册分组 flag
	initServerFlags(rootCmd)
	initLogFlags(rootCmd)
	initStoreFlags(rootCmd)
	initDispatchFlags(rootCmd)
}

func runServer(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	zl, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	util.PrintBanner(os.Stdout, "collector-manager", util.ColorCyan,
		fmt.Sprintf("listen=%s store=%s channel=%s", cfg.Server.Addr, cfg.Store.Backend, cfg.Dispatch.Channel))

	a, err := newComponents(ctx, cfg)
	if err != nil {
		return err
	}

	httpServer := server.NewHTTPServer(cfg, zl, a.registry, a.svc)
	if err := httpServer.Start(); err != nil {
		_ = a.Close()
		return fmt.Errorf("start HTTP server failed: %w", err)
	}

	return signal.WaitForShutdown(ctx, signal.DefaultShutdownTimeout, func(context.Context) error {
		// 关闭顺序：HTTP服务 → 任务通道/存储连接
		if err := httpServer.Shutdown(); err != nil {
			return fmt.Errorf("shutdown HTTP server failed: %w", err)
		}
		if err := a.Close(); err != nil {
			return err
		}
		logger.Info("all services shutdown successfully", zap.String("addr", cfg.Server.Addr))
		return nil
	})
}
