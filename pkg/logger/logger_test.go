package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/collector-manager/pkg/config"
	"github.com/collector-manager/pkg/logger"
)

// mockFatalHook 捕获 fatal 日志（不退出进程）
type mockFatalHook struct {
	called bool
}

func (h *mockFatalHook) Hook(e zapcore.Entry) error {
	if e.Level == zapcore.FatalLevel {
		h.called = true
	}
	return nil
}

func TestLoggerLevels(t *testing.T) {
	cfg := &config.ZapLogConfig{
		Level:  "debug",
		Format: "json",
		Path:   t.TempDir(),
	}

	restore := logger.ReplaceGlobal(zap.NewNop())
	defer restore()

	_, err := logger.InitLogger(cfg)
	require.NoError(t, err)

	logger.Debug("debug msg")
	logger.Info("info msg")
	logger.Warn("warn msg")
	logger.Error("error msg")

	assert.Panics(t, func() { logger.Panic("panic msg") })

	// Fatal 测试（使用 WriteThenNoop，不触发 os.Exit）
	hook := &mockFatalHook{}
	l := logger.GetGlobalLogger().WithOptions(zap.Hooks(hook.Hook), zap.WithFatalHook(zapcore.WriteThenNoop))
	l.Fatal("fatal msg")
	assert.True(t, hook.called, "fatal hook was not triggered")

	_ = logger.Sync()
}

func TestPackageFunctionsUseReplacedLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := logger.ReplaceGlobal(zap.New(core))
	defer restore()

	logger.Debug("dropped")
	logger.Warn("kept", zap.String("collector_id", "collector-1"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "collector-1", entry.ContextMap()["collector_id"])
}
