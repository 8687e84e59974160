package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collector-manager/pkg/errs"
	"github.com/collector-manager/pkg/model"
)

func pluginWith(t *testing.T, metadata map[string]any) model.PluginInfo {
	t.Helper()
	p, err := model.NewPluginInfo("plugin-aws-ec2", "1.0", "", nil, metadata, nil)
	require.NoError(t, err)
	return p
}

func specOf(t *testing.T, cron string, interval int, minutes, hours []int) model.ScheduleSpec {
	t.Helper()
	s, err := model.NewScheduleSpec(cron, interval, minutes, hours)
	require.NoError(t, err)
	return s
}

func TestCheckSupported(t *testing.T) {
	tests := []struct {
		name      string
		metadata  map[string]any
		spec      func(t *testing.T) model.ScheduleSpec
		wantErr   bool
		supported []string
		requested []string
	}{
		{
			name:     "hours declared accepts hours",
			metadata: map[string]any{"supported_schedules": []any{"hours"}},
			spec:     func(t *testing.T) model.ScheduleSpec { return specOf(t, "", 0, nil, []int{3, 15}) },
		},
		{
			name:      "hours declared rejects cron",
			metadata:  map[string]any{"supported_schedules": []any{"hours"}},
			spec:      func(t *testing.T) model.ScheduleSpec { return specOf(t, "0 * * * *", 0, nil, nil) },
			wantErr:   true,
			supported: []string{"hours"},
			requested: []string{"cron"},
		},
		{
			name:      "cron only rejects interval",
			metadata:  map[string]any{"supported_schedules": []string{"cron"}},
			spec:      func(t *testing.T) model.ScheduleSpec { return specOf(t, "", 60, nil, nil) },
			wantErr:   true,
			supported: []string{"cron"},
			requested: []string{"interval"},
		},
		{
			name:     "hours and interval accepts hours",
			metadata: map[string]any{"supported_schedules": []any{"hours", "interval"}},
			spec:     func(t *testing.T) model.ScheduleSpec { return specOf(t, "", 0, nil, []int{1}) },
		},
		{
			name:      "partial overlap rejects",
			metadata:  map[string]any{"supported_schedules": []any{"hours"}},
			spec:      func(t *testing.T) model.ScheduleSpec { return specOf(t, "", 0, []int{5}, []int{1}) },
			wantErr:   true,
			supported: []string{"hours"},
			requested: []string{"minutes", "hours"},
		},
		{
			name:     "empty spec always passes",
			metadata: map[string]any{"supported_schedules": []any{"cron"}},
			spec:     func(t *testing.T) model.ScheduleSpec { return model.ScheduleSpec{} },
		},
	}

	checker := NewChecker(true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := checker.CheckSupported(pluginWith(t, tt.metadata), tt.spec(t))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.False(t, res.Undeclared)
				return
			}
			require.Error(t, err)
			assert.True(t, errs.IsUnsupportedSchedule(err))

			var e *errs.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.supported, e.Strings("supported"))
			assert.Equal(t, tt.requested, e.Strings("requested"))
		})
	}
}

func TestCheckSupportedUndeclaredFailOpen(t *testing.T) {
	specs := map[string]model.ScheduleSpec{
		"empty":    {},
		"cron":     specOf(t, "*/5 * * * *", 0, nil, nil),
		"interval": specOf(t, "", 300, nil, nil),
		"all":      specOf(t, "@hourly", 10, []int{0}, []int{0}),
	}
	plugins := map[string]map[string]any{
		"no metadata":          nil,
		"no supported key":     {"label": "x"},
		"null supported value": {"supported_schedules": nil},
	}

	checker := NewChecker(true)
	for pname, metadata := range plugins {
		for sname, spec := range specs {
			t.Run(pname+"/"+sname, func(t *testing.T) {
				res, err := checker.CheckSupported(pluginWith(t, metadata), spec)
				require.NoError(t, err)
				assert.True(t, res.Undeclared)
			})
		}
	}
}

func TestCheckSupportedUndeclaredStrict(t *testing.T) {
	checker := NewChecker(false)
	res, err := checker.CheckSupported(pluginWith(t, nil), specOf(t, "", 0, nil, []int{2}))
	require.Error(t, err)
	assert.True(t, res.Undeclared)
	assert.True(t, errs.IsUnsupportedSchedule(err))
}

func TestCheckSupportedBadMetadata(t *testing.T) {
	info := model.PluginInfo{
		PluginID:    "p",
		Version:     "1",
		UpgradeMode: model.UpgradeModeAuto,
		Metadata:    map[string]any{"supported_schedules": "hours"},
	}
	_, err := NewChecker(true).CheckSupported(info, model.ScheduleSpec{})
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidArgument, errs.CodeOf(err))
}
