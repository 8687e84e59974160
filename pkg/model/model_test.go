package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collector-manager/pkg/errs"
)

func TestNewScheduleSpec(t *testing.T) {
	tests := []struct {
		name     string
		cron     string
		interval int
		minutes  []int
		hours    []int
		wantErr  bool
		kinds    []string
	}{
		{"empty", "", 0, nil, nil, false, []string{}},
		{"hours", "", 0, nil, []int{3, 15}, false, []string{"hours"}},
		{"cron", "0 * * * *", 0, nil, nil, false, []string{"cron"}},
		{"interval and minutes", "", 600, []int{0, 30}, nil, false, []string{"interval", "minutes"}},
		{"interval too large", "", 3601, nil, nil, true, nil},
		{"negative interval", "", -1, nil, nil, true, nil},
		{"hour out of range", "", 0, nil, []int{24}, true, nil},
		{"minute out of range", "", 0, []int{60}, nil, true, nil},
		{"bad cron", "every day", 0, nil, nil, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewScheduleSpec(tt.cron, tt.interval, tt.minutes, tt.hours)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.Is(err, errs.CodeInvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kinds, spec.Kinds())
		})
	}
}

func TestScheduleSpecCloneIsIndependent(t *testing.T) {
	hours := []int{1, 2}
	spec, err := NewScheduleSpec("", 0, nil, hours)
	require.NoError(t, err)

	hours[0] = 9
	clone := spec.Clone()
	clone.Hours[1] = 7

	assert.Equal(t, []int{1, 2}, spec.Hours)
}

func TestPluginInfoSupportedSchedules(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		kinds    []string
		declared bool
		wantErr  bool
	}{
		{"no metadata", nil, nil, false, false},
		{"metadata without key", map[string]any{"other": 1}, nil, false, false},
		{"string slice", map[string]any{"supported_schedules": []string{"cron"}}, []string{"cron"}, true, false},
		{"any slice", map[string]any{"supported_schedules": []any{"hours", "interval"}}, []string{"hours", "interval"}, true, false},
		{"wrong type", map[string]any{"supported_schedules": "cron"}, nil, true, true},
		{"wrong element", map[string]any{"supported_schedules": []any{1}}, nil, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PluginInfo{PluginID: "plugin-aws", Version: "1.0", UpgradeMode: UpgradeModeAuto, Metadata: tt.metadata}
			kinds, declared, err := p.SupportedSchedules()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.declared, declared)
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestPluginInfoToMap(t *testing.T) {
	p, err := NewPluginInfo("plugin-aws", "1.2.0", "", map[string]any{"region": "us-east-1"}, nil, nil)
	require.NoError(t, err)

	m, err := p.ToMap()
	require.NoError(t, err)

	assert.Equal(t, "plugin-aws", m["plugin_id"])
	assert.Equal(t, "1.2.0", m["version"])
	assert.Equal(t, "AUTO", m["upgrade_mode"])
	assert.Equal(t, map[string]any{"region": "us-east-1"}, m["options"])
}

func TestNewPluginInfoValidation(t *testing.T) {
	_, err := NewPluginInfo("", "1.0", UpgradeModeAuto, nil, nil, nil)
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))

	_, err = NewPluginInfo("plugin", "1.0", UpgradeMode("SOMETIMES"), nil, nil, nil)
	assert.True(t, errs.Is(err, errs.CodeInvalidArgument))
}

func TestNewCollectorDefaults(t *testing.T) {
	c, err := NewCollector(CollectorParams{Name: "aws", DomainID: "domain-1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.CollectorID, "collector-"))
	assert.Equal(t, StateEnabled, c.State)
	assert.Equal(t, DefaultPriority, c.Priority)
	assert.True(t, c.IsEnabled())
}

func TestNewCollectorValidation(t *testing.T) {
	tooHigh := 100
	tests := []struct {
		name   string
		params CollectorParams
	}{
		{"missing name", CollectorParams{DomainID: "d"}},
		{"missing domain", CollectorParams{Name: "n"}},
		{"bad state", CollectorParams{Name: "n", DomainID: "d", State: "PAUSED"}},
		{"priority out of range", CollectorParams{Name: "n", DomainID: "d", Priority: &tooHigh}},
		{"bad schedule", CollectorParams{Name: "n", DomainID: "d", Schedule: &ScheduleSpec{Interval: 5000}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCollector(tt.params)
			assert.True(t, errs.Is(err, errs.CodeInvalidArgument), "got %v", err)
		})
	}
}

func TestCollectorUpdateApply(t *testing.T) {
	c, err := NewCollector(CollectorParams{Name: "aws", DomainID: "domain-1", Tags: map[string]any{"a": "b"}})
	require.NoError(t, err)

	disabled := StateDisabled
	out, err := CollectorUpdate{State: &disabled, Tags: map[string]any{"c": "d"}}.Apply(c)
	require.NoError(t, err)

	assert.Equal(t, StateDisabled, out.State)
	assert.Equal(t, map[string]any{"c": "d"}, out.Tags)
	assert.Equal(t, StateEnabled, c.State, "original must not change")

	bad := State("UNKNOWN")
	_, err = CollectorUpdate{State: &bad}.Apply(c)
	assert.Error(t, err)
}

func TestNewScheduleDefaults(t *testing.T) {
	s, err := NewSchedule(ScheduleParams{Name: "nightly", CollectorID: "collector-1", DomainID: "domain-1"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(s.ScheduleID, "sched-"))
	assert.Equal(t, CollectModeAll, s.CollectMode)

	_, err = NewSchedule(ScheduleParams{Name: "x", CollectorID: "c", DomainID: "d", CollectMode: "SOME"})
	assert.Error(t, err)
}
