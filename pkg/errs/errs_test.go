package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"not found", NotFound("collector", "collector-1", "domain-1"), CodeNotFound},
		{"wrapped", fmt.Errorf("get collector: %w", NotFound("collector", "c", "d")), CodeNotFound},
		{"unsupported", UnsupportedSchedule([]string{"cron"}, []string{"interval"}), CodeUnsupportedSchedule},
		{"plain", errors.New("boom"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestUnsupportedScheduleContext(t *testing.T) {
	err := UnsupportedSchedule([]string{"hours"}, []string{"cron"})

	assert.True(t, IsUnsupportedSchedule(err))
	assert.Equal(t, []string{"hours"}, err.Strings("supported"))
	assert.Equal(t, []string{"cron"}, err.Strings("requested"))
	assert.Contains(t, err.Error(), "UNSUPPORTED_SCHEDULE")
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("token expired")
	err := Wrap(CodeDispatchBuildFailure, "resolve token", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[DISPATCH_BUILD_FAILURE] resolve token: token expired", err.Error())
}
