package model

import (
	"strings"

	"github.com/google/uuid"
)

func newID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// NewCollectorID 生成采集器 ID，形如 collector-1a2b3c4d5e6f
func NewCollectorID() string { return newID("collector") }

// NewScheduleID 生成调度 ID
func NewScheduleID() string { return newID("sched") }

// NewJobID 生成采集作业 ID（临时采集未携带作业时使用）
func NewJobID() string { return newID("job") }

// NewJobTaskID 生成作业子任务 ID
func NewJobTaskID() string { return newID("job-task") }
