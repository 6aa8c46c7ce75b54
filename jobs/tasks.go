package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-kpi/internal/kpi"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskKPIDigest regenerates KPI reports for every known tenant.
	TaskKPIDigest = "kpi:digest"
)

// KPIDigestPayload selects the period the digest reports over.
type KPIDigestPayload struct {
	PeriodDays int `json:"period_days"`
}

// NewKPIDigestTask constructs a digest task for periodDays.
func NewKPIDigestTask(periodDays int) (*asynq.Task, error) {
	if !kpi.Period(periodDays).Valid() {
		return nil, fmt.Errorf("jobs: unsupported digest period %d", periodDays)
	}
	data, err := json.Marshal(KPIDigestPayload{PeriodDays: periodDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskKPIDigest, data, asynq.Queue(QueueDefault)), nil
}
