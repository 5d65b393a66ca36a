package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCostSummaryWarmup recomputes the project cost summary and stores
	// it in redis for dashboard consumers.
	TaskCostSummaryWarmup = "reports:cost_summary_warmup"
)

// CostWarmupPayload parameterizes a warmup run.
type CostWarmupPayload struct {
	TTL time.Duration `json:"ttl"`
}

// NewCostWarmupTask constructs an Asynq task.
func NewCostWarmupTask(payload CostWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCostSummaryWarmup, data), nil
}
