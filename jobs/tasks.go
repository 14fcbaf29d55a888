package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegrityScan re-validates every stored period against the construction invariants.
	TaskIntegrityScan = "periods:integrity_scan"
)

// IntegrityScanPayload configures an integrity scan run.
type IntegrityScanPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewIntegrityScanTask constructs an Asynq task.
func NewIntegrityScanTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityScanPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityScan, data), nil
}
