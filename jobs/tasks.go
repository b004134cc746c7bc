package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpiryScan reports stock that is expired or about to expire.
	TaskExpiryScan = "barcodes:expiry_scan"
)

// ExpiryScanPayload configures a single expiry scan.
type ExpiryScanPayload struct {
	WindowDays int `json:"window_days"`
}

// NewExpiryScanTask constructs an Asynq task for the expiry scan.
func NewExpiryScanTask(windowDays int) (*asynq.Task, error) {
	data, err := json.Marshal(ExpiryScanPayload{WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpiryScan, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}
