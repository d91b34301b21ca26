package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCreditDefaultScan is the task type for the nightly aging scan that
	// defaults long-overdue credits.
	TaskCreditDefaultScan = "credits:default_scan"
)

// CreditDefaultScanPayload parameterises one aging scan run. AsOf empty means
// "now at execution time".
type CreditDefaultScanPayload struct {
	AsOf      time.Time `json:"asOf,omitzero"`
	GraceDays int       `json:"graceDays"`
}

// NewCreditDefaultScanTask constructs the aging-scan task.
func NewCreditDefaultScanTask(payload CreditDefaultScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCreditDefaultScan, data), nil
}
