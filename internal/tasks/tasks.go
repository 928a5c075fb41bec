package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type names.
const (
	// TypeRevokedSweep deletes revoked-token records past their expiry.
	TypeRevokedSweep = "revoked:sweep"
)

// RevokedSweepPayload is informational; the sweep always uses the current time.
type RevokedSweepPayload struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// NewRevokedSweepTask builds the periodic sweep task.
func NewRevokedSweepTask() (*asynq.Task, error) {
	payload, err := json.Marshal(RevokedSweepPayload{ScheduledAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRevokedSweep, payload, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}
