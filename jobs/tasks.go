package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/depot-erp/depot/internal/access"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAccessInvalidate drops cached permission sets after a grant edit.
	TaskAccessInvalidate = "access:invalidate"
	// TaskSessionSweep removes expired login session records.
	TaskSessionSweep = "session:sweep"
)

// Job outcomes reported to a Recorder.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder observes processed jobs.
type Recorder interface {
	RecordJob(task, outcome string)
}

// InvalidatePayload names the grant owner whose cached sets are stale.
type InvalidatePayload struct {
	Scope   access.Scope `json:"scope"`
	OwnerID int64        `json:"owner_id"`
}

// NewInvalidateTask constructs an Asynq task.
func NewInvalidateTask(payload InvalidatePayload) (*asynq.Task, error) {
	if !payload.Scope.Valid() || payload.OwnerID <= 0 {
		return nil, fmt.Errorf("jobs: invalid invalidate payload %s/%d", payload.Scope, payload.OwnerID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessInvalidate, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewSessionSweepTask builds the periodic sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil, asynq.Queue(QueueDefault))
}
