package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/depot-erp/depot/internal/platform/db"
)

// SessionSweepJob deletes login session records past their expiry.
type SessionSweepJob struct {
	DB       db.DBTX
	Logger   *slog.Logger
	Recorder Recorder
	clock    func() time.Time
}

// NewSessionSweepJob wires dependencies for the sweep handler.
func NewSessionSweepJob(conn db.DBTX, logger *slog.Logger, recorder Recorder) *SessionSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweepJob{
		DB:       conn,
		Logger:   logger,
		Recorder: recorder,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskSessionSweep.
func (j *SessionSweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tag, err := j.DB.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, j.clock())
	if err != nil {
		j.record(OutcomeError)
		j.Logger.Error("sweep sessions", slog.Any("error", err))
		return err
	}
	j.record(OutcomeOK)
	j.Logger.Info("expired sessions removed", slog.Int64("rows", tag.RowsAffected()))
	return nil
}

func (j *SessionSweepJob) record(outcome string) {
	if j.Recorder != nil {
		j.Recorder.RecordJob(TaskSessionSweep, outcome)
	}
}
