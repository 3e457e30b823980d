package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/depot-erp/depot/internal/access"
)

// VersionBumper makes cached sets of a grant owner unreachable.
type VersionBumper interface {
	InvalidateGrants(ctx context.Context, scope access.Scope, ownerID int64) error
}

// InvalidateJob handles TaskAccessInvalidate.
type InvalidateJob struct {
	Cache    VersionBumper
	Logger   *slog.Logger
	Recorder Recorder
}

// NewInvalidateJob wires dependencies for the invalidation handler.
func NewInvalidateJob(cache VersionBumper, logger *slog.Logger, recorder Recorder) *InvalidateJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvalidateJob{Cache: cache, Logger: logger, Recorder: recorder}
}

// Handle processes invalidation tasks. Malformed payloads are not retried.
func (j *InvalidateJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("access invalidate: handler not configured")
	}
	var payload InvalidatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || !payload.Scope.Valid() || payload.OwnerID <= 0 {
		j.record(OutcomeError)
		j.Logger.Warn("drop malformed invalidate task", slog.String("payload", string(t.Payload())))
		return asynq.SkipRetry
	}
	if err := j.Cache.InvalidateGrants(ctx, payload.Scope, payload.OwnerID); err != nil {
		j.record(OutcomeError)
		j.Logger.Error("invalidate permission sets",
			slog.String("scope", string(payload.Scope)),
			slog.Int64("owner_id", payload.OwnerID),
			slog.Any("error", err))
		return err
	}
	j.record(OutcomeOK)
	j.Logger.Info("permission sets invalidated",
		slog.String("scope", string(payload.Scope)),
		slog.Int64("owner_id", payload.OwnerID))
	return nil
}

func (j *InvalidateJob) record(outcome string) {
	if j.Recorder != nil {
		j.Recorder.RecordJob(TaskAccessInvalidate, outcome)
	}
}
