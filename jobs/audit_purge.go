package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/lunara-app/lunara/internal/shared"
)

// NewAuditPurgeHandler returns the handler for TaskAuditPurge.
func NewAuditPurgeHandler(audit *shared.AuditLogger, retention time.Duration, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := audit.Purge(ctx, retention)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("audit purge executed",
				slog.String("job", TaskAuditPurge),
				slog.Int64("removed", removed),
			)
		}
		return nil
	}
}
