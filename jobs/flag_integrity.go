package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// flagRepairSQL rewrites isCycle wherever it disagrees with the presence of
// an open cycle. The flag is derived state; this scan is the safety net for
// drift left behind by interrupted mutations.
const flagRepairSQL = `
	UPDATE users u
	SET is_cycle = EXISTS (
		SELECT 1 FROM cycles c WHERE c.user_id = u.id AND c.end_year IS NULL
	)
	WHERE is_cycle <> EXISTS (
		SELECT 1 FROM cycles c WHERE c.user_id = u.id AND c.end_year IS NULL
	)`

// NewCycleFlagIntegrityHandler returns the handler for TaskCycleFlagIntegrity.
func NewCycleFlagIntegrityHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tag, err := pool.Exec(ctx, flagRepairSQL)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("cycle flag integrity scan executed",
				slog.String("job", TaskCycleFlagIntegrity),
				slog.Int64("repaired", tag.RowsAffected()),
			)
		}
		return nil
	}
}
