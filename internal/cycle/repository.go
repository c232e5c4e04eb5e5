package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lunara-app/lunara/internal/platform/db"
)

const cycleColumns = `id, user_id, start_day, start_month, start_year, end_day, end_month, end_year, after_days, created_at`

// Repository provides PostgreSQL backed persistence for cycles. Every call
// is bounded by the configured storage timeout.
type Repository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) *Repository {
	return &Repository{pool: pool, timeout: timeout}
}

func (r *Repository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func storageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrStorageTimeout, op)
	}
	return fmt.Errorf("cycle: %s: %w", op, err)
}

// CreateOpen inserts a new open cycle and raises the owner's isCycle flag in
// the same transaction.
func (r *Repository) CreateOpen(ctx context.Context, cycle Cycle) (*Cycle, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertCycle(ctx, tx, &cycle); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE users SET is_cycle = TRUE WHERE id = $1`, cycle.UserID)
		return err
	})
	if err != nil {
		return nil, storageErr("create open cycle", err)
	}
	return &cycle, nil
}

// CloseCycle writes the end date onto a cycle and lowers the owner's isCycle
// flag in the same transaction.
func (r *Repository) CloseCycle(ctx context.Context, userID, cycleID uuid.UUID, end CycleDate) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE cycles
			SET end_day = $3, end_month = $4, end_year = $5
			WHERE id = $1 AND user_id = $2 AND end_year IS NULL`,
			cycleID, userID, end.Day, end.Month, end.Year)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNoOpenCycle
		}
		_, err = tx.Exec(ctx, `UPDATE users SET is_cycle = FALSE WHERE id = $1`, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNoOpenCycle) {
			return ErrNoOpenCycle
		}
		return storageErr("close cycle", err)
	}
	return nil
}

// OpenCycle returns the user's open cycle, preferring the latest start date
// should more than one exist. Returns (nil, nil) when there is none.
func (r *Repository) OpenCycle(ctx context.Context, userID uuid.UUID) (*Cycle, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		SELECT ` + cycleColumns + `
		FROM cycles
		WHERE user_id = $1 AND end_year IS NULL
		ORDER BY start_year DESC, start_month DESC, start_day DESC
		LIMIT 1`

	cycle, err := scanCycle(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("find open cycle", err)
	}
	return cycle, nil
}

// LatestEnded returns the most recently ended cycle under the given sort
// strategy. Returns (nil, nil) when no cycle has ended yet.
func (r *Repository) LatestEnded(ctx context.Context, userID uuid.UUID, sort EndSort) (*Cycle, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	order := "end_year DESC, end_month DESC, end_day DESC"
	if sort == EndSortYearMonth {
		order = "end_year DESC, end_month DESC"
	}
	query := `
		SELECT ` + cycleColumns + `
		FROM cycles
		WHERE user_id = $1 AND end_year IS NOT NULL
		ORDER BY ` + order + `
		LIMIT 1`

	cycle, err := scanCycle(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("find latest ended cycle", err)
	}
	return cycle, nil
}

// LatestEndingIn returns the cycle with the greatest end day among those
// ending in the given month and year, or (nil, nil).
func (r *Repository) LatestEndingIn(ctx context.Context, userID uuid.UUID, month, year int) (*Cycle, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		SELECT ` + cycleColumns + `
		FROM cycles
		WHERE user_id = $1 AND end_month = $2 AND end_year = $3
		ORDER BY end_day DESC
		LIMIT 1`

	cycle, err := scanCycle(r.pool.QueryRow(ctx, query, userID, month, year))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storageErr("find cycle ending in month", err)
	}
	return cycle, nil
}

// List returns all cycles for a user matching the filter, ordered ascending
// by start date.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, filter RecordFilter) ([]Cycle, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		SELECT ` + cycleColumns + `
		FROM cycles
		WHERE user_id = $1`

	args := []any{userID}
	argNum := 2

	if filter.Day != 0 {
		query += fmt.Sprintf(" AND start_day = $%d", argNum)
		args = append(args, filter.Day)
		argNum++
	}
	if filter.Month != 0 {
		query += fmt.Sprintf(" AND start_month = $%d", argNum)
		args = append(args, filter.Month)
		argNum++
	}
	if filter.Year != 0 {
		query += fmt.Sprintf(" AND start_year = $%d", argNum)
		args = append(args, filter.Year)
	}

	query += " ORDER BY start_year, start_month, start_day"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("list cycles", err)
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, storageErr("list cycles", err)
		}
		cycles = append(cycles, *cycle)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list cycles", err)
	}
	return cycles, nil
}

// InsertBatch persists all cycles in one transaction so a failed import
// leaves no partial rows behind.
func (r *Repository) InsertBatch(ctx context.Context, cycles []Cycle) ([]Cycle, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for i := range cycles {
			if err := insertCycle(ctx, tx, &cycles[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("insert batch", err)
	}
	return cycles, nil
}

func insertCycle(ctx context.Context, tx pgx.Tx, cycle *Cycle) error {
	var endDay, endMonth, endYear pgtype.Int4
	if cycle.End != nil {
		endDay = pgtype.Int4{Int32: int32(cycle.End.Day), Valid: true}
		endMonth = pgtype.Int4{Int32: int32(cycle.End.Month), Valid: true}
		endYear = pgtype.Int4{Int32: int32(cycle.End.Year), Valid: true}
	}
	return tx.QueryRow(ctx, `
		INSERT INTO cycles (id, user_id, start_day, start_month, start_year, end_day, end_month, end_year, after_days, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at`,
		cycle.ID,
		cycle.UserID,
		cycle.Start.Day,
		cycle.Start.Month,
		cycle.Start.Year,
		endDay,
		endMonth,
		endYear,
		cycle.AfterDays,
	).Scan(&cycle.CreatedAt)
}

func scanCycle(row pgx.Row) (*Cycle, error) {
	var cycle Cycle
	var endDay, endMonth, endYear pgtype.Int4

	err := row.Scan(
		&cycle.ID,
		&cycle.UserID,
		&cycle.Start.Day,
		&cycle.Start.Month,
		&cycle.Start.Year,
		&endDay,
		&endMonth,
		&endYear,
		&cycle.AfterDays,
		&cycle.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endYear.Valid {
		cycle.End = &CycleDate{
			Day:   int(endDay.Int32),
			Month: int(endMonth.Int32),
			Year:  int(endYear.Int32),
		}
	}
	return &cycle, nil
}
