package cycle

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LinkStrategy selects how a batch entry's predecessor is searched.
// Both variants exist in the field; the strategy is explicit configuration
// rather than a silent fix.
type LinkStrategy int

const (
	// StrategyTwoStep probes the entry's own start month/year first, then
	// falls back to the previous month. This is the default.
	StrategyTwoStep LinkStrategy = iota
	// StrategyPrevMonthOnly probes only the month before the entry's start.
	StrategyPrevMonthOnly
)

// PredecessorSource tags where a batch entry's predecessor came from.
type PredecessorSource int

const (
	// PredecessorNone means no predecessor was found; the gap is zero.
	PredecessorNone PredecessorSource = iota
	// PredecessorStorage means the predecessor is an already persisted cycle.
	PredecessorStorage
	// PredecessorBatch means the predecessor is an earlier entry of the
	// same import that has not been flushed yet.
	PredecessorBatch
)

// BatchLinker resolves a list of historically entered cycles into a
// chronologically linked chain, assigning each entry its afterDays gap.
// Entries are processed strictly in list order because each resolution may
// depend on the previous entry's outcome.
type BatchLinker struct {
	repo     RepositoryPort
	locks    LockPort
	cache    CachePort
	logger   *slog.Logger
	strategy LinkStrategy
}

// NewBatchLinker builds a BatchLinker with the given search strategy.
func NewBatchLinker(repo RepositoryPort, locks LockPort, cache CachePort, logger *slog.Logger, strategy LinkStrategy) *BatchLinker {
	return &BatchLinker{
		repo:     repo,
		locks:    locks,
		cache:    cache,
		logger:   logger,
		strategy: strategy,
	}
}

// Link validates, resolves and persists a batch of entries for one user.
// Validation covers the whole batch before any write, and persistence is a
// single transaction: a malformed entry fails the import with nothing
// stored. Batch entries never toggle the isCycle flag and skip the
// open-cycle check; they are historical records, not a live cycle start.
func (l *BatchLinker) Link(ctx context.Context, userID string, entries []BatchEntry) ([]Cycle, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyBatch
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	for _, entry := range entries {
		if !entry.Start.Provided() {
			return nil, ErrMissingStartDate
		}
		if !entry.End.Empty() && !entry.End.Provided() {
			return nil, ErrPartialEndDate
		}
	}

	release, err := l.locks.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	resolved := make([]Cycle, 0, len(entries))
	for _, entry := range entries {
		pred, source, err := l.resolvePredecessor(ctx, uid, entry.Start, resolved)
		if err != nil {
			return nil, err
		}
		afterDays := 0
		if source != PredecessorNone {
			afterDays = GapDays(pred, entry.Start)
		}

		cycle := Cycle{
			ID:        uuid.New(),
			UserID:    uid,
			Start:     entry.Start,
			AfterDays: afterDays,
		}
		if entry.End.Provided() {
			end := entry.End
			cycle.End = &end
		}
		resolved = append(resolved, cycle)
	}

	created, err := l.repo.InsertBatch(ctx, resolved)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.Invalidate(ctx, userID); err != nil && l.logger != nil {
			l.logger.Warn("latest cycle cache invalidate", slog.Any("error", err))
		}
	}
	if l.logger != nil {
		l.logger.Info("batch import linked",
			slog.String("user_id", userID),
			slog.Int("entries", len(created)),
		)
	}
	return created, nil
}

// resolvePredecessor finds the chain-link source for an entry starting at
// start. Lookups consult persisted storage and the already resolved part of
// the current batch; without the latter, chain links inside one import
// would be lost.
func (l *BatchLinker) resolvePredecessor(ctx context.Context, userID uuid.UUID, start CycleDate, pending []Cycle) (CycleDate, PredecessorSource, error) {
	if l.strategy == StrategyTwoStep {
		end, source, err := l.probeMonth(ctx, userID, start.Month, start.Year, pending)
		if err != nil {
			return CycleDate{}, PredecessorNone, err
		}
		if source != PredecessorNone {
			return end, source, nil
		}
	}

	prevMonth, prevYear := PrevMonth(start.Month, start.Year)
	return l.probeMonth(ctx, userID, prevMonth, prevYear, pending)
}

// probeMonth returns the best end date among cycles ending in (month, year):
// the stored cycle with the greatest end day, or an unflushed batch entry
// when it ends later. Ties go to the batch entry, the more recent input.
func (l *BatchLinker) probeMonth(ctx context.Context, userID uuid.UUID, month, year int, pending []Cycle) (CycleDate, PredecessorSource, error) {
	var best CycleDate
	source := PredecessorNone

	stored, err := l.repo.LatestEndingIn(ctx, userID, month, year)
	if err != nil {
		return CycleDate{}, PredecessorNone, err
	}
	if stored != nil && stored.End != nil {
		best = *stored.End
		source = PredecessorStorage
	}

	for _, cycle := range pending {
		if cycle.End == nil || cycle.End.Month != month || cycle.End.Year != year {
			continue
		}
		if source == PredecessorNone || cycle.End.Day >= best.Day {
			best = *cycle.End
			source = PredecessorBatch
		}
	}
	return best, source, nil
}
