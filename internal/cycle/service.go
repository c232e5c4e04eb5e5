package cycle

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/lunara-app/lunara/internal/shared"
)

// RepositoryPort defines data access methods for cycles.
type RepositoryPort interface {
	CreateOpen(ctx context.Context, cycle Cycle) (*Cycle, error)
	CloseCycle(ctx context.Context, userID, cycleID uuid.UUID, end CycleDate) error
	OpenCycle(ctx context.Context, userID uuid.UUID) (*Cycle, error)
	LatestEnded(ctx context.Context, userID uuid.UUID, sort EndSort) (*Cycle, error)
	LatestEndingIn(ctx context.Context, userID uuid.UUID, month, year int) (*Cycle, error)
	List(ctx context.Context, userID uuid.UUID, filter RecordFilter) ([]Cycle, error)
	InsertBatch(ctx context.Context, cycles []Cycle) ([]Cycle, error)
}

// LockPort serializes mutations per user. Concurrent starts for the same
// user must not both pass the open-cycle check.
type LockPort interface {
	Acquire(ctx context.Context, userID string) (func(), error)
}

// CachePort caches the latest-closed-cycle lookup.
type CachePort interface {
	GetLatest(ctx context.Context, userID string) (*Cycle, bool, error)
	SetLatest(ctx context.Context, userID string, cycle *Cycle) error
	Invalidate(ctx context.Context, userID string) error
}

// Service owns the cycle lifecycle: the single-open-cycle rule, gap
// computation against the prior ended cycle, and the isCycle flag kept in
// step with cycle mutations.
type Service struct {
	repo   RepositoryPort
	locks  LockPort
	cache  CachePort
	audit  *shared.AuditLogger
	logger *slog.Logger
	flight singleflight.Group
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, locks LockPort, cache CachePort, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		locks:  locks,
		cache:  cache,
		audit:  audit,
		logger: logger,
	}
}

// StartCycle opens a new cycle for the user. The gap to the most recently
// ended cycle (full year/month/day ordering) becomes the new cycle's
// afterDays; with no ended cycle the gap is zero. Fails with
// ErrOpenCycleExists when a cycle is already open.
func (s *Service) StartCycle(ctx context.Context, userID string, start CycleDate) (*Cycle, error) {
	if !start.Provided() {
		return nil, ErrMissingStartDate
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}

	release, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	open, err := s.repo.OpenCycle(ctx, uid)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrOpenCycleExists
	}

	prior, err := s.repo.LatestEnded(ctx, uid, EndSortFull)
	if err != nil {
		return nil, err
	}
	afterDays := 0
	if prior != nil && prior.End != nil {
		afterDays = GapDays(*prior.End, start)
	}

	created, err := s.repo.CreateOpen(ctx, Cycle{
		ID:        uuid.New(),
		UserID:    uid,
		Start:     start,
		AfterDays: afterDays,
	})
	if err != nil {
		return nil, err
	}

	s.invalidateLatest(ctx, userID)
	s.recordAudit(ctx, userID, "cycle.start", created.ID.String(), map[string]any{
		"afterDays": afterDays,
	})
	return created, nil
}

// EndCycle closes the user's open cycle with the given end date. Fails with
// ErrNoOpenCycle when nothing is open.
func (s *Service) EndCycle(ctx context.Context, userID string, end CycleDate) error {
	if !end.Provided() {
		return ErrMissingEndDate
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrInvalidUserID
	}

	release, err := s.locks.Acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	open, err := s.repo.OpenCycle(ctx, uid)
	if err != nil {
		return err
	}
	if open == nil {
		return ErrNoOpenCycle
	}

	if err := s.repo.CloseCycle(ctx, uid, open.ID, end); err != nil {
		return err
	}

	s.invalidateLatest(ctx, userID)
	s.recordAudit(ctx, userID, "cycle.end", open.ID.String(), nil)
	return nil
}

// LatestClosedCycle returns the ended cycle ranked highest by end year and
// month. The end day is not part of the ordering. Returns (nil, nil) when
// no cycle has been closed yet; an empty answer is not an error here.
func (s *Service) LatestClosedCycle(ctx context.Context, userID string) (*Cycle, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}

	result, err, _ := s.flight.Do(userID, func() (any, error) {
		if s.cache != nil {
			cached, hit, err := s.cache.GetLatest(ctx, userID)
			if err != nil && s.logger != nil {
				s.logger.Warn("latest cycle cache read", slog.Any("error", err))
			}
			if err == nil && hit {
				return cached, nil
			}
		}
		latest, err := s.repo.LatestEnded(ctx, uid, EndSortYearMonth)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.SetLatest(ctx, userID, latest); err != nil && s.logger != nil {
				s.logger.Warn("latest cycle cache write", slog.Any("error", err))
			}
		}
		return latest, nil
	})
	if err != nil {
		return nil, err
	}
	cycle, _ := result.(*Cycle)
	return cycle, nil
}

// ListRecords returns all cycles matching the filter, ascending by start
// date. An empty result is reported as ErrNoRecords rather than an empty
// list; callers distinguishing "no matches" from failure rely on it.
func (s *Service) ListRecords(ctx context.Context, userID string, filter RecordFilter) ([]Cycle, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrInvalidUserID
	}
	cycles, err := s.repo.List(ctx, uid, filter)
	if err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return nil, ErrNoRecords
	}
	return cycles, nil
}

func (s *Service) invalidateLatest(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil && s.logger != nil {
		s.logger.Warn("latest cycle cache invalidate", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, userID, action, entityID string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "cycle",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
