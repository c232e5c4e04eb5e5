package cycle

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLinker(repo *fakeRepository, strategy LinkStrategy) *BatchLinker {
	return NewBatchLinker(repo, &fakeLocks{}, newFakeCache(), nil, strategy)
}

func TestLinkSingleEntryNoPredecessor(t *testing.T) {
	repo := newFakeRepository()
	linker := newTestLinker(repo, StrategyTwoStep)

	created, err := linker.Link(context.Background(), uuid.NewString(), []BatchEntry{
		{Start: CycleDate{Day: 5, Month: 6, Year: 2024}, End: CycleDate{Day: 10, Month: 6, Year: 2024}},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 0, created[0].AfterDays)
	assert.NotNil(t, created[0].End)
}

func TestLinkFindsSameMonthPredecessor(t *testing.T) {
	repo := newFakeRepository()
	linker := newTestLinker(repo, StrategyTwoStep)
	userID := uuid.New()
	repo.cycles = append(repo.cycles, endedCycle(userID,
		CycleDate{Day: 25, Month: 2, Year: 2024},
		CycleDate{Day: 28, Month: 2, Year: 2024}))

	created, err := linker.Link(context.Background(), userID.String(), []BatchEntry{
		{Start: CycleDate{Day: 1, Month: 3, Year: 2024}},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	// The previous-month probe bridges February into March.
	assert.Equal(t, 2, created[0].AfterDays)
	assert.Nil(t, created[0].End)
}

func TestLinkFallsBackAcrossYear(t *testing.T) {
	repo := newFakeRepository()
	linker := newTestLinker(repo, StrategyTwoStep)
	userID := uuid.New()
	repo.cycles = append(repo.cycles, endedCycle(userID,
		CycleDate{Day: 15, Month: 12, Year: 2024},
		CycleDate{Day: 20, Month: 12, Year: 2024}))

	created, err := linker.Link(context.Background(), userID.String(), []BatchEntry{
		{Start: CycleDate{Day: 5, Month: 1, Year: 2025}},
	})
	require.NoError(t, err)
	assert.Equal(t, 16, created[0].AfterDays)
}

func TestLinkChainsWithinBatch(t *testing.T) {
	repo := newFakeRepository()
	linker := newTestLinker(repo, StrategyTwoStep)
	userID := uuid.New()

	created, err := linker.Link(context.Background(), userID.String(), []BatchEntry{
		{Start: CycleDate{Day: 1, Month: 1, Year: 2025}, End: CycleDate{Day: 5, Month: 1, Year: 2025}},
		{Start: CycleDate{Day: 28, Month: 1, Year: 2025}, End: CycleDate{Day: 2, Month: 2, Year: 2025}},
		{Start: CycleDate{Day: 25, Month: 2, Year: 2025}},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, 0, created[0].AfterDays)
	// Second entry links to the first before anything is persisted.
	assert.Equal(t, 23, created[1].AfterDays)
	assert.Equal(t, 23, created[2].AfterDays)
}

func TestLinkPrefersLaterEndDay(t *testing.T) {
	repo := newFakeRepository()
	linker := newTestLinker(repo, StrategyTwoStep)
	userID := uuid.New()
	repo.cycles = append(repo.cycles, endedCycle(userID,
		CycleDate{Day: 1, Month: 1, Year: 2025},
		CycleDate{Day: 3, Month: 1, Year: 2025}))

	created, err := linker.Link(context.Background(), userID.String(), []BatchEntry{
		{Start: CycleDate{Day: 1, Month: 1, Year: 2025}, End: CycleDate{Day: 5, Month: 1, Year: 2025}},
		{Start: CycleDate{Day: 20, Month: 1, Year: 2025}},
	})
	require.NoError(t, err)
	// Batch entry ends on the 5th, stored cycle on the 3rd; the later wins.
	assert.Equal(t, 15, created[1].AfterDays)
}

func TestLinkStrategyPrevMonthOnly(t *testing.T) {
	userID := uuid.New()
	entry := []BatchEntry{{Start: CycleDate{Day: 30, Month: 3, Year: 2025}}}
	seed := endedCycle(userID,
		CycleDate{Day: 25, Month: 2, Year: 2025},
		CycleDate{Day: 2, Month: 3, Year: 2025})

	repo := newFakeRepository()
	repo.cycles = append(repo.cycles, seed)
	created, err := newTestLinker(repo, StrategyTwoStep).Link(context.Background(), userID.String(), entry)
	require.NoError(t, err)
	assert.Equal(t, 28, created[0].AfterDays)

	repo = newFakeRepository()
	repo.cycles = append(repo.cycles, seed)
	created, err = newTestLinker(repo, StrategyPrevMonthOnly).Link(context.Background(), userID.String(), entry)
	require.NoError(t, err)
	// The same-month probe is skipped, so the March predecessor stays unseen.
	assert.Equal(t, 0, created[0].AfterDays)
}

func TestLinkValidation(t *testing.T) {
	repo := newFakeRepository()
	linker := newTestLinker(repo, StrategyTwoStep)
	userID := uuid.NewString()

	_, err := linker.Link(context.Background(), userID, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = linker.Link(context.Background(), "nope", []BatchEntry{
		{Start: CycleDate{Day: 1, Month: 1, Year: 2025}},
	})
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = linker.Link(context.Background(), userID, []BatchEntry{
		{Start: CycleDate{Day: 1, Month: 1}},
	})
	assert.ErrorIs(t, err, ErrMissingStartDate)

	_, err = linker.Link(context.Background(), userID, []BatchEntry{
		{Start: CycleDate{Day: 1, Month: 1, Year: 2025}, End: CycleDate{Day: 5, Month: 1}},
	})
	assert.ErrorIs(t, err, ErrPartialEndDate)
	assert.Empty(t, repo.cycles)
}

func TestLinkAllOrNothing(t *testing.T) {
	repo := newFakeRepository()
	repo.insertErr = errors.New("boom")
	linker := newTestLinker(repo, StrategyTwoStep)

	_, err := linker.Link(context.Background(), uuid.NewString(), []BatchEntry{
		{Start: CycleDate{Day: 1, Month: 1, Year: 2025}, End: CycleDate{Day: 5, Month: 1, Year: 2025}},
		{Start: CycleDate{Day: 28, Month: 1, Year: 2025}},
	})
	require.Error(t, err)
	assert.Empty(t, repo.cycles)
}
