package cycle

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunara-app/lunara/internal/observability"
	"github.com/lunara-app/lunara/internal/shared"
)

func newTestRouter(repo *fakeRepository, userID string) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(repo, &fakeLocks{}, newFakeCache(), nil, logger)
	linker := NewBatchLinker(repo, &fakeLocks{}, newFakeCache(), logger, StrategyTwoStep)
	handler := NewHandler(logger, service, linker, observability.NewMetrics())

	r := chi.NewRouter()
	if userID != "" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := shared.ContextWithIdentity(req.Context(), shared.Identity{
					UserID:   userID,
					Username: "luna",
				})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	r.Route("/cycles", handler.MountRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerStartCycle(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	repo.cycles = append(repo.cycles, endedCycle(userID,
		CycleDate{Day: 5, Month: 1, Year: 2024},
		CycleDate{Day: 10, Month: 1, Year: 2024}))
	router := newTestRouter(repo, userID.String())

	rec := doRequest(t, router, http.MethodPost, "/cycles/start-cycle",
		`{"startDay":15,"startMonth":1,"startYear":2024}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		AfterDays int  `json:"afterDays"`
		EndDay    *int `json:"endDay"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.AfterDays)
	assert.Nil(t, resp.EndDay)

	// Second start while one is still open.
	rec = doRequest(t, router, http.MethodPost, "/cycles/start-cycle",
		`{"startDay":16,"startMonth":1,"startYear":2024}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerStartCycleValidation(t *testing.T) {
	router := newTestRouter(newFakeRepository(), uuid.NewString())

	rec := doRequest(t, router, http.MethodPost, "/cycles/start-cycle",
		`{"startDay":15,"startMonth":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/cycles/start-cycle", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRequiresIdentity(t *testing.T) {
	router := newTestRouter(newFakeRepository(), "")

	rec := doRequest(t, router, http.MethodPost, "/cycles/start-cycle",
		`{"startDay":15,"startMonth":1,"startYear":2024}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerEndCycle(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	router := newTestRouter(repo, userID.String())

	// Ending with nothing open.
	rec := doRequest(t, router, http.MethodPost, "/cycles/end-cycle",
		`{"endDay":6,"endMonth":4,"endYear":2025}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusCreated, doRequest(t, router, http.MethodPost, "/cycles/start-cycle",
		`{"startDay":1,"startMonth":4,"startYear":2025}`).Code)

	rec = doRequest(t, router, http.MethodPost, "/cycles/end-cycle",
		`{"endDay":6,"endMonth":4,"endYear":2025}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerLatestCycle(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	router := newTestRouter(repo, userID.String())

	rec := doRequest(t, router, http.MethodGet, "/cycles/latest-cycle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	repo.cycles = append(repo.cycles, endedCycle(userID,
		CycleDate{Day: 1, Month: 4, Year: 2025},
		CycleDate{Day: 6, Month: 4, Year: 2025}))

	// A fresh router avoids the latest-cycle cache from the first call.
	router = newTestRouter(repo, userID.String())
	rec = doRequest(t, router, http.MethodGet, "/cycles/latest-cycle", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		EndDay *int `json:"endDay"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.EndDay)
	assert.Equal(t, 6, *resp.EndDay)
}

func TestHandlerGetRecords(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	router := newTestRouter(repo, userID.String())

	rec := doRequest(t, router, http.MethodGet, "/cycles/get-records", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	repo.cycles = append(repo.cycles,
		endedCycle(userID, CycleDate{Day: 1, Month: 1, Year: 2025}, CycleDate{Day: 6, Month: 1, Year: 2025}),
		endedCycle(userID, CycleDate{Day: 3, Month: 2, Year: 2025}, CycleDate{Day: 8, Month: 2, Year: 2025}),
	)

	rec = doRequest(t, router, http.MethodGet, "/cycles/get-records?Year=2025", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []struct {
		StartMonth string `json:"startMonth"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "January", records[0].StartMonth)
	assert.Equal(t, "February", records[1].StartMonth)

	rec = doRequest(t, router, http.MethodGet, "/cycles/get-records?Month=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerAddMultiple(t *testing.T) {
	repo := newFakeRepository()
	userID := uuid.New()
	router := newTestRouter(repo, userID.String())

	body := `{"cycles":[
		{"startDay":1,"startMonth":1,"startYear":2025,"endDay":5,"endMonth":1,"endYear":2025},
		{"startDay":28,"startMonth":1,"startYear":2025}
	]}`
	rec := doRequest(t, router, http.MethodPost, "/cycles/add-multiple", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Cycles []struct {
			AfterDays int `json:"afterDays"`
		} `json:"cycles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Cycles, 2)
	assert.Equal(t, 0, resp.Cycles[0].AfterDays)
	assert.Equal(t, 23, resp.Cycles[1].AfterDays)
	assert.Len(t, repo.cycles, 2)
}

func TestHandlerAddMultipleValidation(t *testing.T) {
	router := newTestRouter(newFakeRepository(), uuid.NewString())

	rec := doRequest(t, router, http.MethodPost, "/cycles/add-multiple", `{"cycles":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/cycles/add-multiple",
		`{"cycles":[{"startDay":1,"startMonth":1,"startYear":2025,"endDay":5}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
