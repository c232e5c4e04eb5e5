package cycle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lunara-app/lunara/internal/observability"
	"github.com/lunara-app/lunara/internal/platform/httpx"
	"github.com/lunara-app/lunara/internal/shared"
)

// Handler wires HTTP endpoints for the cycle lifecycle and batch import.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	linker    *BatchLinker
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, linker *BatchLinker, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		linker:    linker,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers cycle routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/start-cycle", h.handleStartCycle)
	r.Post("/end-cycle", h.handleEndCycle)
	r.Get("/latest-cycle", h.handleLatestCycle)
	r.Get("/get-records", h.handleGetRecords)
	r.Post("/add-multiple", h.handleAddMultiple)
}

type startCycleRequest struct {
	StartDay   int `json:"startDay" validate:"required,gte=1,lte=31"`
	StartMonth int `json:"startMonth" validate:"required,gte=1,lte=12"`
	StartYear  int `json:"startYear" validate:"required"`
}

func (h *Handler) handleStartCycle(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req startCycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, "start", fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, "start", ErrMissingStartDate)
		return
	}

	created, err := h.service.StartCycle(r.Context(), identity.UserID, CycleDate{
		Day:   req.StartDay,
		Month: req.StartMonth,
		Year:  req.StartYear,
	})
	if err != nil {
		h.respondError(w, "start", err)
		return
	}

	h.metrics.CountCycleMutation("start", "ok")
	httpx.JSON(w, http.StatusCreated, newCycleView(*created))
}

type endCycleRequest struct {
	EndDay   int `json:"endDay" validate:"required,gte=1,lte=31"`
	EndMonth int `json:"endMonth" validate:"required,gte=1,lte=12"`
	EndYear  int `json:"endYear" validate:"required"`
}

func (h *Handler) handleEndCycle(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req endCycleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, "end", fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, "end", ErrMissingEndDate)
		return
	}

	err := h.service.EndCycle(r.Context(), identity.UserID, CycleDate{
		Day:   req.EndDay,
		Month: req.EndMonth,
		Year:  req.EndYear,
	})
	if err != nil {
		h.respondError(w, "end", err)
		return
	}

	h.metrics.CountCycleMutation("end", "ok")
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *Handler) handleLatestCycle(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	latest, err := h.service.LatestClosedCycle(r.Context(), identity.UserID)
	if err != nil {
		h.respondError(w, "latest", err)
		return
	}
	if latest == nil {
		// No closed cycle is a valid answer, not an error.
		httpx.JSON(w, http.StatusOK, nil)
		return
	}
	httpx.JSON(w, http.StatusOK, newCycleView(*latest))
}

func (h *Handler) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}

	filter, err := recordFilterFromQuery(r)
	if err != nil {
		h.respondError(w, "list", err)
		return
	}

	records, err := h.service.ListRecords(r.Context(), identity.UserID, filter)
	if err != nil {
		h.respondError(w, "list", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newRecordViews(records))
}

type batchEntryRequest struct {
	StartDay   int `json:"startDay" validate:"required,gte=1,lte=31"`
	StartMonth int `json:"startMonth" validate:"required,gte=1,lte=12"`
	StartYear  int `json:"startYear" validate:"required"`
	EndDay     int `json:"endDay" validate:"omitempty,gte=1,lte=31"`
	EndMonth   int `json:"endMonth" validate:"omitempty,gte=1,lte=12"`
	EndYear    int `json:"endYear"`
}

type addMultipleRequest struct {
	Cycles []batchEntryRequest `json:"cycles" validate:"required,min=1,dive"`
}

type addMultipleResponse struct {
	Cycles []cycleView `json:"cycles"`
}

func (h *Handler) handleAddMultiple(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req addMultipleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, "import", fmt.Errorf("%w: cycles should be an array", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, "import", ErrMissingStartDate)
		return
	}

	entries := make([]BatchEntry, len(req.Cycles))
	for i, c := range req.Cycles {
		entries[i] = BatchEntry{
			Start: CycleDate{Day: c.StartDay, Month: c.StartMonth, Year: c.StartYear},
			End:   CycleDate{Day: c.EndDay, Month: c.EndMonth, Year: c.EndYear},
		}
	}

	created, err := h.linker.Link(r.Context(), identity.UserID, entries)
	if err != nil {
		h.respondError(w, "import", err)
		return
	}

	h.metrics.CountCycleMutation("import", "ok")
	httpx.JSON(w, http.StatusCreated, addMultipleResponse{Cycles: newCycleViews(created)})
}

func recordFilterFromQuery(r *http.Request) (RecordFilter, error) {
	var filter RecordFilter
	params := r.URL.Query()
	for _, q := range []struct {
		name string
		dest *int
	}{
		{"Day", &filter.Day},
		{"Month", &filter.Month},
		{"Year", &filter.Year},
	} {
		raw := params.Get(q.name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return RecordFilter{}, fmt.Errorf("%w: %s must be a number", httpx.ErrValidation, q.name)
		}
		*q.dest = value
	}
	return filter, nil
}

// respondError translates engine errors onto the HTTP taxonomy. Storage
// failures are logged and surfaced as a generic error without detail.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrMissingStartDate),
		errors.Is(err, ErrMissingEndDate),
		errors.Is(err, ErrPartialEndDate),
		errors.Is(err, ErrEmptyBatch),
		errors.Is(err, ErrInvalidUserID):
		h.metrics.CountCycleMutation(op, "invalid")
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error()))
	case errors.Is(err, ErrOpenCycleExists):
		h.metrics.CountCycleMutation(op, "conflict")
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error()))
	case errors.Is(err, ErrNoOpenCycle), errors.Is(err, ErrNoRecords):
		h.metrics.CountCycleMutation(op, "not_found")
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error()))
	case errors.Is(err, httpx.ErrValidation):
		h.metrics.CountCycleMutation(op, "invalid")
		httpx.RespondError(w, err)
	default:
		h.metrics.CountCycleMutation(op, "error")
		h.logger.Error("cycle operation failed", slog.String("op", op), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrStorage)
	}
}
