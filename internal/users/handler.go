package users

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lunara-app/lunara/internal/platform/httpx"
	"github.com/lunara-app/lunara/internal/shared"
)

// Handler wires HTTP endpoints for account details.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
}

type meResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsCycle   bool      `json:"isCycle"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid user ID", httpx.ErrValidation))
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: user not found", httpx.ErrNotFound))
			return
		}
		h.logger.Error("get user", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrStorage)
		return
	}

	httpx.JSON(w, http.StatusOK, meResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		IsCycle:   user.IsCycle,
		CreatedAt: user.CreatedAt,
	})
}
