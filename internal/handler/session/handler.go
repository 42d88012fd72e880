// Package session mints guest session tokens so the frontend can talk to the
// API without a full account flow.
package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/auth"
	"github.com/skylinehq/skyline/backend/pkg/utils"
)

// Handler owns the session routes.
type Handler struct {
	auth   *auth.Service
	logger *zap.Logger
}

// New creates the session handler.
func New(authService *auth.Service, logger *zap.Logger) *Handler {
	return &Handler{auth: authService, logger: logger.Named("session")}
}

// RegisterRoutes registers the guest-session route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/guest", h.handleGuest)
}

type guestResponse struct {
	Token string        `json:"token"`
	User  auth.Identity `json:"user"`
}

func (h *Handler) handleGuest(w http.ResponseWriter, _ *http.Request) {
	identity := auth.Identity{
		UserID: uuid.NewString(),
		Guest:  true,
	}

	token, err := h.auth.Mint(identity)
	if err != nil {
		h.logger.Error("failed to mint guest token", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to create guest session")
		return
	}

	h.logger.Info("guest session created", zap.String("user_id", identity.UserID))
	utils.RespondJSON(w, http.StatusOK, guestResponse{Token: token, User: identity})
}
