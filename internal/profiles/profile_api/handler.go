package profile_api

import (
	"context"
	"encoding/json"
	"net/http"

	"ms-eventpass/internal/auth"
	"ms-eventpass/internal/models"
	"ms-eventpass/internal/utils"

	"github.com/go-chi/chi/v5"
)

type ProfileService interface {
	Resolve(ctx context.Context, subject string) (*models.Profile, error)
	Register(ctx context.Context, subject string, req models.RegisterProfileRequest) (*models.Profile, error)
}

type Handler struct {
	Profiles ProfileService
}

func NewHandler(profiles ProfileService) *Handler {
	return &Handler{Profiles: profiles}
}

// Routes mounts the profile endpoints. Callers wrap them in the auth middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/profiles/me", h.Register)
	r.Get("/api/profiles/me", h.Me)
}

// Register creates the caller's profile.
// Expected POST body: {"email": "...", "display_name": "...", "role": "attendee|organizer"}
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	profile, err := h.Profiles.Register(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		utils.WriteError(w, "Failed to register profile", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Profile registered", profile))
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Profiles.Resolve(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, "Profile not found", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Profile retrieved", profile))
}
