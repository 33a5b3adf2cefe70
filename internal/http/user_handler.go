package httpapi

import (
	"net/http"

	"sleepwise/internal/service"
	"sleepwise/internal/validation"

	"go.uber.org/zap"
)

// UserHandler 当前身份的 profile：GET / POST / PUT /users
type UserHandler struct {
	profiles     service.ProfileService
	maxBodyBytes int64
	logger       *zap.Logger
}

func NewUserHandler(profiles service.ProfileService, maxBodyBytes int64, logger *zap.Logger) *UserHandler {
	return &UserHandler{profiles: profiles, maxBodyBytes: maxBodyBytes, logger: logger}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), identityOf(r).ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *UserHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.maxBodyBytes)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := validation.ParseProfile(body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if _, err := h.profiles.Create(r.Context(), identityOf(r).ID, p); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, okBody{Message: "ok"})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, h.maxBodyBytes)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	patch, err := validation.ParseProfilePatch(body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := h.profiles.Update(r.Context(), identityOf(r).ID, patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
