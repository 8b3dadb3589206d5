package handlers

import (
	"errors"
	"net/http"

	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/internal/store"
	"github.com/brandpick/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ProfileHandler lets brands describe themselves.
type ProfileHandler struct {
	users  *services.UserService
	logger *zap.Logger
}

func NewProfileHandler(users *services.UserService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, logger: logger}
}

func ProfileRouter(r chi.Router, handler *ProfileHandler) {
	r.Post("/", handler.AddProfile)
}

type ProfileRequest struct {
	Name      string `json:"name" validate:"required"`
	Country   string `json:"country" validate:"required"`
	Website   string `json:"website" validate:"required,url"`
	Instagram string `json:"instagram" validate:"required,url"`
	Code      *int   `json:"code" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

func (h *ProfileHandler) AddProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req ProfileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	profile, err := h.users.AddProfile(r.Context(), user.ID, types.BrandProfile{
		Name:      req.Name,
		Country:   req.Country,
		Website:   req.Website,
		Instagram: req.Instagram,
		Code:      *req.Code,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User does not exist")
			return
		}
		writeInternalError(w, h.logger, "add profile", err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}
