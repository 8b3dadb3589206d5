package handlers

import (
	"errors"
	"net/http"

	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PickerHandler provides the endpoints pickers build campaigns with.
type PickerHandler struct {
	campaigns *services.CampaignService
	users     *services.UserService
	logger    *zap.Logger
}

func NewPickerHandler(campaigns *services.CampaignService, users *services.UserService, logger *zap.Logger) *PickerHandler {
	return &PickerHandler{campaigns: campaigns, users: users, logger: logger}
}

func PickerRouter(r chi.Router, handler *PickerHandler) {
	r.Post("/campaign", handler.CreateCampaign)
	r.Get("/brands", handler.ListBrands)
}

type CampaignRequest struct {
	BrandID  string   `json:"brandId" validate:"required,objectid"`
	Products []string `json:"products" validate:"required,dive,objectid"`
}

type BrandListResponse struct {
	Brands []types.User `json:"brands"`
	Total  int          `json:"total"`
}

func (h *PickerHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	var req CampaignRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	campaign, err := h.campaigns.CreateCampaign(r.Context(), user.ID, req.BrandID, req.Products)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBrandNotFound):
			writeError(w, http.StatusBadRequest, "User does not exist")
		case errors.Is(err, services.ErrNotBrand):
			writeError(w, http.StatusBadRequest, "User is not brand")
		case errors.Is(err, services.ErrInvalidProducts):
			writeError(w, http.StatusBadRequest, "Invalid products list")
		default:
			writeInternalError(w, h.logger, "create campaign", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, campaign)
}

func (h *PickerHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r, "limit")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	brands, total, err := h.users.ListBrands(r.Context(), page, limit)
	if err != nil {
		writeInternalError(w, h.logger, "list brands", err)
		return
	}

	writeJSON(w, http.StatusOK, BrandListResponse{Brands: brands, Total: total})
}
