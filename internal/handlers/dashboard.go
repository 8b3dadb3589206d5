package handlers

import (
	"net/http"

	"github.com/brandpick/apiserver/internal/services"
	"github.com/brandpick/apiserver/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DashboardHandler shows brands the campaigns built from their products.
type DashboardHandler struct {
	campaigns *services.CampaignService
	logger    *zap.Logger
}

func NewDashboardHandler(campaigns *services.CampaignService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{campaigns: campaigns, logger: logger}
}

func DashboardRouter(r chi.Router, handler *DashboardHandler) {
	r.Get("/campaigns", handler.ListCampaigns)
}

type CampaignListResponse struct {
	Campaigns []types.CampaignWithOwner `json:"campaigns"`
	Total     int                       `json:"total"`
}

func (h *DashboardHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	page, limit, err := parsePagination(r, "limit")
	if err != nil {
		writeRequestError(w, err)
		return
	}

	campaigns, total, err := h.campaigns.ListCampaignsForBrand(r.Context(), user.ID, page, limit)
	if err != nil {
		writeInternalError(w, h.logger, "list campaigns", err)
		return
	}

	writeJSON(w, http.StatusOK, CampaignListResponse{Campaigns: campaigns, Total: total})
}
