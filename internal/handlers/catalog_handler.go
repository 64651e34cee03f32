package handlers

import (
	"net/http"

	"github.com/dazzlersden/backend/internal/services"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalog   *services.CatalogService
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewCatalogHandler(catalog *services.CatalogService, log *zap.Logger) *CatalogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{
		catalog:   catalog,
		validator: services.NewValidationHelper(),
		log:       log.Named("http.catalog"),
	}
}

// Plans lists price plans
// @Summary List price plans
// @Description Active plans, cheapest first. all=true includes deactivated plans.
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param all query bool false "Include deactivated plans"
// @Success 200 {array} models.PricePlan
// @Router /plans [get]
func (h *CatalogHandler) Plans(w http.ResponseWriter, r *http.Request) {
	list := h.catalog.ListPlans
	if r.URL.Query().Get("all") == "true" {
		list = h.catalog.ListAllPlans
	}

	plans, err := list(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// CreatePlan adds a price plan
// @Summary Create price plan
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.PlanRequest true "Price plan"
// @Success 201 {object} models.PricePlan
// @Failure 400 {object} services.ErrorResponse
// @Router /plans [post]
func (h *CatalogHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req services.PlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan, err := h.catalog.CreatePlan(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// UpdatePlan edits a price plan
// @Summary Update price plan
// @Description Price changes apply to new sessions only.
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Plan ID"
// @Param request body services.PlanRequest true "Price plan"
// @Success 200 {object} models.PricePlan
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /plans/{id} [put]
func (h *CatalogHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid plan id", http.StatusBadRequest, nil)
		return
	}

	var req services.PlanRequest
	if !h.decode(w, r, &req) {
		return
	}

	plan, err := h.catalog.UpdatePlan(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// DeactivatePlan retires a price plan
// @Summary Deactivate price plan
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Plan ID"
// @Success 200 {object} models.PricePlan
// @Failure 404 {object} services.ErrorResponse
// @Router /plans/{id} [delete]
func (h *CatalogHandler) DeactivatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid plan id", http.StatusBadRequest, nil)
		return
	}

	plan, err := h.catalog.DeactivatePlan(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// Offers lists recharge offers
// @Summary List recharge offers
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.RechargeOffer
// @Router /offers [get]
func (h *CatalogHandler) Offers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.catalog.ListOffers(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

// CreateOffer adds a recharge offer
// @Summary Create recharge offer
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.OfferRequest true "Recharge offer"
// @Success 201 {object} models.RechargeOffer
// @Failure 400 {object} services.ErrorResponse
// @Router /offers [post]
func (h *CatalogHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req services.OfferRequest
	if !h.decode(w, r, &req) {
		return
	}

	offer, err := h.catalog.CreateOffer(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

// UpdateOffer edits a recharge offer
// @Summary Update recharge offer
// @Tags Catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Offer ID"
// @Param request body services.OfferRequest true "Recharge offer"
// @Success 200 {object} models.RechargeOffer
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /offers/{id} [put]
func (h *CatalogHandler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid offer id", http.StatusBadRequest, nil)
		return
	}

	var req services.OfferRequest
	if !h.decode(w, r, &req) {
		return
	}

	offer, err := h.catalog.UpdateOffer(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

// DeactivateOffer stops an offer
// @Summary Deactivate recharge offer
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "Offer ID"
// @Success 200 {object} models.RechargeOffer
// @Failure 404 {object} services.ErrorResponse
// @Router /offers/{id} [delete]
func (h *CatalogHandler) DeactivateOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid offer id", http.StatusBadRequest, nil)
		return
	}

	offer, err := h.catalog.DeactivateOffer(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}

func (h *CatalogHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}
