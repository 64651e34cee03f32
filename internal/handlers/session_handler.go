package handlers

import (
	"net/http"
	"time"

	"github.com/dazzlersden/backend/internal/config"
	mW "github.com/dazzlersden/backend/internal/middleware"
	"github.com/dazzlersden/backend/internal/models"
	"github.com/dazzlersden/backend/internal/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StartSessionRequest prices a session either from plan_id or from
// actual_cost with an optional discount.
type StartSessionRequest struct {
	QRCodeUUID         string           `json:"qr_code_uuid" validate:"required,uuid" example:"5f0c6c1e-7d0e-4c3a-9a59-0a8a3f6f2b11"`
	PlanID             *int64           `json:"plan_id,omitempty" validate:"omitempty,gt=0" example:"1"`
	Children           int              `json:"children" validate:"gte=0" example:"2"`
	Adults             int              `json:"adults" validate:"gte=0" example:"1"`
	DurationMinutes    int              `json:"duration_minutes,omitempty" validate:"gte=0" example:"60"`
	DurationHours      *decimal.Decimal `json:"duration_hr,omitempty" swaggertype:"number" example:"1.5"`
	ActualCost         *decimal.Decimal `json:"actual_cost,omitempty" swaggertype:"number" example:"500"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty" swaggertype:"number" example:"10"`
	DiscountReason     string           `json:"discount_reason,omitempty" validate:"max=255" example:"Birthday"`
}

// pricing converts the request into the pricing variant.
func (req StartSessionRequest) pricing() (services.PricingInput, error) {
	if req.PlanID != nil {
		if req.ActualCost != nil {
			return nil, &services.ValidationError{Field: "pricing", Message: "send either plan_id or actual_cost, not both"}
		}
		return services.FixedPlan{PlanID: *req.PlanID}, nil
	}
	if req.ActualCost == nil {
		return nil, &services.ValidationError{Field: "pricing", Message: "plan_id or actual_cost is required"}
	}

	minutes := req.DurationMinutes
	if minutes == 0 && req.DurationHours != nil {
		minutes = int(req.DurationHours.Mul(decimal.NewFromInt(60)).Round(0).IntPart())
	}

	adHoc := services.AdHocPricing{
		ActualCost:      *req.ActualCost,
		DiscountReason:  req.DiscountReason,
		DurationMinutes: minutes,
	}
	if req.DiscountPercentage != nil {
		adHoc.DiscountPercentage = *req.DiscountPercentage
	}
	return adHoc, nil
}

type SessionHandler struct {
	sessions  *services.SessionService
	config    *config.VenueConfig
	validator *services.ValidationHelper
	log       *zap.Logger
	now       func() time.Time
}

func NewSessionHandler(sessions *services.SessionService, cfg *config.VenueConfig, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{
		sessions:  sessions,
		config:    cfg,
		validator: services.NewValidationHelper(),
		log:       log.Named("http.sessions"),
		now:       time.Now,
	}
}

// Start opens a paid session for a scanned customer
// @Summary Start session
// @Description Resolves the customer by QR token, refuses a second active session, deducts the cost and opens the session in one transaction.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body handlers.StartSessionRequest true "Session start"
// @Success 201 {object} models.Session
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /sessions/start [post]
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	pricing, err := req.pricing()
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	session, err := h.sessions.StartSession(r.Context(), services.StartSessionRequest{
		QRToken:  req.QRCodeUUID,
		Pricing:  pricing,
		Children: req.Children,
		Adults:   req.Adults,
		AdminID:  mW.AdminIDFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// Exit completes an active session
// @Summary End session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Session ID"
// @Success 200 {object} models.Session
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /sessions/{id}/exit [post]
func (h *SessionHandler) Exit(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid session id", http.StatusBadRequest, nil)
		return
	}

	session, err := h.sessions.EndSession(r.Context(), id, mW.AdminIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// List returns session history
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} handlers.Page[models.SessionListItem]
// @Router /sessions [get]
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r, h.config)

	items, total, err := h.sessions.ListSessions(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, Page[models.SessionListItem]{
		Data:       items,
		Pagination: Pagination{Total: total, Skip: skip, Limit: limit},
	})
}

// Active returns all ACTIVE sessions
// @Summary Active sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SessionListItem
// @Router /sessions/active [get]
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.ListActiveSessions(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// Overdue returns ACTIVE sessions past their expected end
// @Summary Overdue sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SessionListItem
// @Router /sessions/overdue [get]
func (h *SessionHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.ListOverdueSessions(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}
