package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dazzlersden/backend/internal/config"
	mW "github.com/dazzlersden/backend/internal/middleware"
	"github.com/dazzlersden/backend/internal/models"
	"github.com/dazzlersden/backend/internal/services"
	"go.uber.org/zap"
)

type LedgerHandler struct {
	ledger    *services.LedgerService
	config    *config.VenueConfig
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewLedgerHandler(ledger *services.LedgerService, cfg *config.VenueConfig, log *zap.Logger) *LedgerHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerHandler{
		ledger:    ledger,
		config:    cfg,
		validator: services.NewValidationHelper(),
		log:       log.Named("http.ledger"),
	}
}

// Recharge tops up a wallet
// @Summary Recharge wallet
// @Description Appends a RECHARGE entry. An active offer whose trigger equals the amount adds a BONUS entry in the same transaction.
// @Tags Ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.RechargeRequest true "Recharge request"
// @Success 201 {object} services.RechargeResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /recharge [post]
func (h *LedgerHandler) Recharge(w http.ResponseWriter, r *http.Request) {
	var req services.RechargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	req.AdminID = mW.AdminIDFromContext(r.Context())
	result, err := h.ledger.Recharge(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListTransactions returns ledger entries newest first
// @Summary List ledger entries
// @Tags Ledger
// @Produce json
// @Security BearerAuth
// @Param customer_id query int false "Customer ID"
// @Param type query string false "RECHARGE, BONUS or SESSION_DEDUCT"
// @Param start_date query string false "YYYY-MM-DD"
// @Param end_date query string false "YYYY-MM-DD"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.TransactionListItem
// @Failure 400 {object} services.ErrorResponse
// @Router /transactions [get]
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	loc := h.config.Location()
	filter := services.TransactionFilter{
		Type: models.TransactionType(strings.ToUpper(r.URL.Query().Get("type"))),
	}

	var err error
	if filter.CustomerID, err = optionalIDQuery(r, "customer_id"); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if filter.Type != "" && !filter.Type.Valid() {
		services.SendErrorResponse(w, "Unknown transaction type", http.StatusBadRequest, nil)
		return
	}
	if filter.From, err = dateParam(r, "start_date", loc, false); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if filter.To, err = dateParam(r, "end_date", loc, true); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			services.SendErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest, nil)
			return
		}
		filter.Limit = limit
	}

	items, err := h.ledger.ListTransactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}
