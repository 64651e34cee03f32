package handlers

import (
	"net/http"
	"strconv"

	"github.com/dazzlersden/backend/internal/config"
	mW "github.com/dazzlersden/backend/internal/middleware"
	"github.com/dazzlersden/backend/internal/models"
	"github.com/dazzlersden/backend/internal/services"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	customers *services.CustomerService
	ledger    *services.LedgerService
	config    *config.VenueConfig
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewCustomerHandler(customers *services.CustomerService, ledger *services.LedgerService, cfg *config.VenueConfig, log *zap.Logger) *CustomerHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CustomerHandler{
		customers: customers,
		ledger:    ledger,
		config:    cfg,
		validator: services.NewValidationHelper(),
		log:       log.Named("http.customers"),
	}
}

// Register creates a customer with an optional opening balance
// @Summary Register customer
// @Description Creates a customer and a permanent QR token. A positive initial_balance is recorded as a RECHARGE (plus any matching offer BONUS) in the same transaction.
// @Tags Customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.RegisterCustomerRequest true "Customer registration"
// @Success 201 {object} services.RegisterCustomerResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /customers [post]
func (h *CustomerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	req.AdminID = mW.AdminIDFromContext(r.Context())
	result, err := h.customers.RegisterCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List returns customers matching a search
// @Summary List customers
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, mobile number or id"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} handlers.Page[models.Customer]
// @Router /customers [get]
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r, h.config)

	customers, total, err := h.customers.ListCustomers(r.Context(), services.CustomerFilter{
		Search: r.URL.Query().Get("search"),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, Page[models.Customer]{
		Data:       customers,
		Pagination: Pagination{Total: total, Skip: skip, Limit: limit},
	})
}

// Get returns one customer
// @Summary Get customer
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 200 {object} models.Customer
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{id} [get]
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid customer id", http.StatusBadRequest, nil)
		return
	}

	customer, err := h.customers.GetCustomer(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

// Update edits a customer's profile
// @Summary Update customer
// @Description Changes name, mobile number and birthdate. The wallet balance is not editable.
// @Tags Customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Param request body services.UpdateCustomerRequest true "Customer profile"
// @Success 200 {object} models.Customer
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /customers/{id} [put]
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid customer id", http.StatusBadRequest, nil)
		return
	}

	var req services.UpdateCustomerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	customer, err := h.customers.UpdateCustomer(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

// GetByToken resolves a scanned QR token
// @Summary Look up customer by QR token
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param token query string true "QR code UUID"
// @Success 200 {object} models.Customer
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/by-token [get]
func (h *CustomerHandler) GetByToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		services.SendErrorResponse(w, "token is required", http.StatusBadRequest, nil)
		return
	}

	customer, err := h.customers.GetCustomerByToken(r.Context(), token)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

// Birthdays lists customers born in a month
// @Summary Birthdays in a month
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param month query int true "Month, 1-12"
// @Param search query string false "Name or mobile number"
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} handlers.Page[models.Customer]
// @Failure 400 {object} services.ErrorResponse
// @Router /customers/birthdays [get]
func (h *CustomerHandler) Birthdays(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		services.SendErrorResponse(w, "month is required", http.StatusBadRequest, nil)
		return
	}
	skip, limit := pagination(r, h.config)

	customers, total, err := h.customers.ListBirthdays(r.Context(), services.BirthdayFilter{
		Month:  month,
		Search: r.URL.Query().Get("search"),
		Skip:   skip,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, Page[models.Customer]{
		Data:       customers,
		Pagination: Pagination{Total: total, Skip: skip, Limit: limit},
	})
}

// Balance recomputes the wallet from the ledger
// @Summary Verify wallet against ledger
// @Tags Customers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 200 {object} services.BalanceReport
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{id}/balance [get]
func (h *CustomerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid customer id", http.StatusBadRequest, nil)
		return
	}

	report, err := h.ledger.VerifyBalance(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
