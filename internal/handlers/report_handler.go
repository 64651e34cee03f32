package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dazzlersden/backend/internal/config"
	"github.com/dazzlersden/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReportHandler serves the dashboard and the data exports.
type ReportHandler struct {
	dashboard *services.DashboardService
	exports   *services.ExportService
	config    *config.VenueConfig
	log       *zap.Logger
	now       func() time.Time
}

func NewReportHandler(dashboard *services.DashboardService, exports *services.ExportService, cfg *config.VenueConfig, log *zap.Logger) *ReportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportHandler{
		dashboard: dashboard,
		exports:   exports,
		config:    cfg,
		log:       log.Named("http.reports"),
		now:       time.Now,
	}
}

// Dashboard returns session counters, monthly revenue and session lists
// @Summary Dashboard
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.DashboardSummary
// @Router /dashboard [get]
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Export downloads transactions, customers or sessions
// @Summary Export data
// @Tags Reports
// @Produce json
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param kind path string true "transactions, customers or sessions"
// @Param format query string false "json (default), csv or xlsx"
// @Param customer_id query int false "Only this customer"
// @Param start_date query string false "YYYY-MM-DD, transactions only"
// @Param end_date query string false "YYYY-MM-DD, transactions only"
// @Success 200 {file} binary
// @Failure 400 {object} services.ErrorResponse
// @Router /export/{kind} [get]
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	loc := h.config.Location()
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = services.FormatJSON
	}

	var filter services.ExportFilter
	var err error
	if filter.CustomerID, err = optionalIDQuery(r, "customer_id"); err != nil {
		writeServiceError(w, h.log, err)
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

	file, err := h.exports.Export(r.Context(), chi.URLParam(r, "kind"), format, filter)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	if format != services.FormatJSON {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}
