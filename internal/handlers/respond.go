package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dazzlersden/backend/internal/config"
	"github.com/dazzlersden/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Page is a paginated list response.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Total int `json:"total"`
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads exactly one JSON object into dst. It writes the error
// response itself and reports whether the caller may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var notFound *services.NotFoundError
	var conflict *services.ConflictError
	var funds *services.InsufficientFundsError
	var invalid *services.ValidationError

	switch {
	case errors.As(err, &notFound):
		services.SendErrorResponse(w, notFound.Error(), http.StatusNotFound, nil)
	case errors.As(err, &conflict):
		services.SendErrorResponse(w, conflict.Error(), http.StatusConflict, nil)
	case errors.As(err, &funds):
		services.SendErrorDetails(w, funds.Error(), http.StatusPaymentRequired, map[string]string{
			"required":  funds.Required.StringFixed(2),
			"available": funds.Available.StringFixed(2),
		})
	case errors.As(err, &invalid):
		services.SendErrorDetails(w, invalid.Error(), http.StatusBadRequest, map[string]string{
			invalid.Field: invalid.Message,
		})
	default:
		log.Error("request failed", zap.Error(err))
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pagination reads skip and limit, clamping limit to the configured maximum.
func pagination(r *http.Request, cfg *config.VenueConfig) (skip, limit int) {
	q := r.URL.Query()
	skip, _ = strconv.Atoi(q.Get("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = cfg.DefaultPageSize
	}
	if cfg.MaxPageSize > 0 && limit > cfg.MaxPageSize {
		limit = cfg.MaxPageSize
	}
	return skip, limit
}

// dateParam parses YYYY-MM-DD or RFC 3339. With endOfDay a plain date
// covers the whole day.
func dateParam(r *http.Request, name string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, &services.ValidationError{Field: name, Message: "expected YYYY-MM-DD or RFC 3339"}
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func optionalIDQuery(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, &services.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return &id, nil
}
