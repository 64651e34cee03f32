package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dazzlersden/backend/internal/services"
	"go.uber.org/zap"
)

type QRHandler struct {
	service *services.QRService
	log     *zap.Logger
}

func NewQRHandler(service *services.QRService, log *zap.Logger) *QRHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &QRHandler{
		service: service,
		log:     log.Named("http.qr"),
	}
}

// CustomerCard renders the customer's QR token
// @Summary Customer QR card
// @Description PNG of the customer's permanent QR token. Pass format=base64 for a data URI in JSON.
// @Tags QR
// @Produce png
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Param format query string false "png (default) or base64"
// @Success 200 {file} binary
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{id}/qr [get]
func (h *QRHandler) CustomerCard(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		services.SendErrorResponse(w, "Invalid customer id", http.StatusBadRequest, nil)
		return
	}

	if r.URL.Query().Get("format") == "base64" {
		uri, err := h.service.CustomerCardDataURI(r.Context(), id)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"qrImage": uri,
		})
		return
	}

	png, err := h.service.CustomerCard(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"customer_%d.png\"", id))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
