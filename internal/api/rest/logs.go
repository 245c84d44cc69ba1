package rest

import (
	"net/http"
	"strconv"
)

// GetLogs handles GET /logs?limit=N: newest records first.
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondStructuredError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	records, err := h.browser.Recent(ctx, limit)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// GetStats handles GET /stats: counts by region and by attack type.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	stats, err := h.browser.Stats(ctx)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
