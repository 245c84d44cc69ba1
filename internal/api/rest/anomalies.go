package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/io/jsonrec"
)

// GetAnomalies handles GET /anomalies: fit on every stored record and return the
// flagged ones.
func (h *Handler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	report, err := h.detector.DetectBatch(ctx)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Predict handles POST /predict. The body is a record object or an array of them; the
// response mirrors that shape.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondStructuredError(w, r, http.StatusRequestEntityTooLarge, ErrCodeInvalidRequest, "request body too large")
			return
		}
		respondStructuredError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "failed to read body")
		return
	}

	records, many, err := jsonrec.Parse(body)
	if err != nil {
		respondStructuredError(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	predictions, err := h.detector.Predict(ctx, records)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	if !many {
		respondJSON(w, http.StatusOK, predictions[0])
		return
	}
	respondJSON(w, http.StatusOK, predictions)
}
