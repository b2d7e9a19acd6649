package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

type RunUpdateRequest struct {
	Sources []string `json:"sources"`
}

// RunUpdate triggers one synchronous update cycle. An empty body (or an
// empty source list) updates all configured sources.
func (h *Handler) RunUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1024)

	var req RunUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	report, err := h.updater.RunUpdate(r.Context(), req.Sources...)
	if err != nil {
		// The report still carries the per-source outcomes; the error
		// means the run could not durably record its results.
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "RunUpdate", "run_id": report.RunID}).Error("update run failed to persist")
		writeJSON(w, http.StatusInternalServerError, report)
		return
	}

	status := http.StatusOK
	if !report.Success {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, report)
}
