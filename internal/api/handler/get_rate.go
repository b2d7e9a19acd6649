package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type GetRateResponse struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	info, err := h.rates.GetRate(r.Context(), from, to)
	if err != nil {
		status, msg, hint := translate(err)
		if status >= http.StatusInternalServerError {
			logrus.WithError(err).WithFields(logrus.Fields{"handler": "GetRate", "from": from, "to": to}).Error(msg)
		}
		writeError(w, status, msg, hint)
		return
	}

	writeJSON(w, http.StatusOK, GetRateResponse{
		From:      info.Pair.From,
		To:        info.Pair.To,
		Rate:      info.Rate,
		Source:    info.Source,
		UpdatedAt: info.UpdatedAt,
	})
}
