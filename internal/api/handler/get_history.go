package handler

import (
	"net/http"
	"strconv"
	"strings"

	"valutatrade/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type GetHistoryResponse struct {
	Pair    string                 `json:"pair"`
	Records []domain.HistoryRecord `json:"records"`
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	pair := domain.Pair{
		From: strings.ToUpper(chi.URLParam(r, "from")),
		To:   strings.ToUpper(chi.URLParam(r, "to")),
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", "")
			return
		}
		limit = parsed
	}

	records, err := h.history.HistoryFor(pair, limit)
	if err != nil {
		status, msg, hint := translate(err)
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "GetHistory", "pair": pair}).Error(msg)
		writeError(w, status, msg, hint)
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}

	writeJSON(w, http.StatusOK, GetHistoryResponse{Pair: pair.String(), Records: records})
}
