package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"valutatrade/internal/adapters"
	"valutatrade/internal/domain"
	"valutatrade/internal/exchange"
	"valutatrade/internal/update"
)

// RateReader resolves a single exchange rate for consumers.
type RateReader interface {
	GetRate(ctx context.Context, from, to string) (exchange.RateInfo, error)
}

// SchedulerControl exposes the background scheduler to the API.
type SchedulerControl interface {
	Start() error
	Stop() error
	GetStatus() update.Status
}

type Handler struct {
	rates     RateReader
	history   adapters.HistoryStore
	updater   adapters.Updater
	scheduler SchedulerControl
}

func NewHandler(rates RateReader, history adapters.HistoryStore, updater adapters.Updater, scheduler SchedulerControl) *Handler {
	return &Handler{rates: rates, history: history, updater: updater, scheduler: scheduler}
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, errorMsg, hint string) {
	writeJSON(w, statusCode, errorResponse{Error: errorMsg, Hint: hint})
}

// translate maps internal errors to a plain-language message, a
// remediation hint and an HTTP status. Raw internal errors are never
// shown to the end user.
func translate(err error) (int, string, string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Reason, ""
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		switch perr.Kind {
		case domain.ErrKindAuth:
			return http.StatusBadGateway, "the rate provider rejected our credentials", "verify the configured API keys"
		case domain.ErrKindRateLimited:
			return http.StatusBadGateway, "the rate provider is rate-limiting requests", "wait a minute and try again"
		case domain.ErrKindTimeout, domain.ErrKindConnection:
			return http.StatusBadGateway, "the rate provider is unreachable", "check network connectivity"
		default:
			return http.StatusBadGateway, "the rate provider returned an unusable response", "try again later"
		}
	}
	var serr *domain.PersistenceError
	if errors.As(err, &serr) {
		return http.StatusInternalServerError, "could not store rate data on disk", "check free space and data directory permissions"
	}
	if errors.Is(err, domain.ErrRateNotFound) {
		return http.StatusNotFound, "rate not found", "run an update or check the currency codes"
	}
	return http.StatusInternalServerError, "something went wrong", ""
}
