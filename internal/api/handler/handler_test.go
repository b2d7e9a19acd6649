package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"valutatrade/internal/domain"
	"valutatrade/internal/exchange"
	"valutatrade/internal/update"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type stubRates struct {
	info exchange.RateInfo
	err  error
}

func (s stubRates) GetRate(context.Context, string, string) (exchange.RateInfo, error) {
	return s.info, s.err
}

type stubHistory struct {
	records []domain.HistoryRecord
	err     error
}

func (s stubHistory) Append(domain.HistoryRecord) error { return nil }

func (s stubHistory) HistoryFor(domain.Pair, int) ([]domain.HistoryRecord, error) {
	return s.records, s.err
}

type stubUpdater struct {
	report *domain.UpdateReport
	err    error
}

func (s stubUpdater) RunUpdate(context.Context, ...string) (*domain.UpdateReport, error) {
	return s.report, s.err
}

type stubScheduler struct {
	status   update.Status
	startErr error
	stopErr  error
}

func (s stubScheduler) Start() error             { return s.startErr }
func (s stubScheduler) Stop() error              { return s.stopErr }
func (s stubScheduler) GetStatus() update.Status { return s.status }

func newTestServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/v1/rates/{from}/{to}", h.GetRate)
	r.Get("/api/v1/rates/{from}/{to}/history", h.GetHistory)
	r.Post("/api/v1/updates", h.RunUpdate)
	r.Get("/api/v1/scheduler", h.SchedulerStatus)
	r.Post("/api/v1/scheduler/start", h.SchedulerStart)
	r.Post("/api/v1/scheduler/stop", h.SchedulerStop)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGetRate_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	h := NewHandler(stubRates{info: exchange.RateInfo{
		Pair:      domain.Pair{From: "EUR", To: "USD"},
		Rate:      1.0786,
		UpdatedAt: now,
		Source:    "exchangerate",
	}}, stubHistory{}, stubUpdater{}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/v1/rates/EUR/USD")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[GetRateResponse](t, resp)
	require.Equal(t, "EUR", body.From)
	require.Equal(t, "USD", body.To)
	require.InDelta(t, 1.0786, body.Rate, 1e-9)
	require.Equal(t, "exchangerate", body.Source)
}

func TestGetRate_ValidationErrorIs400(t *testing.T) {
	h := NewHandler(stubRates{err: &domain.ValidationError{Reason: `unknown currency "XYZ"`}}, stubHistory{}, stubUpdater{}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/v1/rates/XYZ/USD")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	require.Contains(t, body["error"], "unknown currency")
}

func TestGetRate_ProviderAuthErrorIs502WithHint(t *testing.T) {
	h := NewHandler(stubRates{err: domain.NewProviderError("exchangerate", domain.ErrKindAuth, errors.New("status 401"))},
		stubHistory{}, stubUpdater{}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/v1/rates/EUR/USD")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decodeBody[map[string]string](t, resp)
	require.Contains(t, body["hint"], "API keys")
	require.NotContains(t, body["error"], "401", "raw internals must not leak")
}

func TestGetRate_NotFoundIs404(t *testing.T) {
	h := NewHandler(stubRates{err: domain.ErrRateNotFound}, stubHistory{}, stubUpdater{}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/v1/rates/BTC/EUR")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetHistory_Success(t *testing.T) {
	rec := domain.NewHistoryRecord(domain.RateSample{
		Pair:      domain.Pair{From: "BTC", To: "USD"},
		Rate:      59337.21,
		Source:    "coingecko",
		Timestamp: time.Now().UTC(),
	}, domain.RecordMeta{})
	h := NewHandler(stubRates{}, stubHistory{records: []domain.HistoryRecord{rec}}, stubUpdater{}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/v1/rates/BTC/USD/history?limit=5")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[GetHistoryResponse](t, resp)
	require.Equal(t, "BTC_USD", body.Pair)
	require.Len(t, body.Records, 1)
}

func TestGetHistory_EmptyIsEmptyArray(t *testing.T) {
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/v1/rates/BTC/USD/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[GetHistoryResponse](t, resp)
	require.NotNil(t, body.Records)
	require.Empty(t, body.Records)
}

func TestGetHistory_BadLimitIs400(t *testing.T) {
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{}, stubScheduler{})
	srv := newTestServer(t, h)

	for _, limit := range []string{"abc", "-1"} {
		resp, err := http.Get(srv.URL + "/api/v1/rates/BTC/USD/history?limit=" + limit)
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	}
}

func TestRunUpdate_Success(t *testing.T) {
	report := &domain.UpdateReport{RunID: "run-1", Success: true, TotalRatesFetched: 12}
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{report: report}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Post(srv.URL+"/api/v1/updates", "application/json", strings.NewReader(`{"sources":["coingecko"]}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[domain.UpdateReport](t, resp)
	require.Equal(t, "run-1", body.RunID)
	require.Equal(t, 12, body.TotalRatesFetched)
}

func TestRunUpdate_EmptyBodyAllowed(t *testing.T) {
	report := &domain.UpdateReport{RunID: "run-2", Success: true}
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{report: report}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Post(srv.URL+"/api/v1/updates", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunUpdate_PartialFailureIs207(t *testing.T) {
	report := &domain.UpdateReport{RunID: "run-3", Success: false, Errors: []string{"fetch from exchangerate: timeout"}}
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{report: report}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Post(srv.URL+"/api/v1/updates", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)
}

func TestRunUpdate_PersistenceFailureIs500(t *testing.T) {
	report := &domain.UpdateReport{RunID: "run-4", Success: false}
	perr := &domain.PersistenceError{Path: "rates.json", Op: "rename", Err: errors.New("disk full")}
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{report: report, err: perr}, stubScheduler{})
	srv := newTestServer(t, h)

	resp, err := http.Post(srv.URL+"/api/v1/updates", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody[domain.UpdateReport](t, resp)
	require.Equal(t, "run-4", body.RunID)
}

func TestScheduler_Endpoints(t *testing.T) {
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{}, stubScheduler{
		status: update.Status{Running: true, Interval: 5 * time.Minute, WorkerAlive: true},
	})
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/v1/scheduler")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[SchedulerStatusResponse](t, resp)
	require.True(t, body.Running)
	require.Equal(t, "5m0s", body.Interval)

	resp, err = http.Post(srv.URL+"/api/v1/scheduler/start", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Post(srv.URL+"/api/v1/scheduler/stop", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestScheduler_StartFailureIs500(t *testing.T) {
	h := NewHandler(stubRates{}, stubHistory{}, stubUpdater{}, stubScheduler{startErr: errors.New("boom")})
	srv := newTestServer(t, h)

	resp, err := http.Post(srv.URL+"/api/v1/scheduler/start", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
}
