package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"valutatrade/internal/domain"
	"valutatrade/internal/exchange"
	"valutatrade/internal/portfolio"
	"valutatrade/internal/storage"
	"valutatrade/internal/update"
	"valutatrade/internal/user"

	"github.com/stretchr/testify/require"
)

type scriptUpdater struct{}

func (scriptUpdater) RunUpdate(context.Context, ...string) (*domain.UpdateReport, error) {
	return &domain.UpdateReport{
		RunID:   "test-run",
		Success: true,
		Sources: []domain.SourceOutcome{
			{Source: "coingecko", FetchedCount: 2, Status: domain.OutcomeSuccess},
		},
		TotalRatesFetched: 2,
	}, nil
}

type scriptHistory struct {
	records []domain.HistoryRecord
}

func (s scriptHistory) HistoryFor(domain.Pair, int) ([]domain.HistoryRecord, error) {
	return s.records, nil
}

func (s scriptHistory) Totals() (domain.HistoryMetadata, error) {
	now := time.Now().UTC()
	return domain.HistoryMetadata{LastUpdate: &now, TotalRecords: len(s.records), Version: "1.0"}, nil
}

type scriptScheduler struct {
	running bool
}

func (s *scriptScheduler) Start() error { s.running = true; return nil }
func (s *scriptScheduler) Stop() error  { s.running = false; return nil }
func (s *scriptScheduler) GetStatus() update.Status {
	return update.Status{Running: s.running, Interval: 5 * time.Minute, WorkerAlive: s.running}
}

func newScriptedShell(t *testing.T, script string) (*Shell, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	registry, err := domain.NewRegistry([]domain.Currency{
		{Code: "USD", Name: "US Dollar", Kind: domain.KindFiat, IssuingCountry: "United States"},
		{Code: "EUR", Name: "Euro", Kind: domain.KindFiat, IssuingCountry: "Eurozone"},
		{Code: "BTC", Name: "Bitcoin", Kind: domain.KindCrypto, Algorithm: "SHA-256"},
	})
	require.NoError(t, err)

	cache := storage.NewCache(filepath.Join(dir, "rates.json"))
	now := time.Now().UTC()
	require.NoError(t, cache.Replace(map[string]domain.CacheEntry{
		"BTC_USD": {Rate: 50000, UpdatedAt: now, Source: "coingecko"},
		"EUR_USD": {Rate: 1.08, UpdatedAt: now, Source: "exchangerate"},
	}))

	svc, err := exchange.NewService(cache, scriptUpdater{}, registry, "USD", 5*time.Minute, 64)
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	users := user.NewManager(filepath.Join(dir, "users.json"))
	portfolios := portfolio.NewManager(filepath.Join(dir, "portfolios.json"), "USD", svc)

	var out bytes.Buffer
	shell := New(Deps{
		Registry:   registry,
		Exchange:   svc,
		Users:      users,
		Portfolios: portfolios,
		Updater:    scriptUpdater{},
		Cache:      cache,
		History:    scriptHistory{},
		Scheduler:  &scriptScheduler{},
		Base:       "USD",
	}, strings.NewReader(script), &out)
	return shell, &out
}

func TestShell_RegisterLoginTrade(t *testing.T) {
	script := strings.Join([]string{
		"register --username alice --password s3cret",
		"login --username alice --password s3cret",
		"buy --currency BTC --amount 0.5",
		"show-portfolio",
		"sell --currency BTC --amount 0.2",
		"logout",
		"exit",
	}, "\n") + "\n"

	shell, out := newScriptedShell(t, script)
	require.NoError(t, shell.Run(context.Background()))

	text := out.String()
	require.Contains(t, text, `User "alice" registered`)
	require.Contains(t, text, `Signed in as "alice"`)
	require.Contains(t, text, "Buy complete: 0.5 BTC")
	require.Contains(t, text, "BTC")
	require.Contains(t, text, "TOTAL:")
	require.Contains(t, text, "Sell complete: 0.2 BTC")
	require.Contains(t, text, "Signed out.")
	require.Contains(t, text, "Goodbye!")
}

func TestShell_TradeRequiresLogin(t *testing.T) {
	shell, out := newScriptedShell(t, "buy --currency BTC --amount 1\nexit\n")
	require.NoError(t, shell.Run(context.Background()))
	require.Contains(t, out.String(), "Please login first.")
}

func TestShell_GetRateAndReverse(t *testing.T) {
	shell, out := newScriptedShell(t, "get-rate --from BTC --to USD\nexit\n")
	require.NoError(t, shell.Run(context.Background()))

	text := out.String()
	require.Contains(t, text, "Rate BTC->USD: 50000.000000")
	require.Contains(t, text, "Reverse rate USD->BTC: 0.000020")
}

func TestShell_GetRate_UnknownCurrency(t *testing.T) {
	shell, out := newScriptedShell(t, "get-rate --from ZZZ --to USD\nexit\n")
	require.NoError(t, shell.Run(context.Background()))
	require.Contains(t, out.String(), "Could not get the rate")
}

func TestShell_UpdateRatesAndStatus(t *testing.T) {
	script := strings.Join([]string{
		"update-rates",
		"status",
		"scheduler --start",
		"scheduler --status",
		"scheduler --stop",
		"exit",
	}, "\n") + "\n"

	shell, out := newScriptedShell(t, script)
	require.NoError(t, shell.Run(context.Background()))

	text := out.String()
	require.Contains(t, text, "coingecko: 2 rates fetched")
	require.Contains(t, text, "Update finished: 2 rates in total.")
	require.Contains(t, text, "Rates cache: 2 pairs")
	require.Contains(t, text, "History ledger: 0 records")
	require.Contains(t, text, "Scheduler started.")
	require.Contains(t, text, "running=true")
	require.Contains(t, text, "Scheduler stopped.")
}

func TestShell_UnknownCommand(t *testing.T) {
	shell, out := newScriptedShell(t, "frobnicate\nexit\n")
	require.NoError(t, shell.Run(context.Background()))
	require.Contains(t, out.String(), `Unknown command "frobnicate"`)
}

func TestShell_Currencies(t *testing.T) {
	shell, out := newScriptedShell(t, "currencies\nexit\n")
	require.NoError(t, shell.Run(context.Background()))

	text := out.String()
	require.Contains(t, text, "[CRYPTO] BTC")
	require.Contains(t, text, "[FIAT] USD")
}

func TestShell_EOFEndsLoop(t *testing.T) {
	shell, _ := newScriptedShell(t, "help\n")
	require.NoError(t, shell.Run(context.Background()))
}
