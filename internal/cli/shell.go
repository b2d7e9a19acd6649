package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"valutatrade/internal/adapters"
	"valutatrade/internal/domain"
	"valutatrade/internal/exchange"
	"valutatrade/internal/portfolio"
	"valutatrade/internal/update"
	"valutatrade/internal/user"

	"github.com/shopspring/decimal"
)

// Deps are the collaborators the shell talks to. It only ever goes
// through the same operations the HTTP API exposes, plus accounts and
// portfolios.
type Deps struct {
	Registry   *domain.Registry
	Exchange   *exchange.Service
	Users      *user.Manager
	Portfolios *portfolio.Manager
	Updater    adapters.Updater
	Cache      CacheReader
	History    HistoryReader
	Scheduler  SchedulerControl
	Base       string
}

type CacheReader interface {
	Load() (*domain.CacheSnapshot, error)
}

type HistoryReader interface {
	HistoryFor(pair domain.Pair, limit int) ([]domain.HistoryRecord, error)
	Totals() (domain.HistoryMetadata, error)
}

type SchedulerControl interface {
	Start() error
	Stop() error
	GetStatus() update.Status
}

// Shell is the interactive command loop.
type Shell struct {
	deps    Deps
	in      io.Reader
	out     io.Writer
	current *user.User
}

func New(deps Deps, in io.Reader, out io.Writer) *Shell {
	return &Shell{deps: deps, in: in, out: out}
}

// Run reads commands until exit, EOF or ctx cancellation.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome to ValutaTrade Hub. Type 'help' for the command list.")
	scanner := bufio.NewScanner(s.in)

	for {
		fmt.Fprint(s.out, s.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		tokens, err := splitQuoted(line)
		if err != nil {
			fmt.Fprintf(s.out, "Could not parse the command: %v\n", err)
			continue
		}
		cmd := strings.ToLower(tokens[0])
		args := parseArgs(tokens[1:])

		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(s.out, "Goodbye!")
			return nil
		}
		s.dispatch(ctx, cmd, args)
	}
}

func (s *Shell) prompt() string {
	if s.current != nil {
		return fmt.Sprintf("wallet[%s]> ", s.current.Username)
	}
	return "wallet> "
}

func (s *Shell) dispatch(ctx context.Context, cmd string, args map[string]string) {
	switch cmd {
	case "help":
		s.printHelp()
	case "register":
		s.register(args)
	case "login":
		s.login(args)
	case "logout":
		s.logout()
	case "info":
		s.info()
	case "buy":
		s.trade(ctx, args, true)
	case "sell":
		s.trade(ctx, args, false)
	case "show-portfolio", "sp":
		s.showPortfolio(ctx, args)
	case "get-rate", "gr":
		s.getRate(ctx, args)
	case "history":
		s.history(args)
	case "update-rates":
		s.updateRates(ctx, args)
	case "status":
		s.status()
	case "scheduler":
		s.schedulerCmd(args)
	case "currencies":
		s.currencies()
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help' for the command list.\n", cmd)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Commands:
  register --username <name> --password <pass>   create an account
  login --username <name> --password <pass>      sign in
  logout                                         sign out
  info                                           show account details
  buy --currency <code> --amount <number>        buy currency
  sell --currency <code> --amount <number>       sell currency
  show-portfolio [--base <code>]                 show wallets and totals (alias: sp)
  get-rate --from <code> --to <code>             show an exchange rate (alias: gr)
  history --from <code> --to <code> [--limit N]  show rate history
  update-rates [--source <name>]                 fetch fresh rates now
  status                                         cache and ledger summary
  scheduler --start | --stop | --status          control background updates
  currencies                                     list supported currencies
  exit                                           leave the shell
`)
}

func (s *Shell) requireAuth() bool {
	if s.current == nil {
		fmt.Fprintln(s.out, "Please login first.")
		return false
	}
	return true
}

func (s *Shell) register(args map[string]string) {
	username, password := args["username"], args["password"]
	if username == "" || password == "" {
		fmt.Fprintln(s.out, "Usage: register --username <name> --password <pass>")
		return
	}
	u, err := s.deps.Users.Register(username, password)
	if err != nil {
		s.printError("Registration failed", err)
		return
	}
	if _, err := s.deps.Portfolios.Ensure(u.ID); err != nil {
		s.printError("Could not create the portfolio", err)
		return
	}
	fmt.Fprintf(s.out, "User %q registered (id=%d). Sign in with: login --username %s --password ****\n", username, u.ID, username)
}

func (s *Shell) login(args map[string]string) {
	username, password := args["username"], args["password"]
	if username == "" || password == "" {
		fmt.Fprintln(s.out, "Usage: login --username <name> --password <pass>")
		return
	}
	u, err := s.deps.Users.Authenticate(username, password)
	if err != nil {
		s.printError("Login failed", err)
		return
	}
	s.current = &u
	fmt.Fprintf(s.out, "Signed in as %q\n", username)
}

func (s *Shell) logout() {
	s.current = nil
	fmt.Fprintln(s.out, "Signed out.")
}

func (s *Shell) info() {
	if !s.requireAuth() {
		return
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	info := s.current.Info()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, info[k])
	}
	w.Flush()
}

func (s *Shell) trade(ctx context.Context, args map[string]string, buy bool) {
	if !s.requireAuth() {
		return
	}
	verb := "sell"
	if buy {
		verb = "buy"
	}
	currency := args["currency"]
	rawAmount := args["amount"]
	if currency == "" || rawAmount == "" {
		fmt.Fprintf(s.out, "Usage: %s --currency <code> --amount <number>\n", verb)
		return
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		fmt.Fprintln(s.out, "'amount' must be a number")
		return
	}

	var result portfolio.TradeResult
	if buy {
		result, err = s.deps.Portfolios.Buy(ctx, s.current.ID, currency, amount)
	} else {
		result, err = s.deps.Portfolios.Sell(ctx, s.current.ID, currency, amount)
	}
	title := strings.ToUpper(verb[:1]) + verb[1:]
	if err != nil {
		s.printError(title+" failed", err)
		return
	}

	fmt.Fprintf(s.out, "%s complete: %s %s at %.6f %s/%s\n", title, amount, result.Currency, result.Rate, s.deps.Base, result.Currency)
	fmt.Fprintf(s.out, "- %s: %s -> %s\n", result.Currency, result.OldBalance, result.NewBalance)
	fmt.Fprintf(s.out, "Estimated value: %s %s\n", result.ValueBase.StringFixed(2), s.deps.Base)
}

func (s *Shell) showPortfolio(ctx context.Context, args map[string]string) {
	if !s.requireAuth() {
		return
	}
	base := strings.ToUpper(args["base"])
	if base == "" {
		base = s.deps.Base
	}
	if !s.deps.Registry.Supported(base) {
		fmt.Fprintf(s.out, "Unknown base currency %q\n", base)
		return
	}

	holdings, total, err := s.deps.Portfolios.Valuation(ctx, s.current.ID, base)
	if err != nil {
		s.printError("Could not value the portfolio", err)
		return
	}
	if len(holdings) == 0 {
		fmt.Fprintln(s.out, "Your portfolio is empty. Use 'buy' to purchase currency.")
		return
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Currency < holdings[j].Currency })

	fmt.Fprintf(s.out, "Portfolio of %q (base: %s):\n", s.current.Username, base)
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "CURRENCY\tBALANCE\tIN %s\n", base)
	for _, h := range holdings {
		fmt.Fprintf(w, "%s\t%s\t%s\n", h.Currency, h.Balance, h.Value.StringFixed(2))
	}
	w.Flush()
	fmt.Fprintf(s.out, "TOTAL: %s %s\n", total.StringFixed(2), base)
}

func (s *Shell) getRate(ctx context.Context, args map[string]string) {
	from, to := args["from"], args["to"]
	if from == "" || to == "" {
		fmt.Fprintln(s.out, "Usage: get-rate --from <currency> --to <currency>")
		return
	}
	info, err := s.deps.Exchange.GetRate(ctx, from, to)
	if err != nil {
		s.printError("Could not get the rate", err)
		return
	}
	fmt.Fprintf(s.out, "Rate %s->%s: %.6f (updated: %s, source: %s)\n",
		info.Pair.From, info.Pair.To, info.Rate, info.UpdatedAt.Format("2006-01-02 15:04:05"), info.Source)
	if info.Rate > 0 {
		fmt.Fprintf(s.out, "Reverse rate %s->%s: %.6f\n", info.Pair.To, info.Pair.From, 1/info.Rate)
	}
}

func (s *Shell) history(args map[string]string) {
	from, to := strings.ToUpper(args["from"]), strings.ToUpper(args["to"])
	if from == "" || to == "" {
		fmt.Fprintln(s.out, "Usage: history --from <currency> --to <currency> [--limit N]")
		return
	}
	limit := 10
	if raw := args["limit"]; raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &limit); err != nil || limit < 0 {
			fmt.Fprintln(s.out, "'limit' must be a non-negative integer")
			return
		}
	}

	records, err := s.deps.History.HistoryFor(domain.Pair{From: from, To: to}, limit)
	if err != nil {
		s.printError("Could not read the history", err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintf(s.out, "No history for %s_%s yet.\n", from, to)
		return
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "TIMESTAMP\tRATE\tSOURCE\n")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%.6f\t%s\n", rec.Timestamp.Format(time.RFC3339), rec.Rate, rec.Source)
	}
	w.Flush()
}

func (s *Shell) updateRates(ctx context.Context, args map[string]string) {
	var sources []string
	if src := args["source"]; src != "" && src != "true" {
		sources = append(sources, src)
	}
	report, err := s.deps.Updater.RunUpdate(ctx, sources...)
	if err != nil {
		s.printError("Update could not store its results", err)
	}
	for _, outcome := range report.Sources {
		if outcome.Status == domain.OutcomeSuccess {
			fmt.Fprintf(s.out, "%s: %d rates fetched\n", outcome.Source, outcome.FetchedCount)
		} else {
			fmt.Fprintf(s.out, "%s: failed (%s)\n", outcome.Source, outcome.Error)
		}
	}
	if report.Success {
		fmt.Fprintf(s.out, "Update finished: %d rates in total.\n", report.TotalRatesFetched)
	} else {
		fmt.Fprintf(s.out, "Update finished with errors (%d rates fetched). Check connectivity, API keys and rate limits.\n", report.TotalRatesFetched)
	}
}

func (s *Shell) status() {
	snap, err := s.deps.Cache.Load()
	if err != nil {
		s.printError("Could not read the rates cache", err)
		return
	}
	fmt.Fprintf(s.out, "Rates cache: %d pairs", len(snap.Pairs))
	if snap.LastRefresh != nil {
		fmt.Fprintf(s.out, ", last refresh %s", snap.LastRefresh.Format(time.RFC3339))
	}
	fmt.Fprintln(s.out)

	totals, err := s.deps.History.Totals()
	if err != nil {
		s.printError("Could not read the ledger", err)
		return
	}
	fmt.Fprintf(s.out, "History ledger: %d records", totals.TotalRecords)
	if totals.LastUpdate != nil {
		fmt.Fprintf(s.out, ", last update %s", totals.LastUpdate.Format(time.RFC3339))
	}
	fmt.Fprintln(s.out)

	st := s.deps.Scheduler.GetStatus()
	state := "stopped"
	if st.Running {
		state = "running"
	}
	fmt.Fprintf(s.out, "Scheduler: %s (interval %s)\n", state, st.Interval)
}

func (s *Shell) schedulerCmd(args map[string]string) {
	switch {
	case args["start"] != "":
		if err := s.deps.Scheduler.Start(); err != nil {
			s.printError("Could not start the scheduler", err)
			return
		}
		fmt.Fprintln(s.out, "Scheduler started.")
	case args["stop"] != "":
		if err := s.deps.Scheduler.Stop(); err != nil {
			s.printError("Could not stop the scheduler", err)
			return
		}
		fmt.Fprintln(s.out, "Scheduler stopped.")
	default:
		st := s.deps.Scheduler.GetStatus()
		fmt.Fprintf(s.out, "running=%v interval=%s worker_alive=%v\n", st.Running, st.Interval, st.WorkerAlive)
	}
}

func (s *Shell) currencies() {
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, code := range s.deps.Registry.Codes() {
		if c, ok := s.deps.Registry.Lookup(code); ok {
			fmt.Fprintln(w, c.DisplayInfo())
		}
	}
	w.Flush()
}

// printError renders a plain-language message with a remediation hint;
// raw internal errors are kept out of the user's face.
func (s *Shell) printError(prefix string, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintf(s.out, "%s: %s\n", prefix, verr.Reason)
		return
	}
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		switch perr.Kind {
		case domain.ErrKindAuth:
			fmt.Fprintf(s.out, "%s: the rate provider rejected our credentials. Verify the configured API keys.\n", prefix)
		case domain.ErrKindRateLimited:
			fmt.Fprintf(s.out, "%s: the rate provider is rate-limiting requests. Wait a minute and try again.\n", prefix)
		case domain.ErrKindTimeout, domain.ErrKindConnection:
			fmt.Fprintf(s.out, "%s: the rate provider is unreachable. Check network connectivity.\n", prefix)
		default:
			fmt.Fprintf(s.out, "%s: the rate provider returned an unusable response. Try again later.\n", prefix)
		}
		return
	}
	var serr *domain.PersistenceError
	if errors.As(err, &serr) {
		fmt.Fprintf(s.out, "%s: could not write data to disk. Check free space and permissions of the data directory.\n", prefix)
		return
	}
	switch {
	case errors.Is(err, domain.ErrRateNotFound):
		fmt.Fprintf(s.out, "%s: the rate is unavailable right now. Run 'update-rates' and retry.\n", prefix)
	case errors.Is(err, domain.ErrInsufficientFunds):
		fmt.Fprintf(s.out, "%s: insufficient funds.\n", prefix)
	case errors.Is(err, domain.ErrUsernameTaken):
		fmt.Fprintf(s.out, "%s: that username is already taken.\n", prefix)
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrBadCredentials):
		fmt.Fprintf(s.out, "%s: invalid username or password.\n", prefix)
	default:
		fmt.Fprintf(s.out, "%s: unexpected error.\n", prefix)
	}
}
