package portfolio

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"valutatrade/internal/domain"
	"valutatrade/internal/exchange"
	"valutatrade/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// RateSource resolves an exchange rate for trade valuation.
type RateSource interface {
	GetRate(ctx context.Context, from, to string) (exchange.RateInfo, error)
}

// Wallet is a single-currency balance.
type Wallet struct {
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
}

// Portfolio is the set of wallets owned by one user.
type Portfolio struct {
	UserID  int               `json:"user_id"`
	Wallets map[string]Wallet `json:"wallets"`
}

// Holding is one valuation line of a portfolio.
type Holding struct {
	Currency string
	Balance  decimal.Decimal
	Value    decimal.Decimal
}

// TradeResult reports a completed buy or sell.
type TradeResult struct {
	Currency   string
	OldBalance decimal.Decimal
	NewBalance decimal.Decimal
	Rate       float64
	ValueBase  decimal.Decimal
}

// Manager owns the persisted portfolio list and values trades through
// the exchange service against the base currency.
type Manager struct {
	path  string
	base  string
	rates RateSource
	mu    sync.Mutex
}

func NewManager(path, base string, rates RateSource) *Manager {
	return &Manager{path: path, base: strings.ToUpper(base), rates: rates}
}

func (m *Manager) loadAll() ([]Portfolio, error) {
	var portfolios []Portfolio
	if _, err := storage.ReadJSON(m.path, &portfolios); err != nil {
		return nil, err
	}
	return portfolios, nil
}

func (m *Manager) saveAll(portfolios []Portfolio) error {
	return storage.WriteJSONAtomic(m.path, portfolios)
}

// Ensure returns the user's portfolio, creating an empty one on first
// access.
func (m *Manager) Ensure(userID int) (Portfolio, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	portfolios, err := m.loadAll()
	if err != nil {
		return Portfolio{}, err
	}
	for _, p := range portfolios {
		if p.UserID == userID {
			if p.Wallets == nil {
				p.Wallets = map[string]Wallet{}
			}
			return p, nil
		}
	}

	p := Portfolio{UserID: userID, Wallets: map[string]Wallet{}}
	portfolios = append(portfolios, p)
	if err := m.saveAll(portfolios); err != nil {
		return Portfolio{}, err
	}
	logrus.Infof("Portfolio created for user %d", userID)
	return p, nil
}

// Buy deposits amount of currency into the user's wallet and values the
// purchase in the base currency.
func (m *Manager) Buy(ctx context.Context, userID int, currency string, amount decimal.Decimal) (TradeResult, error) {
	currency = strings.ToUpper(currency)
	if amount.Sign() <= 0 {
		return TradeResult{}, &domain.ValidationError{Reason: "amount must be positive"}
	}

	info, err := m.rates.GetRate(ctx, currency, m.base)
	if err != nil {
		return TradeResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	portfolios, idx, err := m.findOrCreate(userID)
	if err != nil {
		return TradeResult{}, err
	}
	wallet := portfolios[idx].Wallets[currency]
	if wallet.CurrencyCode == "" {
		wallet.CurrencyCode = currency
	}

	old := wallet.Balance
	wallet.Balance = wallet.Balance.Add(amount)
	portfolios[idx].Wallets[currency] = wallet

	if err := m.saveAll(portfolios); err != nil {
		return TradeResult{}, err
	}

	logrus.Infof("Buy: user %d, %s %s at %v %s/%s", userID, amount, currency, info.Rate, m.base, currency)
	return TradeResult{
		Currency:   currency,
		OldBalance: old,
		NewBalance: wallet.Balance,
		Rate:       info.Rate,
		ValueBase:  amount.Mul(decimal.NewFromFloat(info.Rate)),
	}, nil
}

// Sell withdraws amount of currency from the user's wallet and values
// the proceeds in the base currency.
func (m *Manager) Sell(ctx context.Context, userID int, currency string, amount decimal.Decimal) (TradeResult, error) {
	currency = strings.ToUpper(currency)
	if amount.Sign() <= 0 {
		return TradeResult{}, &domain.ValidationError{Reason: "amount must be positive"}
	}

	info, err := m.rates.GetRate(ctx, currency, m.base)
	if err != nil {
		return TradeResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	portfolios, err := m.loadAll()
	if err != nil {
		return TradeResult{}, err
	}
	idx := indexOf(portfolios, userID)
	if idx < 0 {
		return TradeResult{}, fmt.Errorf("%w: id %d", domain.ErrUserNotFound, userID)
	}
	wallet, ok := portfolios[idx].Wallets[currency]
	if !ok {
		return TradeResult{}, &domain.ValidationError{Reason: fmt.Sprintf("no %s wallet", currency)}
	}
	if wallet.Balance.LessThan(amount) {
		return TradeResult{}, fmt.Errorf("%w: available %s %s, required %s", domain.ErrInsufficientFunds, wallet.Balance, currency, amount)
	}

	old := wallet.Balance
	wallet.Balance = wallet.Balance.Sub(amount)
	portfolios[idx].Wallets[currency] = wallet

	if err := m.saveAll(portfolios); err != nil {
		return TradeResult{}, err
	}

	logrus.Infof("Sell: user %d, %s %s at %v %s/%s", userID, amount, currency, info.Rate, m.base, currency)
	return TradeResult{
		Currency:   currency,
		OldBalance: old,
		NewBalance: wallet.Balance,
		Rate:       info.Rate,
		ValueBase:  amount.Mul(decimal.NewFromFloat(info.Rate)),
	}, nil
}

// Valuation returns per-wallet holdings valued in the given currency
// plus the portfolio total.
func (m *Manager) Valuation(ctx context.Context, userID int, valueIn string) ([]Holding, decimal.Decimal, error) {
	valueIn = strings.ToUpper(valueIn)

	p, err := m.Ensure(userID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	holdings := make([]Holding, 0, len(p.Wallets))
	total := decimal.Zero
	for currency, wallet := range p.Wallets {
		value := wallet.Balance
		if currency != valueIn {
			info, err := m.rates.GetRate(ctx, currency, valueIn)
			if err != nil {
				return nil, decimal.Zero, err
			}
			value = wallet.Balance.Mul(decimal.NewFromFloat(info.Rate))
		}
		holdings = append(holdings, Holding{Currency: currency, Balance: wallet.Balance, Value: value})
		total = total.Add(value)
	}
	return holdings, total, nil
}

func (m *Manager) findOrCreate(userID int) ([]Portfolio, int, error) {
	portfolios, err := m.loadAll()
	if err != nil {
		return nil, -1, err
	}
	if idx := indexOf(portfolios, userID); idx >= 0 {
		if portfolios[idx].Wallets == nil {
			portfolios[idx].Wallets = map[string]Wallet{}
		}
		return portfolios, idx, nil
	}
	portfolios = append(portfolios, Portfolio{UserID: userID, Wallets: map[string]Wallet{}})
	return portfolios, len(portfolios) - 1, nil
}

func indexOf(portfolios []Portfolio, userID int) int {
	for i, p := range portfolios {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}
