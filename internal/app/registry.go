package app

import (
	"valutatrade/internal/config"
	"valutatrade/internal/domain"
)

type currencyDetails struct {
	name    string
	country string
	algo    string
}

// catalog holds display details for the commonly configured currencies.
// Codes absent from it still register, with the code as the name.
var catalog = map[string]currencyDetails{
	"USD": {name: "US Dollar", country: "United States"},
	"EUR": {name: "Euro", country: "Eurozone"},
	"GBP": {name: "British Pound", country: "United Kingdom"},
	"JPY": {name: "Japanese Yen", country: "Japan"},
	"CAD": {name: "Canadian Dollar", country: "Canada"},
	"AUD": {name: "Australian Dollar", country: "Australia"},
	"CHF": {name: "Swiss Franc", country: "Switzerland"},
	"CNY": {name: "Chinese Yuan Renminbi", country: "China"},
	"RUB": {name: "Russian Ruble", country: "Russia"},

	"BTC":   {name: "Bitcoin", algo: "SHA-256"},
	"ETH":   {name: "Ethereum", algo: "Ethash"},
	"SOL":   {name: "Solana", algo: "Proof of History"},
	"ADA":   {name: "Cardano", algo: "Ouroboros"},
	"DOT":   {name: "Polkadot", algo: "NPoS"},
	"DOGE":  {name: "Dogecoin", algo: "Scrypt"},
	"LTC":   {name: "Litecoin", algo: "Scrypt"},
	"XRP":   {name: "XRP", algo: "XRP Ledger Consensus"},
	"BNB":   {name: "BNB", algo: "PoSA"},
	"MATIC": {name: "Polygon", algo: "Proof of Stake"},
}

// buildRegistry turns the configured currency lists into the explicit
// tagged-variant registry used for all code validation.
func buildRegistry(cfg config.Currencies) (*domain.Registry, error) {
	currencies := make([]domain.Currency, 0, len(cfg.Fiat)+len(cfg.Crypto)+1)

	currencies = append(currencies, fiatCurrency(cfg.Base))
	for _, code := range cfg.Fiat {
		if code == cfg.Base {
			continue
		}
		currencies = append(currencies, fiatCurrency(code))
	}
	for code := range cfg.Crypto {
		currencies = append(currencies, cryptoCurrency(code))
	}

	return domain.NewRegistry(currencies)
}

func fiatCurrency(code string) domain.Currency {
	details := catalog[code]
	if details.name == "" {
		details.name = code
	}
	return domain.Currency{
		Code:           code,
		Name:           details.name,
		Kind:           domain.KindFiat,
		IssuingCountry: details.country,
	}
}

func cryptoCurrency(code string) domain.Currency {
	details := catalog[code]
	if details.name == "" {
		details.name = code
	}
	return domain.Currency{
		Code:      code,
		Name:      details.name,
		Kind:      domain.KindCrypto,
		Algorithm: details.algo,
	}
}
