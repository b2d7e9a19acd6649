package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"
)

// CurrencyKind distinguishes fiat money from crypto assets.
type CurrencyKind string

const (
	KindFiat   CurrencyKind = "fiat"
	KindCrypto CurrencyKind = "crypto"
)

// Currency is a tagged variant: Kind selects which of the
// kind-specific fields are meaningful.
type Currency struct {
	Code string
	Name string
	Kind CurrencyKind

	// Fiat only.
	IssuingCountry string

	// Crypto only.
	Algorithm string
	MarketCap float64
}

func (c Currency) DisplayInfo() string {
	switch c.Kind {
	case KindCrypto:
		return fmt.Sprintf("[CRYPTO] %s — %s (Algo: %s)", c.Code, c.Name, c.Algorithm)
	default:
		return fmt.Sprintf("[FIAT] %s — %s (Issuing: %s)", c.Code, c.Name, c.IssuingCountry)
	}
}

// ValidateCode checks the shape of a currency code: 2 to 5 alphanumeric
// characters.
func ValidateCode(code string) error {
	if code == "" {
		return &ValidationError{Reason: "currency code is empty"}
	}
	if len(code) < 2 || len(code) > 5 {
		return &ValidationError{Reason: fmt.Sprintf("currency code %q must be 2-5 characters", code)}
	}
	for _, r := range code {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return &ValidationError{Reason: fmt.Sprintf("currency code %q must be alphanumeric", code)}
		}
	}
	return nil
}

// Registry holds the configured set of known currencies. It is built
// once at startup and read-only afterwards.
type Registry struct {
	byCode map[string]Currency
}

func NewRegistry(currencies []Currency) (*Registry, error) {
	byCode := make(map[string]Currency, len(currencies))
	for _, c := range currencies {
		code := strings.ToUpper(c.Code)
		if err := ValidateCode(code); err != nil {
			return nil, err
		}
		c.Code = code
		byCode[code] = c
	}
	return &Registry{byCode: byCode}, nil
}

func (r *Registry) Lookup(code string) (Currency, bool) {
	c, ok := r.byCode[strings.ToUpper(code)]
	return c, ok
}

func (r *Registry) Supported(code string) bool {
	_, ok := r.byCode[strings.ToUpper(code)]
	return ok
}

// Codes returns all registered codes, sorted.
func (r *Registry) Codes() []string {
	codes := slices.Collect(maps.Keys(r.byCode))
	slices.Sort(codes)
	return codes
}
