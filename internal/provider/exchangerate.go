package provider

import (
	"context"
	"fmt"
	"strings"

	"valutatrade/internal/domain"

	"github.com/sirupsen/logrus"
)

const exchangeRateSource = "exchangerate"

// ExchangeRate fetches fiat FX rates from the ExchangeRate-API "latest"
// endpoint for one base currency against an allow-list of fiat codes.
type ExchangeRate struct {
	client   *Client
	baseURL  string
	apiKey   string
	base     string
	allow    map[string]struct{}
	registry *domain.Registry
}

func NewExchangeRate(client *Client, baseURL, apiKey, base string, fiatCodes []string, registry *domain.Registry) *ExchangeRate {
	allow := make(map[string]struct{}, len(fiatCodes))
	for _, code := range fiatCodes {
		allow[strings.ToUpper(code)] = struct{}{}
	}
	return &ExchangeRate{
		client:   client,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		base:     strings.ToUpper(base),
		allow:    allow,
		registry: registry,
	}
}

func (e *ExchangeRate) Name() string { return exchangeRateSource }

type exchangeRateResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (e *ExchangeRate) FetchRates(ctx context.Context) (map[domain.Pair]float64, error) {
	logrus.Info("Fetching fiat rates from ExchangeRate-API")

	url := fmt.Sprintf("%s/%s/latest/%s", e.baseURL, e.apiKey, e.base)

	var body exchangeRateResponse
	if err := e.client.GetJSON(ctx, exchangeRateSource, url, nil, nil, &body); err != nil {
		return nil, err
	}

	if body.Result != "success" {
		reason := body.ErrorType
		if reason == "" {
			reason = "unknown"
		}
		return nil, domain.NewProviderError(exchangeRateSource, domain.ErrKindMalformed, fmt.Errorf("api reported failure: %s", reason))
	}

	// Direction follows the base the API actually reports, not the one
	// we asked for. Reported rates are base->currency, the cache stores
	// currency->base, hence the inversion.
	baseCode := strings.ToUpper(body.BaseCode)
	if baseCode == "" {
		baseCode = e.base
	}

	rates := make(map[domain.Pair]float64, len(e.allow))
	skipped := 0
	for code, rate := range body.ConversionRates {
		code = strings.ToUpper(code)
		if code == baseCode {
			continue
		}
		if _, ok := e.allow[code]; !ok {
			continue
		}
		if !e.registry.Supported(code) || rate <= 0 {
			skipped++
			continue
		}
		rates[domain.Pair{From: code, To: baseCode}] = 1 / rate
	}
	if skipped > 0 {
		logrus.Warnf("ExchangeRate-API: dropped %d unsupported or unusable entries", skipped)
	}

	logrus.Infof("ExchangeRate-API: fetched %d fiat rates", len(rates))
	return rates, nil
}
