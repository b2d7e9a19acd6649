package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"valutatrade/internal/domain"

	"github.com/sirupsen/logrus"
)

const coinGeckoSource = "coingecko"

// CoinGecko fetches crypto asset prices from the CoinGecko simple-price
// endpoint for a fixed configured set of assets against one base
// currency.
type CoinGecko struct {
	client   *Client
	baseURL  string
	apiKey   string
	base     string
	ids      map[string]string // ticker -> CoinGecko asset id
	registry *domain.Registry
}

func NewCoinGecko(client *Client, baseURL, apiKey, base string, ids map[string]string, registry *domain.Registry) *CoinGecko {
	return &CoinGecko{
		client:   client,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		base:     strings.ToUpper(base),
		ids:      ids,
		registry: registry,
	}
}

func (c *CoinGecko) Name() string { return coinGeckoSource }

// AssetID returns the CoinGecko identifier for a configured ticker, or
// the ticker itself when unknown.
func (c *CoinGecko) AssetID(ticker string) string {
	if id, ok := c.ids[strings.ToUpper(ticker)]; ok {
		return id
	}
	return ticker
}

func (c *CoinGecko) FetchRates(ctx context.Context) (map[domain.Pair]float64, error) {
	logrus.Info("Fetching crypto rates from CoinGecko")

	ids := make([]string, 0, len(c.ids))
	for _, id := range c.ids {
		ids = append(ids, id)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", strings.ToLower(c.base))

	var header http.Header
	if c.apiKey != "" {
		header = http.Header{"X-Cg-Demo-Api-Key": []string{c.apiKey}}
	}

	// body: {"bitcoin": {"usd": 59337.21}, ...}
	var body map[string]map[string]float64
	if err := c.client.GetJSON(ctx, coinGeckoSource, c.baseURL+"/simple/price", params, header, &body); err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, domain.NewProviderError(coinGeckoSource, domain.ErrKindMalformed, errors.New("empty response"))
	}

	tickerByID := make(map[string]string, len(c.ids))
	for ticker, id := range c.ids {
		tickerByID[id] = ticker
	}

	rates := make(map[domain.Pair]float64, len(body))
	skipped := 0
	vsKey := strings.ToLower(c.base)
	for assetID, quote := range body {
		ticker, ok := tickerByID[assetID]
		if !ok || !c.registry.Supported(ticker) {
			skipped++
			continue
		}
		rate, ok := quote[vsKey]
		if !ok || rate <= 0 {
			skipped++
			continue
		}
		rates[domain.Pair{From: ticker, To: c.base}] = rate
	}
	if skipped > 0 {
		logrus.Warnf("CoinGecko: skipped %d unknown or unusable entries", skipped)
	}

	logrus.Infof("CoinGecko: fetched %d crypto rates", len(rates))
	return rates, nil
}
