package feeds

import (
	"context"
	"fmt"
	"net/http"
)

// ExchangeRateClient fetches USD-base currency rates from an
// open.er-api.com-compatible endpoint.
type ExchangeRateClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewExchangeRateClient creates an exchange-rate feed client. baseURL is the
// API root, e.g. "https://open.er-api.com/v6".
func NewExchangeRateClient(baseURL string) *ExchangeRateClient {
	return &ExchangeRateClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

// Fetch returns the USD-base rate document. The key parameter is unused by
// the request itself (the feed always serves the full USD table); the
// extraction path selects the currency, e.g. "rates.EUR".
func (c *ExchangeRateClient) Fetch(ctx context.Context, _ string) (any, error) {
	doc, err := getJSON(ctx, c.httpClient, c.baseURL+"/latest/USD")
	if err != nil {
		return nil, fmt.Errorf("feeds: exchange rates: %w", err)
	}
	return doc, nil
}
