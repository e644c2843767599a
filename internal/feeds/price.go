package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// PriceClient fetches USD spot prices for crypto and stock assets from a
// CoinGecko-compatible simple-price endpoint.
type PriceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPriceClient creates a price feed client. baseURL is the API root, e.g.
// "https://api.coingecko.com/api/v3".
func NewPriceClient(baseURL string) *PriceClient {
	return &PriceClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

// Fetch returns the raw price document for the given asset id. The document
// shape is {"<id>":{"usd":<value>}}, so the conventional extraction path is
// "<id>.usd".
func (c *PriceClient) Fetch(ctx context.Context, assetID string) (any, error) {
	u := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, url.QueryEscape(assetID))

	doc, err := getJSON(ctx, c.httpClient, u)
	if err != nil {
		return nil, fmt.Errorf("feeds: price %s: %w", assetID, err)
	}
	return doc, nil
}
