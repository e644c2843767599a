package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// WeatherClient fetches current conditions from a wttr.in-compatible
// endpoint, where the city is a path segment.
type WeatherClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWeatherClient creates a weather feed client. baseURL is the API root,
// e.g. "https://wttr.in".
func NewWeatherClient(baseURL string) *WeatherClient {
	return &WeatherClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
	}
}

// Fetch returns the raw weather document for a city. The current temperature
// lives at "current_condition[0].temp_C" (a numeric string).
func (c *WeatherClient) Fetch(ctx context.Context, city string) (any, error) {
	u := fmt.Sprintf("%s/%s?format=j1", c.baseURL, url.PathEscape(city))

	doc, err := getJSON(ctx, c.httpClient, u)
	if err != nil {
		return nil, fmt.Errorf("feeds: weather %s: %w", city, err)
	}
	return doc, nil
}
