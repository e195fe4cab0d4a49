package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider names double as quota keys and cache source tags.
const (
	ProviderYahoo        = "yahoo"
	ProviderYahooSearch  = "yahoo_search"
	ProviderYahooMovers  = "yahoo_movers"
	ProviderAlphaVantage = "alpha_vantage"
	ProviderFinnhub      = "finnhub"
	ProviderCoinGecko    = "coingecko"
	ProviderNewsAPI      = "news_api"
	ProviderSocial       = "social_media"
	ProviderReddit       = "reddit"
)

// ErrNoData marks a fetch that succeeded at the transport level but carried
// no usable payload for the symbol. Callers distinguish it from transport or
// decode failures so "no data" and "source broken" stay separate outcomes;
// both mean "try the next source".
var ErrNoData = errors.New("marketdata: no data")

const maxBodyBytes = 4 << 20

func defaultHTTPClient() *http.Client {
	// Every provider call carries a bounded timeout; a hung upstream must not
	// pin the request goroutine.
	return &http.Client{Timeout: 10 * time.Second}
}

// fetchBody issues a GET and returns the response body, capped at
// maxBodyBytes. Non-200 statuses are errors.
func fetchBody(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
