package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/news"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

const defaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient reads stock quotes, symbol search and company news from the
// Finnhub REST API.
type FinnhubClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger
	now     func() time.Time
}

// NewFinnhubClient builds a client for the given API key.
func NewFinnhubClient(baseURL, apiKey string, client *http.Client, log *logger.Logger) *FinnhubClient {
	if baseURL == "" {
		baseURL = defaultFinnhubBaseURL
	}
	if client == nil {
		client = defaultHTTPClient()
	}
	if log == nil {
		log = logger.NewDefault("finnhub")
	}
	return &FinnhubClient{baseURL: baseURL, apiKey: apiKey, client: client, log: log, now: time.Now}
}

// Configured reports whether an API key is present.
func (c *FinnhubClient) Configured() bool { return c.apiKey != "" }

// Quote returns the current stock quote. Finnhub reports current and previous
// close; change figures are derived.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
	symbol = asset.NormalizeSymbol(symbol)
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return asset.Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}

	var payload struct {
		Current       float64 `json:"c"`
		High          float64 `json:"h"`
		Low           float64 `json:"l"`
		PreviousClose float64 `json:"pc"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return asset.Quote{}, fmt.Errorf("finnhub quote %s: decode: %w", symbol, err)
	}
	// Finnhub answers 200 with all-zero fields for unknown symbols.
	if payload.Current == 0 {
		return asset.Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, ErrNoData)
	}

	change := payload.Current - payload.PreviousClose
	var changePercent float64
	if payload.PreviousClose != 0 {
		changePercent = change / payload.PreviousClose * 100
	}

	return asset.Quote{
		Symbol:        symbol,
		Name:          symbol,
		Type:          asset.TypeStock,
		Price:         payload.Current,
		Change:        change,
		ChangePercent: changePercent,
		High24h:       payload.High,
		Low24h:        payload.Low,
	}, nil
}

// Search returns symbol matches for a free-text query, capped at eight.
func (c *FinnhubClient) Search(ctx context.Context, query string) ([]asset.Quote, error) {
	u := fmt.Sprintf("%s/search?q=%s&token=%s", c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("finnhub search %q: %w", query, err)
	}

	var payload struct {
		Result []struct {
			Symbol      string `json:"symbol"`
			Description string `json:"description"`
			Type        string `json:"type"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("finnhub search %q: decode: %w", query, err)
	}
	if len(payload.Result) == 0 {
		return nil, fmt.Errorf("finnhub search %q: %w", query, ErrNoData)
	}

	var results []asset.Quote
	for _, r := range payload.Result {
		if r.Type != "Common Stock" && r.Type != "ETP" {
			continue
		}
		symbol := asset.NormalizeSymbol(r.Symbol)
		if symbol == "" {
			continue
		}
		name := r.Description
		if name == "" {
			name = symbol
		}
		results = append(results, asset.Quote{Symbol: symbol, Name: name, Type: asset.TypeStock})
		if len(results) >= 8 {
			break
		}
	}
	return results, nil
}

// CompanyNews returns up to five articles per symbol from the last seven days.
func (c *FinnhubClient) CompanyNews(ctx context.Context, symbols []string) ([]news.Article, error) {
	now := c.now().UTC()
	from := now.AddDate(0, 0, -7).Format("2006-01-02")
	to := now.Format("2006-01-02")

	var articles []news.Article
	for _, symbol := range symbols {
		symbol = asset.NormalizeSymbol(symbol)
		u := fmt.Sprintf("%s/company-news?symbol=%s&from=%s&to=%s&token=%s",
			c.baseURL, url.QueryEscape(symbol), from, to, url.QueryEscape(c.apiKey))
		body, err := fetchBody(ctx, c.client, u, nil)
		if err != nil {
			c.log.WithError(err).WithField("symbol", symbol).Warn("company news fetch failed")
			continue
		}

		var items []struct {
			Headline string `json:"headline"`
			Summary  string `json:"summary"`
			URL      string `json:"url"`
			Source   string `json:"source"`
			Datetime int64  `json:"datetime"`
		}
		if err := json.Unmarshal(body, &items); err != nil {
			c.log.WithError(err).WithField("symbol", symbol).Warn("company news decode failed")
			continue
		}

		count := 0
		for _, item := range items {
			if item.URL == "" || item.Headline == "" {
				continue
			}
			articles = append(articles, news.Article{
				ID:          item.URL,
				Title:       item.Headline,
				Summary:     item.Summary,
				URL:         item.URL,
				Source:      item.Source,
				PublishedAt: time.Unix(item.Datetime, 0).UTC(),
				Symbols:     []string{symbol},
			})
			count++
			if count >= 5 {
				break
			}
		}
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("finnhub news: %w", ErrNoData)
	}
	return articles, nil
}
