package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/news"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

const defaultAlphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageClient talks to the Alpha Vantage REST API. Its payloads use
// numbered field names ("05. price") and percent strings, normalized here.
type AlphaVantageClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger
}

// NewAlphaVantageClient builds a client for the given API key.
func NewAlphaVantageClient(baseURL, apiKey string, client *http.Client, log *logger.Logger) *AlphaVantageClient {
	if baseURL == "" {
		baseURL = defaultAlphaVantageBaseURL
	}
	if client == nil {
		client = defaultHTTPClient()
	}
	if log == nil {
		log = logger.NewDefault("alphavantage")
	}
	return &AlphaVantageClient{baseURL: baseURL, apiKey: apiKey, client: client, log: log}
}

// Configured reports whether an API key is present; unconfigured clients are
// skipped by the aggregator.
func (c *AlphaVantageClient) Configured() bool { return c.apiKey != "" }

// Quote returns the GLOBAL_QUOTE snapshot for a stock.
func (c *AlphaVantageClient) Quote(ctx context.Context, symbol string) (asset.Quote, error) {
	symbol = asset.NormalizeSymbol(symbol)
	u := fmt.Sprintf("%s?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return asset.Quote{}, fmt.Errorf("alphavantage quote %s: %w", symbol, err)
	}

	var payload struct {
		ErrorMessage string `json:"Error Message"`
		Note         string `json:"Note"`
		GlobalQuote  struct {
			Price         string `json:"05. price"`
			Volume        string `json:"06. volume"`
			Change        string `json:"09. change"`
			ChangePercent string `json:"10. change percent"`
		} `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return asset.Quote{}, fmt.Errorf("alphavantage quote %s: decode: %w", symbol, err)
	}
	if payload.ErrorMessage != "" || payload.Note != "" {
		// A Note means the free-tier quota was hit server-side.
		c.log.WithField("symbol", symbol).Warn("alphavantage limit or error response")
		return asset.Quote{}, fmt.Errorf("alphavantage quote %s: %w", symbol, ErrNoData)
	}
	if payload.GlobalQuote.Price == "" {
		return asset.Quote{}, fmt.Errorf("alphavantage quote %s: %w", symbol, ErrNoData)
	}

	price, err := strconv.ParseFloat(payload.GlobalQuote.Price, 64)
	if err != nil {
		return asset.Quote{}, fmt.Errorf("alphavantage quote %s: parse price: %w", symbol, err)
	}
	change, _ := strconv.ParseFloat(payload.GlobalQuote.Change, 64)
	changePercent, _ := strconv.ParseFloat(strings.TrimSuffix(payload.GlobalQuote.ChangePercent, "%"), 64)
	volume, _ := strconv.ParseFloat(payload.GlobalQuote.Volume, 64)

	return asset.Quote{
		Symbol:        symbol,
		Name:          symbol,
		Type:          asset.TypeStock,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        volume,
	}, nil
}

// DailySeries returns up to the last 30 daily bars in chronological order.
func (c *AlphaVantageClient) DailySeries(ctx context.Context, symbol string) ([]asset.ChartPoint, error) {
	symbol = asset.NormalizeSymbol(symbol)
	u := fmt.Sprintf("%s?function=TIME_SERIES_DAILY&symbol=%s&apikey=%s", c.baseURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage series %s: %w", symbol, err)
	}

	var payload struct {
		ErrorMessage string `json:"Error Message"`
		TimeSeries   map[string]struct {
			Open   string `json:"1. open"`
			High   string `json:"2. high"`
			Low    string `json:"3. low"`
			Close  string `json:"4. close"`
			Volume string `json:"5. volume"`
		} `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("alphavantage series %s: decode: %w", symbol, err)
	}
	if payload.ErrorMessage != "" || len(payload.TimeSeries) == 0 {
		return nil, fmt.Errorf("alphavantage series %s: %w", symbol, ErrNoData)
	}

	dates := make([]string, 0, len(payload.TimeSeries))
	for date := range payload.TimeSeries {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > 30 {
		dates = dates[:30]
	}

	points := make([]asset.ChartPoint, 0, len(dates))
	for i := len(dates) - 1; i >= 0; i-- {
		bar := payload.TimeSeries[dates[i]]
		open, _ := strconv.ParseFloat(bar.Open, 64)
		high, _ := strconv.ParseFloat(bar.High, 64)
		low, _ := strconv.ParseFloat(bar.Low, 64)
		closePrice, _ := strconv.ParseFloat(bar.Close, 64)
		volume, _ := strconv.ParseFloat(bar.Volume, 64)
		points = append(points, asset.ChartPoint{
			Timestamp: dates[i],
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return points, nil
}

// News returns articles from the NEWS_SENTIMENT feed, optionally filtered by
// ticker topics.
func (c *AlphaVantageClient) News(ctx context.Context, symbols []string) ([]news.Article, error) {
	u := fmt.Sprintf("%s?function=NEWS_SENTIMENT&apikey=%s&limit=20", c.baseURL, url.QueryEscape(c.apiKey))
	if len(symbols) > 0 {
		u += "&topics=" + url.QueryEscape(strings.Join(symbols, ","))
	}
	body, err := fetchBody(ctx, c.client, u, nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage news: %w", err)
	}

	var payload struct {
		Feed []struct {
			Title           string   `json:"title"`
			URL             string   `json:"url"`
			Summary         string   `json:"summary"`
			Source          string   `json:"source"`
			Authors         []string `json:"authors"`
			TimePublished   string   `json:"time_published"`
			SentimentScore  float64  `json:"overall_sentiment_score"`
			TickerSentiment []struct {
				Ticker string `json:"ticker"`
			} `json:"ticker_sentiment"`
		} `json:"feed"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("alphavantage news: decode: %w", err)
	}
	if len(payload.Feed) == 0 {
		return nil, fmt.Errorf("alphavantage news: %w", ErrNoData)
	}

	articles := make([]news.Article, 0, len(payload.Feed))
	for _, item := range payload.Feed {
		if item.URL == "" {
			continue
		}
		published, err := time.Parse("20060102T150405", item.TimePublished)
		if err != nil {
			published = time.Now().UTC()
		}
		var author string
		if len(item.Authors) > 0 {
			author = item.Authors[0]
		}
		tickers := make([]string, 0, len(item.TickerSentiment))
		for _, ts := range item.TickerSentiment {
			tickers = append(tickers, asset.NormalizeSymbol(ts.Ticker))
		}
		articles = append(articles, news.Article{
			ID:          item.URL,
			Title:       item.Title,
			Summary:     item.Summary,
			URL:         item.URL,
			Source:      item.Source,
			Author:      author,
			PublishedAt: published,
			Symbols:     tickers,
			Sentiment:   item.SentimentScore,
		})
	}
	return articles, nil
}
