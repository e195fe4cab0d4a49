package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/news"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

const defaultNewsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIClient reads general market headlines from newsapi.org.
type NewsAPIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logger.Logger
}

// NewNewsAPIClient builds a client for the given API key.
func NewNewsAPIClient(baseURL, apiKey string, client *http.Client, log *logger.Logger) *NewsAPIClient {
	if baseURL == "" {
		baseURL = defaultNewsAPIBaseURL
	}
	if client == nil {
		client = defaultHTTPClient()
	}
	if log == nil {
		log = logger.NewDefault("newsapi")
	}
	return &NewsAPIClient{baseURL: baseURL, apiKey: apiKey, client: client, log: log}
}

// Configured reports whether an API key is present.
func (c *NewsAPIClient) Configured() bool { return c.apiKey != "" }

// Headlines returns recent finance headlines. When symbols are given they are
// OR-ed into the query so symbol-specific coverage ranks first.
func (c *NewsAPIClient) Headlines(ctx context.Context, symbols []string) ([]news.Article, error) {
	query := "stock market OR finance OR investing"
	if len(symbols) > 0 {
		terms := make([]string, 0, len(symbols))
		for _, s := range symbols {
			terms = append(terms, asset.NormalizeSymbol(s))
		}
		query = strings.Join(terms, " OR ")
	}

	u := fmt.Sprintf("%s/everything?q=%s&language=en&sortBy=publishedAt&pageSize=20",
		c.baseURL, url.QueryEscape(query))
	body, err := fetchBody(ctx, c.client, u, map[string]string{"X-Api-Key": c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("newsapi headlines: %w", err)
	}

	var payload struct {
		Status   string `json:"status"`
		Articles []struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			URL         string    `json:"url"`
			Author      string    `json:"author"`
			PublishedAt time.Time `json:"publishedAt"`
			Source      struct {
				Name string `json:"name"`
			} `json:"source"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("newsapi headlines: decode: %w", err)
	}
	if payload.Status != "ok" || len(payload.Articles) == 0 {
		return nil, fmt.Errorf("newsapi headlines: %w", ErrNoData)
	}

	articles := make([]news.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.URL == "" || item.Title == "" || item.Title == "[Removed]" {
			continue
		}
		// Tag the article with whichever requested symbols its text mentions.
		var tagged []string
		text := strings.ToUpper(item.Title + " " + item.Description)
		for _, s := range symbols {
			s = asset.NormalizeSymbol(s)
			if strings.Contains(text, s) {
				tagged = append(tagged, s)
			}
		}
		articles = append(articles, news.Article{
			ID:          item.URL,
			Title:       item.Title,
			Summary:     item.Description,
			URL:         item.URL,
			Source:      item.Source.Name,
			Author:      item.Author,
			PublishedAt: item.PublishedAt,
			Symbols:     tagged,
		})
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("newsapi headlines: %w", ErrNoData)
	}
	return articles, nil
}
