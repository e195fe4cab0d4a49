// Package news defines article and sentiment shapes produced by the
// market data fetchers.
package news

import "time"

// Article is a normalized news item. The source URL doubles as the
// deduplication key across providers.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Symbols     []string  `json:"symbols"`
	Sentiment   float64   `json:"sentiment"` // [-1, 1], 0 when the provider has none
}

// Sentiment is one source's social sentiment reading for a symbol. It is
// computed per call and never persisted.
type Sentiment struct {
	Symbol     string  `json:"symbol"`
	Score      float64 `json:"sentiment"`  // 0..1
	Confidence float64 `json:"confidence"` // 0..1
	Mentions   int     `json:"mentions"`
	Source     string  `json:"source"`
}
