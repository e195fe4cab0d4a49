// Package analysis defines the persisted AI analysis record and its
// categorical vocabulary.
package analysis

import (
	"encoding/json"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

// Recommendation is the model's trade stance.
type Recommendation string

const (
	RecommendBuy  Recommendation = "buy"
	RecommendSell Recommendation = "sell"
	RecommendHold Recommendation = "hold"
)

// RiskLevel is the model's risk assessment.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Trend classifies recent price direction from chart data.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Record is the upserted analysis row, unique per (symbol, type). A record is
// served as-is until ExpiresAt, then regenerated on the next request.
type Record struct {
	ID               string          `json:"id"`
	Symbol           string          `json:"symbol"`
	Type             asset.Type      `json:"type"`
	Recommendation   Recommendation  `json:"recommendation"`
	Confidence       int             `json:"confidence"` // clamped to [20, 98]
	Reasoning        string          `json:"reasoning"`
	TechnicalScore   int             `json:"technical_score"`
	FundamentalScore *int            `json:"fundamental_score,omitempty"` // stocks only
	SentimentScore   int             `json:"sentiment_score"`
	RiskLevel        RiskLevel       `json:"risk_level"`
	TargetPrice      *float64        `json:"target_price,omitempty"`
	StopLoss         *float64        `json:"stop_loss,omitempty"`
	DataSource       json.RawMessage `json:"data_source,omitempty"` // inputs + confidence factor breakdown
	CreatedAt        time.Time       `json:"created_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// Expired reports whether the record is past its validity window.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
