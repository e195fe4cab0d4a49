// Package asset defines the market data shapes shared by the fetchers,
// the aggregator and the HTTP API.
package asset

import (
	"fmt"
	"strings"
)

// Type distinguishes the two tradable asset classes.
type Type string

const (
	TypeStock  Type = "stock"
	TypeCrypto Type = "crypto"
)

// ParseType validates a raw asset type string.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeStock:
		return TypeStock, nil
	case TypeCrypto:
		return TypeCrypto, nil
	default:
		return "", fmt.Errorf("invalid asset type %q", raw)
	}
}

// NormalizeSymbol canonicalizes a ticker: trimmed and uppercased.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Quote is a point-in-time snapshot for one asset from one source. Quotes are
// transient: they are rebuilt on every fetch and never stored durably.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Type          Type    `json:"type"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume,omitempty"`
	MarketCap     float64 `json:"market_cap,omitempty"`
	High24h       float64 `json:"high_24h,omitempty"`
	Low24h        float64 `json:"low_24h,omitempty"`
}

// MarketMover is a gainer or loser row on the movers board.
type MarketMover struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume,omitempty"`
}

// Movers bundles the two sides of the board.
type Movers struct {
	Gainers []MarketMover `json:"gainers"`
	Losers  []MarketMover `json:"losers"`
}

// ChartPoint is one OHLCV bar of a price series.
type ChartPoint struct {
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}
