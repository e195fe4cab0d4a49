// Package watchlist defines per-user tracked symbols.
package watchlist

import (
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

// Item is one tracked symbol, unique per (user, symbol).
type Item struct {
	ID      string     `json:"id"`
	UserID  string     `json:"user_id"`
	Symbol  string     `json:"symbol"`
	Type    asset.Type `json:"type"`
	Name    string     `json:"name,omitempty"`
	AddedAt time.Time  `json:"added_at"`
}

// QuotedItem decorates an Item with the live quote fields the dashboard
// renders. Quote fields are zero when no source had data.
type QuotedItem struct {
	Item
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
	MarketCap     float64 `json:"market_cap"`
}
