// Package portfolio defines the simulated brokerage models: cash balances,
// trades and derived positions.
package portfolio

import (
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

// Side is the order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType is the execution style of an order.
type OrderType string

const (
	OrderMarket    OrderType = "market"
	OrderLimit     OrderType = "limit"
	OrderStop      OrderType = "stop"
	OrderStopLimit OrderType = "stop_limit"
)

// TimeInForce is how long an unexecuted order stays working.
type TimeInForce string

const (
	TIFDay TimeInForce = "day"
	TIFGTC TimeInForce = "gtc"
	TIFIOC TimeInForce = "ioc"
	TIFFOK TimeInForce = "fok"
)

// Status is the lifecycle state of a trade.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// Portfolio holds a user's virtual cash balance.
type Portfolio struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CashBalance    float64   `json:"cash_balance"`
	InitialBalance float64   `json:"initial_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Trade is one executed or working order against the simulated book.
type Trade struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	Symbol      string      `json:"symbol"`
	Type        asset.Type  `json:"type"`
	Action      Side        `json:"action"`
	Quantity    float64     `json:"quantity"`
	Price       float64     `json:"price"`
	TotalValue  float64     `json:"total_value"`
	Fee         float64     `json:"fee"`
	Status      Status      `json:"status"`
	OrderType   OrderType   `json:"order_type"`
	LimitPrice  *float64    `json:"limit_price,omitempty"`
	StopPrice   *float64    `json:"stop_price,omitempty"`
	TimeInForce TimeInForce `json:"time_in_force"`
	ExecutedAt  time.Time   `json:"executed_at"`
}

// Position is a holding derived from completed trades, decorated with the
// current market price at read time.
type Position struct {
	Symbol               string     `json:"symbol"`
	Name                 string     `json:"name"`
	Type                 asset.Type `json:"type"`
	Quantity             float64    `json:"quantity"`
	AvgPrice             float64    `json:"avg_price"`
	CurrentPrice         float64    `json:"current_price"`
	TotalValue           float64    `json:"total_value"`
	UnrealizedPnL        float64    `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64    `json:"unrealized_pnl_percent"`
}

// Snapshot is the aggregate view returned by the portfolio endpoint.
type Snapshot struct {
	TotalValue  float64    `json:"total_value"`
	CashBalance float64    `json:"cash_balance"`
	TotalReturn float64    `json:"total_return"`
	DailyReturn float64    `json:"daily_return"`
	Positions   []Position `json:"positions"`
}
