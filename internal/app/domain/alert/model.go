// Package alert defines user price alerts.
package alert

import (
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
)

// Condition is the trigger comparison against the target price.
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// Alert fires a notification once when the symbol's price crosses the target.
type Alert struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Symbol      string     `json:"symbol"`
	Type        asset.Type `json:"type"`
	Condition   Condition  `json:"condition"`
	TargetPrice float64    `json:"target_price"`
	Active      bool       `json:"active"`
	Triggered   bool       `json:"triggered"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Satisfied reports whether a price meets the alert condition.
func (a Alert) Satisfied(price float64) bool {
	switch a.Condition {
	case ConditionAbove:
		return price >= a.TargetPrice
	case ConditionBelow:
		return price <= a.TargetPrice
	default:
		return false
	}
}
