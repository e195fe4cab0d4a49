// Package user defines the account holder model and subscription tiers.
package user

import "time"

// Tier is the subscription level gating trade limits and order types.
type Tier string

const (
	TierFree  Tier = "free"
	TierPro   Tier = "pro"
	TierAdmin Tier = "admin"
)

// User is a registered account holder. PasswordHash and brokerage credentials
// never leave the service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"-"`
	Theme        string    `json:"theme,omitempty"`
	BrokerKey    string    `json:"-"`
	BrokerSecret string    `json:"-"`
	LiveTrading  bool      `json:"live_trading"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasBrokerCredentials reports whether the user stored brokerage API keys.
func (u User) HasBrokerCredentials() bool {
	return u.BrokerKey != "" && u.BrokerSecret != ""
}

// Subscription records a user's paid tier.
type Subscription struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Tier             Tier      `json:"tier"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
