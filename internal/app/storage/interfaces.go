package storage

import (
	"context"

	"github.com/alphadesk/alphadesk/internal/app/domain/alert"
	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/chat"
	"github.com/alphadesk/alphadesk/internal/app/domain/notification"
	"github.com/alphadesk/alphadesk/internal/app/domain/portfolio"
	"github.com/alphadesk/alphadesk/internal/app/domain/recommendation"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/domain/watchlist"
)

// UserStore persists account holders and their subscriptions.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)

	UpsertSubscription(ctx context.Context, sub user.Subscription) (user.Subscription, error)
	GetSubscription(ctx context.Context, userID string) (user.Subscription, error)
}

// AnalysisStore persists AI analysis records, unique per (symbol, type).
// UpsertAnalysis replaces any existing record for the same key.
type AnalysisStore interface {
	UpsertAnalysis(ctx context.Context, rec analysis.Record) (analysis.Record, error)
	GetAnalysis(ctx context.Context, symbol string, typ asset.Type) (analysis.Record, error)
	ListRecentAnalyses(ctx context.Context, limit int) ([]analysis.Record, error)
}

// PortfolioStore persists cash balances and trades.
type PortfolioStore interface {
	CreatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error)
	UpdatePortfolio(ctx context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error)
	GetPortfolio(ctx context.Context, userID string) (portfolio.Portfolio, error)

	CreateTrade(ctx context.Context, t portfolio.Trade) (portfolio.Trade, error)
	UpdateTrade(ctx context.Context, t portfolio.Trade) (portfolio.Trade, error)
	GetTrade(ctx context.Context, id string) (portfolio.Trade, error)
	ListTrades(ctx context.Context, userID string) ([]portfolio.Trade, error)
	ListTradesByStatus(ctx context.Context, status portfolio.Status) ([]portfolio.Trade, error)
}

// WatchlistStore persists tracked symbols, unique per (user, symbol).
type WatchlistStore interface {
	AddWatchlistItem(ctx context.Context, item watchlist.Item) (watchlist.Item, error)
	RemoveWatchlistItem(ctx context.Context, userID, symbol string) error
	ListWatchlist(ctx context.Context, userID string) ([]watchlist.Item, error)
}

// AlertStore persists price alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error)
	UpdateAlert(ctx context.Context, a alert.Alert) (alert.Alert, error)
	GetAlert(ctx context.Context, id string) (alert.Alert, error)
	ListAlerts(ctx context.Context, userID string) ([]alert.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]alert.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
}

// NotificationStore persists inbox entries.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]notification.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// ChatStore persists assistant conversations.
type ChatStore interface {
	CreateChatMessage(ctx context.Context, m chat.Message) (chat.Message, error)
	ListChatMessages(ctx context.Context, userID string, limit int) ([]chat.Message, error)
	SetChatFeedback(ctx context.Context, id string, feedback int) error
}

// RecommendationStore persists dashboard trade suggestions.
type RecommendationStore interface {
	CreateRecommendation(ctx context.Context, r recommendation.Recommendation) (recommendation.Recommendation, error)
	ListRecommendations(ctx context.Context, userID string, unviewedOnly bool) ([]recommendation.Recommendation, error)
	MarkRecommendationViewed(ctx context.Context, id string) error
}
