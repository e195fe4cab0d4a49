package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/alert"
	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/chat"
	"github.com/alphadesk/alphadesk/internal/app/domain/notification"
	"github.com/alphadesk/alphadesk/internal/app/domain/portfolio"
	"github.com/alphadesk/alphadesk/internal/app/domain/recommendation"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/domain/watchlist"
	"github.com/alphadesk/alphadesk/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu              sync.RWMutex
	nextID          int64
	users           map[string]user.User
	usersByEmail    map[string]string
	subscriptions   map[string]user.Subscription // keyed by user ID
	analyses        map[string]analysis.Record   // keyed by symbol|type
	portfolios      map[string]portfolio.Portfolio
	trades          map[string]portfolio.Trade
	watchlists      map[string][]watchlist.Item
	alerts          map[string]alert.Alert
	notifications   map[string]notification.Notification
	chatMessages    map[string]chat.Message
	recommendations map[string]recommendation.Recommendation
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.AnalysisStore = (*Store)(nil)
var _ storage.PortfolioStore = (*Store)(nil)
var _ storage.WatchlistStore = (*Store)(nil)
var _ storage.AlertStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.ChatStore = (*Store)(nil)
var _ storage.RecommendationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:          1,
		users:           make(map[string]user.User),
		usersByEmail:    make(map[string]string),
		subscriptions:   make(map[string]user.Subscription),
		analyses:        make(map[string]analysis.Record),
		portfolios:      make(map[string]portfolio.Portfolio),
		trades:          make(map[string]portfolio.Trade),
		watchlists:      make(map[string][]watchlist.Item),
		alerts:          make(map[string]alert.Alert),
		notifications:   make(map[string]notification.Notification),
		chatMessages:    make(map[string]chat.Message),
		recommendations: make(map[string]recommendation.Recommendation),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func analysisKey(symbol string, typ asset.Type) string {
	return asset.NormalizeSymbol(symbol) + "|" + string(typ)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if email == "" {
		return user.User{}, fmt.Errorf("email required")
	}
	if _, exists := s.usersByEmail[email]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", email)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}

	now := time.Now().UTC()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = u
	s.usersByEmail[email] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", u.ID)
	}

	u.Email = original.Email
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", email)
	}
	return s.users[id], nil
}

func (s *Store) UpsertSubscription(_ context.Context, sub user.Subscription) (user.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.subscriptions[sub.UserID]; ok {
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.ID = s.nextIDLocked()
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	s.subscriptions[sub.UserID] = sub
	return sub, nil
}

func (s *Store) GetSubscription(_ context.Context, userID string) (user.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[userID]
	if !ok {
		return user.Subscription{}, fmt.Errorf("subscription for user %s not found", userID)
	}
	return sub, nil
}

// AnalysisStore implementation ------------------------------------------------

func (s *Store) UpsertAnalysis(_ context.Context, rec analysis.Record) (analysis.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Symbol = asset.NormalizeSymbol(rec.Symbol)
	key := analysisKey(rec.Symbol, rec.Type)
	if existing, ok := s.analyses[key]; ok {
		rec.ID = existing.ID
	} else if rec.ID == "" {
		rec.ID = s.nextIDLocked()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.DataSource = append([]byte(nil), rec.DataSource...)

	s.analyses[key] = rec
	return rec, nil
}

func (s *Store) GetAnalysis(_ context.Context, symbol string, typ asset.Type) (analysis.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.analyses[analysisKey(symbol, typ)]
	if !ok {
		return analysis.Record{}, fmt.Errorf("analysis for %s (%s) not found", asset.NormalizeSymbol(symbol), typ)
	}
	return cloneAnalysis(rec), nil
}

func (s *Store) ListRecentAnalyses(_ context.Context, limit int) ([]analysis.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]analysis.Record, 0, len(s.analyses))
	for _, rec := range s.analyses {
		result = append(result, cloneAnalysis(rec))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// PortfolioStore implementation -----------------------------------------------

func (s *Store) CreatePortfolio(_ context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.portfolios[p.UserID]; exists {
		return portfolio.Portfolio{}, fmt.Errorf("portfolio for user %s already exists", p.UserID)
	}
	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.portfolios[p.UserID] = p
	return p, nil
}

func (s *Store) UpdatePortfolio(_ context.Context, p portfolio.Portfolio) (portfolio.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.portfolios[p.UserID]
	if !ok {
		return portfolio.Portfolio{}, fmt.Errorf("portfolio for user %s not found", p.UserID)
	}

	p.ID = original.ID
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	s.portfolios[p.UserID] = p
	return p, nil
}

func (s *Store) GetPortfolio(_ context.Context, userID string) (portfolio.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[userID]
	if !ok {
		return portfolio.Portfolio{}, fmt.Errorf("portfolio for user %s not found", userID)
	}
	return p, nil
}

func (s *Store) CreateTrade(_ context.Context, t portfolio.Trade) (portfolio.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	} else if _, exists := s.trades[t.ID]; exists {
		return portfolio.Trade{}, fmt.Errorf("trade %s already exists", t.ID)
	}
	if t.ExecutedAt.IsZero() {
		t.ExecutedAt = time.Now().UTC()
	}
	t.Symbol = asset.NormalizeSymbol(t.Symbol)

	s.trades[t.ID] = cloneTrade(t)
	return t, nil
}

func (s *Store) UpdateTrade(_ context.Context, t portfolio.Trade) (portfolio.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.trades[t.ID]
	if !ok {
		return portfolio.Trade{}, fmt.Errorf("trade %s not found", t.ID)
	}

	t.UserID = original.UserID
	t.Symbol = original.Symbol

	s.trades[t.ID] = cloneTrade(t)
	return t, nil
}

func (s *Store) GetTrade(_ context.Context, id string) (portfolio.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return portfolio.Trade{}, fmt.Errorf("trade %s not found", id)
	}
	return cloneTrade(t), nil
}

func (s *Store) ListTrades(_ context.Context, userID string) ([]portfolio.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []portfolio.Trade
	for _, t := range s.trades {
		if t.UserID == userID {
			result = append(result, cloneTrade(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExecutedAt.After(result[j].ExecutedAt)
	})
	return result, nil
}

func (s *Store) ListTradesByStatus(_ context.Context, status portfolio.Status) ([]portfolio.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []portfolio.Trade
	for _, t := range s.trades {
		if t.Status == status {
			result = append(result, cloneTrade(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExecutedAt.Before(result[j].ExecutedAt)
	})
	return result, nil
}

// WatchlistStore implementation -----------------------------------------------

func (s *Store) AddWatchlistItem(_ context.Context, item watchlist.Item) (watchlist.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Symbol = asset.NormalizeSymbol(item.Symbol)
	for _, existing := range s.watchlists[item.UserID] {
		if existing.Symbol == item.Symbol {
			return watchlist.Item{}, fmt.Errorf("symbol %s already on watchlist", item.Symbol)
		}
	}
	if item.ID == "" {
		item.ID = s.nextIDLocked()
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}

	s.watchlists[item.UserID] = append(s.watchlists[item.UserID], item)
	return item, nil
}

func (s *Store) RemoveWatchlistItem(_ context.Context, userID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol = asset.NormalizeSymbol(symbol)
	items := s.watchlists[userID]
	for i, item := range items {
		if item.Symbol == symbol {
			s.watchlists[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("symbol %s not on watchlist", symbol)
}

func (s *Store) ListWatchlist(_ context.Context, userID string) ([]watchlist.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.watchlists[userID]
	result := make([]watchlist.Item, len(items))
	copy(result, items)
	return result, nil
}

// AlertStore implementation ---------------------------------------------------

func (s *Store) CreateAlert(_ context.Context, a alert.Alert) (alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	} else if _, exists := s.alerts[a.ID]; exists {
		return alert.Alert{}, fmt.Errorf("alert %s already exists", a.ID)
	}
	a.Symbol = asset.NormalizeSymbol(a.Symbol)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	s.alerts[a.ID] = cloneAlert(a)
	return a, nil
}

func (s *Store) UpdateAlert(_ context.Context, a alert.Alert) (alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.alerts[a.ID]
	if !ok {
		return alert.Alert{}, fmt.Errorf("alert %s not found", a.ID)
	}
	a.UserID = original.UserID
	a.CreatedAt = original.CreatedAt

	s.alerts[a.ID] = cloneAlert(a)
	return a, nil
}

func (s *Store) GetAlert(_ context.Context, id string) (alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return alert.Alert{}, fmt.Errorf("alert %s not found", id)
	}
	return cloneAlert(a), nil
}

func (s *Store) ListAlerts(_ context.Context, userID string) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []alert.Alert
	for _, a := range s.alerts {
		if a.UserID == userID {
			result = append(result, cloneAlert(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) ListActiveAlerts(_ context.Context) ([]alert.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []alert.Alert
	for _, a := range s.alerts {
		if a.Active && !a.Triggered {
			result = append(result, cloneAlert(a))
		}
	}
	return result, nil
}

func (s *Store) DeleteAlert(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerts[id]; !ok {
		return fmt.Errorf("alert %s not found", id)
	}
	delete(s.alerts, id)
	return nil
}

// NotificationStore implementation --------------------------------------------

func (s *Store) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.nextIDLocked()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.Data = cloneMap(n.Data)

	s.notifications[n.ID] = n
	return cloneNotification(n), nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []notification.Notification
	for _, n := range s.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		result = append(result, cloneNotification(n))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return fmt.Errorf("notification %s not found", id)
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			s.notifications[id] = n
		}
	}
	return nil
}

// ChatStore implementation ----------------------------------------------------

func (s *Store) CreateChatMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	s.chatMessages[m.ID] = cloneChatMessage(m)
	return m, nil
}

func (s *Store) ListChatMessages(_ context.Context, userID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []chat.Message
	for _, m := range s.chatMessages {
		if m.UserID == userID {
			result = append(result, cloneChatMessage(m))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (s *Store) SetChatFeedback(_ context.Context, id string, feedback int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.chatMessages[id]
	if !ok {
		return fmt.Errorf("chat message %s not found", id)
	}
	m.Feedback = &feedback
	s.chatMessages[id] = m
	return nil
}

// RecommendationStore implementation ------------------------------------------

func (s *Store) CreateRecommendation(_ context.Context, r recommendation.Recommendation) (recommendation.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Symbol = asset.NormalizeSymbol(r.Symbol)

	s.recommendations[r.ID] = r
	return r, nil
}

func (s *Store) ListRecommendations(_ context.Context, userID string, unviewedOnly bool) ([]recommendation.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []recommendation.Recommendation
	for _, r := range s.recommendations {
		if r.UserID != userID {
			continue
		}
		if unviewedOnly && r.Viewed {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) MarkRecommendationViewed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recommendations[id]
	if !ok {
		return fmt.Errorf("recommendation %s not found", id)
	}
	r.Viewed = true
	s.recommendations[id] = r
	return nil
}

// clone helpers ----------------------------------------------------------------

func cloneMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneAnalysis(rec analysis.Record) analysis.Record {
	rec.DataSource = append([]byte(nil), rec.DataSource...)
	rec.FundamentalScore = cloneIntPtr(rec.FundamentalScore)
	rec.TargetPrice = cloneFloatPtr(rec.TargetPrice)
	rec.StopLoss = cloneFloatPtr(rec.StopLoss)
	return rec
}

func cloneTrade(t portfolio.Trade) portfolio.Trade {
	t.LimitPrice = cloneFloatPtr(t.LimitPrice)
	t.StopPrice = cloneFloatPtr(t.StopPrice)
	return t
}

func cloneAlert(a alert.Alert) alert.Alert {
	if a.TriggeredAt != nil {
		at := *a.TriggeredAt
		a.TriggeredAt = &at
	}
	return a
}

func cloneNotification(n notification.Notification) notification.Notification {
	n.Data = cloneMap(n.Data)
	return n
}

func cloneChatMessage(m chat.Message) chat.Message {
	m.Feedback = cloneIntPtr(m.Feedback)
	return m
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
