// Package trading implements the simulated brokerage: order placement with
// tier limits and fees, pending order execution, and positions derived from
// the completed trade history.
package trading

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/notification"
	"github.com/alphadesk/alphadesk/internal/app/domain/portfolio"
	"github.com/alphadesk/alphadesk/internal/app/domain/user"
	"github.com/alphadesk/alphadesk/internal/app/metrics"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/internal/brokerage"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// Per-trade value ceilings by tier. Admin is uncapped.
const (
	FreeTierMaxTradeValue = 1_000
	ProTierMaxTradeValue  = 10_000
)

// QuoteSource supplies current prices for execution.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string, typ asset.Type) (asset.Quote, error)
}

// TierSource resolves a user's effective subscription tier.
type TierSource interface {
	Tier(ctx context.Context, userID string) user.Tier
}

// Broker mirrors completed orders to a user's linked live account and reads
// its state back.
type Broker interface {
	SubmitOrder(ctx context.Context, key, secret string, req brokerage.OrderRequest) (brokerage.Order, error)
	GetAccount(ctx context.Context, key, secret string) (brokerage.Account, error)
	GetPositions(ctx context.Context, key, secret string) ([]brokerage.Position, error)
	ListOrders(ctx context.Context, key, secret string) ([]brokerage.Order, error)
}

// ErrNoLinkedBroker marks users without stored brokerage credentials.
var ErrNoLinkedBroker = errors.New("no linked brokerage account")

// OrderRequest is a new order from the API layer.
type OrderRequest struct {
	UserID      string
	Symbol      string
	Type        asset.Type
	Action      portfolio.Side
	Quantity    float64
	OrderType   portfolio.OrderType
	LimitPrice  *float64
	StopPrice   *float64
	TimeInForce portfolio.TimeInForce
}

// Service is the paper trading engine.
type Service struct {
	store         storage.PortfolioStore
	quotes        QuoteSource
	tiers         TierSource
	notifications storage.NotificationStore
	users         storage.UserStore
	broker        Broker
	log           *logger.Logger
	now           func() time.Time
}

// New constructs the trading service. Notifications are optional.
func New(store storage.PortfolioStore, quotes QuoteSource, tiers TierSource, notifications storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("trading")
	}
	return &Service{
		store:         store,
		quotes:        quotes,
		tiers:         tiers,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

// WithClock injects a clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithLiveMirror enables mirroring fills to users who linked a brokerage
// account and turned live trading on.
func (s *Service) WithLiveMirror(users storage.UserStore, broker Broker) *Service {
	s.users = users
	s.broker = broker
	return s
}

// Fee is the flat-minimum commission: 0.1% of trade value, at least $1.
func Fee(totalValue float64) float64 {
	fee := totalValue * 0.001
	if fee < 1 {
		return 1
	}
	return fee
}

// PlaceOrder validates, prices and books an order. Market orders and
// marketable limit orders fill immediately; other limit orders and all stop
// orders rest as pending.
func (s *Service) PlaceOrder(ctx context.Context, req OrderRequest) (portfolio.Trade, error) {
	if req.Quantity <= 0 {
		return portfolio.Trade{}, fmt.Errorf("quantity must be positive")
	}
	if req.Action != portfolio.SideBuy && req.Action != portfolio.SideSell {
		return portfolio.Trade{}, fmt.Errorf("invalid action %q", req.Action)
	}
	if req.OrderType == "" {
		req.OrderType = portfolio.OrderMarket
	}
	if req.TimeInForce == "" {
		req.TimeInForce = portfolio.TIFDay
	}
	switch req.OrderType {
	case portfolio.OrderMarket:
	case portfolio.OrderLimit:
		if req.LimitPrice == nil || *req.LimitPrice <= 0 {
			return portfolio.Trade{}, fmt.Errorf("limit orders require a positive limit price")
		}
	case portfolio.OrderStop:
		if req.StopPrice == nil || *req.StopPrice <= 0 {
			return portfolio.Trade{}, fmt.Errorf("stop orders require a positive stop price")
		}
	case portfolio.OrderStopLimit:
		if req.LimitPrice == nil || *req.LimitPrice <= 0 || req.StopPrice == nil || *req.StopPrice <= 0 {
			return portfolio.Trade{}, fmt.Errorf("stop-limit orders require positive stop and limit prices")
		}
	default:
		return portfolio.Trade{}, fmt.Errorf("invalid order type %q", req.OrderType)
	}

	quote, err := s.quotes.Quote(ctx, req.Symbol, req.Type)
	if err != nil {
		return portfolio.Trade{}, fmt.Errorf("price %s: %w", req.Symbol, err)
	}
	price := quote.Price
	totalValue := price * req.Quantity

	tier := user.TierFree
	if s.tiers != nil {
		tier = s.tiers.Tier(ctx, req.UserID)
	}
	if err := checkTierLimits(tier, req.OrderType, totalValue); err != nil {
		return portfolio.Trade{}, err
	}

	trade := portfolio.Trade{
		UserID:      req.UserID,
		Symbol:      asset.NormalizeSymbol(req.Symbol),
		Type:        req.Type,
		Action:      req.Action,
		Quantity:    req.Quantity,
		Price:       price,
		TotalValue:  totalValue,
		Fee:         Fee(totalValue),
		Status:      portfolio.StatusPending,
		OrderType:   req.OrderType,
		LimitPrice:  req.LimitPrice,
		StopPrice:   req.StopPrice,
		TimeInForce: req.TimeInForce,
		ExecutedAt:  s.now().UTC(),
	}

	if executesNow(trade, price) {
		if err := s.settle(ctx, &trade); err != nil {
			return portfolio.Trade{}, err
		}
	}

	created, err := s.store.CreateTrade(ctx, trade)
	if err != nil {
		return portfolio.Trade{}, err
	}
	if created.Status == portfolio.StatusCompleted {
		s.notifyFill(ctx, created)
		s.mirrorLive(ctx, created)
	}
	metrics.RecordOrder(string(created.Status))
	s.log.WithField("trade", created.ID).WithField("status", string(created.Status)).Info("order booked")
	return created, nil
}

// mirrorLive forwards a completed paper fill to the user's live brokerage
// account. Failures are logged and never affect the simulated book.
func (s *Service) mirrorLive(ctx context.Context, trade portfolio.Trade) {
	if s.broker == nil || s.users == nil {
		return
	}
	u, err := s.users.GetUser(ctx, trade.UserID)
	if err != nil || !u.LiveTrading || !u.HasBrokerCredentials() {
		return
	}

	order, err := s.broker.SubmitOrder(ctx, u.BrokerKey, u.BrokerSecret, brokerage.OrderRequest{
		Symbol:      trade.Symbol,
		Quantity:    trade.Quantity,
		Side:        string(trade.Action),
		Type:        string(trade.OrderType),
		TimeInForce: string(trade.TimeInForce),
		LimitPrice:  trade.LimitPrice,
		StopPrice:   trade.StopPrice,
	})
	if err != nil {
		s.log.WithError(err).WithField("trade", trade.ID).Warn("live mirror failed")
		return
	}
	s.log.WithField("trade", trade.ID).WithField("live_order", order.ID).Info("order mirrored to live account")
}

// LiveSnapshot is the linked account state as reported by the brokerage.
type LiveSnapshot struct {
	Account   brokerage.Account    `json:"account"`
	Positions []brokerage.Position `json:"positions"`
	Orders    []brokerage.Order    `json:"open_orders"`
}

// LiveAccount fetches the user's linked brokerage account, positions and open
// orders. The account call must succeed; positions and orders degrade to
// empty on failure.
func (s *Service) LiveAccount(ctx context.Context, userID string) (LiveSnapshot, error) {
	if s.broker == nil || s.users == nil {
		return LiveSnapshot{}, ErrNoLinkedBroker
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return LiveSnapshot{}, fmt.Errorf("load user: %w", err)
	}
	if !u.HasBrokerCredentials() {
		return LiveSnapshot{}, ErrNoLinkedBroker
	}

	account, err := s.broker.GetAccount(ctx, u.BrokerKey, u.BrokerSecret)
	if err != nil {
		return LiveSnapshot{}, fmt.Errorf("brokerage account: %w", err)
	}
	positions, err := s.broker.GetPositions(ctx, u.BrokerKey, u.BrokerSecret)
	if err != nil {
		s.log.WithError(err).WithField("user", userID).Warn("brokerage positions unavailable")
	}
	orders, err := s.broker.ListOrders(ctx, u.BrokerKey, u.BrokerSecret)
	if err != nil {
		s.log.WithError(err).WithField("user", userID).Warn("brokerage orders unavailable")
	}
	return LiveSnapshot{Account: account, Positions: positions, Orders: orders}, nil
}

func checkTierLimits(tier user.Tier, orderType portfolio.OrderType, totalValue float64) error {
	switch tier {
	case user.TierAdmin:
		return nil
	case user.TierPro:
		if totalValue > ProTierMaxTradeValue {
			return fmt.Errorf("trade value %.2f exceeds pro tier limit of %d", totalValue, ProTierMaxTradeValue)
		}
	default:
		if totalValue > FreeTierMaxTradeValue {
			return fmt.Errorf("trade value %.2f exceeds free tier limit of %d", totalValue, FreeTierMaxTradeValue)
		}
		if orderType == portfolio.OrderStop || orderType == portfolio.OrderStopLimit {
			return fmt.Errorf("stop orders require a pro subscription")
		}
	}
	return nil
}

// executesNow reports whether an order fills immediately at the given market
// price.
func executesNow(t portfolio.Trade, price float64) bool {
	switch t.OrderType {
	case portfolio.OrderMarket:
		return true
	case portfolio.OrderLimit:
		if t.Action == portfolio.SideBuy {
			return price <= *t.LimitPrice
		}
		return price >= *t.LimitPrice
	default:
		// Stop orders never fill on entry; they wait for the trigger.
		return false
	}
}

// settle moves cash for a fill and flips the trade to completed. Cash and
// position checks happen here so pending orders are re-validated at
// execution time.
func (s *Service) settle(ctx context.Context, trade *portfolio.Trade) error {
	p, err := s.store.GetPortfolio(ctx, trade.UserID)
	if err != nil {
		return fmt.Errorf("portfolio: %w", err)
	}

	if trade.Action == portfolio.SideBuy {
		cost := trade.TotalValue + trade.Fee
		if p.CashBalance < cost {
			return fmt.Errorf("insufficient funds: need %.2f, have %.2f", cost, p.CashBalance)
		}
		p.CashBalance -= cost
	} else {
		held, err := s.heldQuantity(ctx, trade.UserID, trade.Symbol)
		if err != nil {
			return err
		}
		if held < trade.Quantity {
			return fmt.Errorf("insufficient position: hold %.4f %s, selling %.4f", held, trade.Symbol, trade.Quantity)
		}
		p.CashBalance += trade.TotalValue - trade.Fee
	}

	if _, err := s.store.UpdatePortfolio(ctx, p); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	trade.Status = portfolio.StatusCompleted
	trade.ExecutedAt = s.now().UTC()
	return nil
}

func (s *Service) heldQuantity(ctx context.Context, userID, symbol string) (float64, error) {
	trades, err := s.store.ListTrades(ctx, userID)
	if err != nil {
		return 0, err
	}
	var held float64
	for _, t := range trades {
		if t.Symbol != symbol || t.Status != portfolio.StatusCompleted {
			continue
		}
		if t.Action == portfolio.SideBuy {
			held += t.Quantity
		} else {
			held -= t.Quantity
		}
	}
	return held, nil
}

// CancelOrder cancels a pending order. Completed trades cannot be cancelled.
func (s *Service) CancelOrder(ctx context.Context, userID, tradeID string) (portfolio.Trade, error) {
	trade, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return portfolio.Trade{}, err
	}
	if trade.UserID != userID {
		return portfolio.Trade{}, fmt.Errorf("trade %s not found", tradeID)
	}
	if trade.Status != portfolio.StatusPending {
		return portfolio.Trade{}, fmt.Errorf("trade %s is %s, only pending orders cancel", tradeID, trade.Status)
	}
	trade.Status = portfolio.StatusCancelled
	return s.store.UpdateTrade(ctx, trade)
}

// Trades lists the user's trade history, newest first.
func (s *Service) Trades(ctx context.Context, userID string) ([]portfolio.Trade, error) {
	return s.store.ListTrades(ctx, userID)
}

// ProcessPendingOrders walks resting orders and fills any whose trigger
// condition the current market satisfies. It returns the number filled.
// Orders that trigger but fail settlement are rejected rather than left
// resting.
func (s *Service) ProcessPendingOrders(ctx context.Context) (int, error) {
	pending, err := s.store.ListTradesByStatus(ctx, portfolio.StatusPending)
	if err != nil {
		return 0, err
	}

	filled := 0
	for _, trade := range pending {
		quote, err := s.quotes.Quote(ctx, trade.Symbol, trade.Type)
		if err != nil {
			s.log.WithError(err).WithField("symbol", trade.Symbol).Debug("no quote for pending order")
			continue
		}
		if !triggered(trade, quote.Price) {
			continue
		}

		// Fill at the current market price, not the entry price.
		trade.Price = quote.Price
		trade.TotalValue = quote.Price * trade.Quantity
		trade.Fee = Fee(trade.TotalValue)

		if err := s.settle(ctx, &trade); err != nil {
			s.log.WithError(err).WithField("trade", trade.ID).Warn("pending order rejected at execution")
			trade.Status = portfolio.StatusRejected
		}
		if _, err := s.store.UpdateTrade(ctx, trade); err != nil {
			s.log.WithError(err).WithField("trade", trade.ID).Error("update pending order failed")
			continue
		}
		metrics.RecordOrder(string(trade.Status))
		if trade.Status == portfolio.StatusCompleted {
			filled++
			s.notifyFill(ctx, trade)
		}
	}
	return filled, nil
}

// triggered reports whether a resting order's condition is met at price.
func triggered(t portfolio.Trade, price float64) bool {
	switch t.OrderType {
	case portfolio.OrderLimit:
		if t.Action == portfolio.SideBuy {
			return price <= *t.LimitPrice
		}
		return price >= *t.LimitPrice
	case portfolio.OrderStop:
		if t.Action == portfolio.SideBuy {
			return price >= *t.StopPrice
		}
		return price <= *t.StopPrice
	case portfolio.OrderStopLimit:
		stopHit := (t.Action == portfolio.SideBuy && price >= *t.StopPrice) ||
			(t.Action == portfolio.SideSell && price <= *t.StopPrice)
		if !stopHit {
			return false
		}
		if t.Action == portfolio.SideBuy {
			return price <= *t.LimitPrice
		}
		return price >= *t.LimitPrice
	default:
		return false
	}
}

// Positions derives current holdings from the completed trade history and
// decorates them with live prices.
func (s *Service) Positions(ctx context.Context, userID string) ([]portfolio.Position, error) {
	trades, err := s.store.ListTrades(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Oldest first so average cost accumulates in order.
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].ExecutedAt.Before(trades[j].ExecutedAt)
	})

	type holding struct {
		typ      asset.Type
		quantity float64
		avgPrice float64
	}
	holdings := make(map[string]*holding)
	var order []string

	for _, t := range trades {
		if t.Status != portfolio.StatusCompleted {
			continue
		}
		h, ok := holdings[t.Symbol]
		if !ok {
			h = &holding{typ: t.Type}
			holdings[t.Symbol] = h
			order = append(order, t.Symbol)
		}
		if t.Action == portfolio.SideBuy {
			newQty := h.quantity + t.Quantity
			h.avgPrice = (h.avgPrice*h.quantity + t.Price*t.Quantity) / newQty
			h.quantity = newQty
		} else {
			h.quantity -= t.Quantity
		}
	}

	var positions []portfolio.Position
	for _, symbol := range order {
		h := holdings[symbol]
		if h.quantity <= 0 {
			continue
		}
		pos := portfolio.Position{
			Symbol:   symbol,
			Name:     symbol,
			Type:     h.typ,
			Quantity: h.quantity,
			AvgPrice: h.avgPrice,
		}
		if quote, err := s.quotes.Quote(ctx, symbol, h.typ); err == nil {
			pos.Name = quote.Name
			pos.CurrentPrice = quote.Price
			pos.TotalValue = quote.Price * h.quantity
			pos.UnrealizedPnL = (quote.Price - h.avgPrice) * h.quantity
			if h.avgPrice > 0 {
				pos.UnrealizedPnLPercent = (quote.Price - h.avgPrice) / h.avgPrice * 100
			}
		} else {
			// Keep the position visible even when no source has a price.
			pos.TotalValue = h.avgPrice * h.quantity
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// Snapshot aggregates cash and positions into the dashboard view.
func (s *Service) Snapshot(ctx context.Context, userID string) (portfolio.Snapshot, error) {
	p, err := s.store.GetPortfolio(ctx, userID)
	if err != nil {
		return portfolio.Snapshot{}, err
	}
	positions, err := s.Positions(ctx, userID)
	if err != nil {
		return portfolio.Snapshot{}, err
	}

	snap := portfolio.Snapshot{
		CashBalance: p.CashBalance,
		Positions:   positions,
	}
	snap.TotalValue = p.CashBalance
	for _, pos := range positions {
		snap.TotalValue += pos.TotalValue
		if quote, err := s.quotes.Quote(ctx, pos.Symbol, pos.Type); err == nil {
			snap.DailyReturn += quote.Change * pos.Quantity
		}
	}
	if p.InitialBalance > 0 {
		snap.TotalReturn = (snap.TotalValue - p.InitialBalance) / p.InitialBalance * 100
	}
	return snap, nil
}

func (s *Service) notifyFill(ctx context.Context, trade portfolio.Trade) {
	if s.notifications == nil {
		return
	}
	_, err := s.notifications.CreateNotification(ctx, notification.Notification{
		UserID:  trade.UserID,
		Title:   "Trade executed",
		Message: fmt.Sprintf("%s %g %s @ %.2f", trade.Action, trade.Quantity, trade.Symbol, trade.Price),
		Type:    "trade",
		Data: map[string]string{
			"trade_id": trade.ID,
			"symbol":   trade.Symbol,
		},
	})
	if err != nil {
		s.log.WithError(err).WithField("trade", trade.ID).Warn("fill notification failed")
	}
}
