// Package alerts manages price alerts and the sweep that fires them.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/alphadesk/alphadesk/internal/app/domain/alert"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/notification"
	"github.com/alphadesk/alphadesk/internal/app/metrics"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// QuoteSource supplies current prices for alert evaluation.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string, typ asset.Type) (asset.Quote, error)
}

// Service manages alert lifecycle and evaluation.
type Service struct {
	store         storage.AlertStore
	quotes        QuoteSource
	notifications storage.NotificationStore
	log           *logger.Logger
	now           func() time.Time
}

// New constructs the alerts service.
func New(store storage.AlertStore, quotes QuoteSource, notifications storage.NotificationStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("alerts")
	}
	return &Service{
		store:         store,
		quotes:        quotes,
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

// Create registers a new active alert.
func (s *Service) Create(ctx context.Context, userID, symbol string, typ asset.Type, condition alert.Condition, target float64) (alert.Alert, error) {
	symbol = asset.NormalizeSymbol(symbol)
	if symbol == "" {
		return alert.Alert{}, fmt.Errorf("symbol required")
	}
	if condition != alert.ConditionAbove && condition != alert.ConditionBelow {
		return alert.Alert{}, fmt.Errorf("invalid condition %q", condition)
	}
	if target <= 0 {
		return alert.Alert{}, fmt.Errorf("target price must be positive")
	}
	return s.store.CreateAlert(ctx, alert.Alert{
		UserID:      userID,
		Symbol:      symbol,
		Type:        typ,
		Condition:   condition,
		TargetPrice: target,
		Active:      true,
	})
}

// List returns the user's alerts.
func (s *Service) List(ctx context.Context, userID string) ([]alert.Alert, error) {
	return s.store.ListAlerts(ctx, userID)
}

// Delete removes an alert owned by the user.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	a, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if a.UserID != userID {
		return fmt.Errorf("alert %s not found", id)
	}
	return s.store.DeleteAlert(ctx, id)
}

// SetActive re-arms or pauses an alert. Re-arming clears the triggered flag
// so the alert can fire again.
func (s *Service) SetActive(ctx context.Context, userID, id string, active bool) (alert.Alert, error) {
	a, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return alert.Alert{}, err
	}
	if a.UserID != userID {
		return alert.Alert{}, fmt.Errorf("alert %s not found", id)
	}
	a.Active = active
	if active {
		a.Triggered = false
		a.TriggeredAt = nil
	}
	return s.store.UpdateAlert(ctx, a)
}

// Evaluate sweeps active untriggered alerts against current prices. Each
// alert fires at most once: a hit deactivates it and posts a notification.
// Quote failures skip the alert until the next sweep. Returns the number
// fired.
func (s *Service) Evaluate(ctx context.Context) (int, error) {
	active, err := s.store.ListActiveAlerts(ctx)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, a := range active {
		quote, err := s.quotes.Quote(ctx, a.Symbol, a.Type)
		if err != nil {
			s.log.WithError(err).WithField("symbol", a.Symbol).Debug("alert quote unavailable")
			continue
		}
		if !a.Satisfied(quote.Price) {
			continue
		}

		when := s.now().UTC()
		a.Triggered = true
		a.TriggeredAt = &when
		a.Active = false
		if _, err := s.store.UpdateAlert(ctx, a); err != nil {
			s.log.WithError(err).WithField("alert", a.ID).Error("mark alert triggered failed")
			continue
		}
		fired++
		metrics.RecordAlertFired()
		s.notify(ctx, a, quote.Price)
	}
	return fired, nil
}

func (s *Service) notify(ctx context.Context, a alert.Alert, price float64) {
	if s.notifications == nil {
		return
	}
	_, err := s.notifications.CreateNotification(ctx, notification.Notification{
		UserID:  a.UserID,
		Title:   fmt.Sprintf("%s price alert", a.Symbol),
		Message: fmt.Sprintf("%s is %.2f, %s your target of %.2f", a.Symbol, price, a.Condition, a.TargetPrice),
		Type:    "alert",
		Data: map[string]string{
			"alert_id": a.ID,
			"symbol":   a.Symbol,
		},
	})
	if err != nil {
		s.log.WithError(err).WithField("alert", a.ID).Warn("alert notification failed")
	}
}
