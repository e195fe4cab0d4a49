// Package jobs runs the background sweeps: alert evaluation and pending
// order execution.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alphadesk/alphadesk/internal/app/system"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

var _ system.Service = (*Scheduler)(nil)

// AlertEvaluator sweeps active alerts against current prices.
type AlertEvaluator interface {
	Evaluate(ctx context.Context) (int, error)
}

// OrderProcessor fills resting orders whose trigger condition is met.
type OrderProcessor interface {
	ProcessPendingOrders(ctx context.Context) (int, error)
}

const (
	alertSchedule = "@every 30s"
	orderSchedule = "@every 15s"
	sweepTimeout  = 20 * time.Second
)

// Scheduler drives the periodic sweeps on cron schedules. Either dependency
// may be nil, in which case its sweep is not registered.
type Scheduler struct {
	alerts AlertEvaluator
	orders OrderProcessor
	log    *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewScheduler creates a lifecycle-managed sweep scheduler.
func NewScheduler(alerts AlertEvaluator, orders OrderProcessor, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("jobs")
	}
	return &Scheduler{alerts: alerts, orders: orders, log: log}
}

func (s *Scheduler) Name() string { return "job-scheduler" }

// Start registers the sweeps and begins the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if s.alerts != nil {
		if _, err := c.AddFunc(alertSchedule, func() { s.sweepAlerts() }); err != nil {
			return fmt.Errorf("schedule alert sweep: %w", err)
		}
	}
	if s.orders != nil {
		if _, err := c.AddFunc(orderSchedule, func() { s.sweepOrders() }); err != nil {
			return fmt.Errorf("schedule order sweep: %w", err)
		}
	}

	c.Start()
	s.cron = c
	s.running = true
	s.log.Info("job scheduler started")
	return nil
}

// Stop halts the cron loop and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.log.Info("job scheduler stopped")
	return nil
}

func (s *Scheduler) sweepAlerts() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	fired, err := s.alerts.Evaluate(ctx)
	if err != nil {
		s.log.WithError(err).Warn("alert sweep failed")
		return
	}
	if fired > 0 {
		s.log.WithField("fired", fired).Info("alerts fired")
	}
}

func (s *Scheduler) sweepOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	filled, err := s.orders.ProcessPendingOrders(ctx)
	if err != nil {
		s.log.WithError(err).Warn("pending order sweep failed")
		return
	}
	if filled > 0 {
		s.log.WithField("filled", filled).Info("pending orders filled")
	}
}
