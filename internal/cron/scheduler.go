package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"shopgate/internal/pkg/alert"
	"shopgate/internal/repository"
)

// Scheduler runs background housekeeping jobs. Nothing here transitions
// order state; the notification verifier stays the only writer.
type Scheduler struct {
	cron       *cron.Cron
	orders     *repository.OrderRepository
	alerter    *alert.Notifier
	staleAfter time.Duration
	logger     *zap.Logger
}

// New creates a new cron scheduler.
func New(orders *repository.OrderRepository, alerter *alert.Notifier, staleAfter time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds()),
		orders:     orders,
		alerter:    alerter,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")

	// Stale pending-order audit - hourly
	s.cron.AddFunc("0 0 * * * *", func() {
		s.logger.Debug("Running: stale pending order audit")
		s.auditStalePending()
	})

	s.cron.Start()
}

// Stop stops the scheduler and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// auditStalePending reports orders that have sat in pending_payment longer
// than the configured window. These are buyers who never completed the
// gateway flow or notifications that never arrived; either way someone
// should look.
func (s *Scheduler) auditStalePending() {
	cutoff := time.Now().Add(-s.staleAfter)

	orders, err := s.orders.FindStalePending(cutoff)
	if err != nil {
		s.logger.Error("stale pending audit query failed", zap.Error(err))
		return
	}
	if len(orders) == 0 {
		return
	}

	for _, order := range orders {
		s.logger.Warn("order stuck in pending_payment",
			zap.String("reference", order.Reference),
			zap.Float64("amount", order.Amount),
			zap.Time("created_at", order.CreatedAt))
	}

	if s.alerter != nil {
		oldest := orders[0].Reference
		if err := s.alerter.StalePendingOrders(len(orders), oldest); err != nil {
			s.logger.Warn("stale pending alert failed", zap.Error(err))
		}
	}
}
