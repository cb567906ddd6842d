package application

import (
	"context"
	"errors"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultSweepBatch    = 100
	DefaultSweepInterval = 5 * time.Minute

	sweepLockKey = "lock:order-sweep"
)

// ErrSweepLeaseLost stops a run whose distributed lease expired or could
// not be renewed; another instance may already be sweeping.
var ErrSweepLeaseLost = errors.New("order sweep lease lost")

// SweepResult summarizes one sweep run. Skipped is 1 when the run did not
// start because another sweep held the guard.
type SweepResult struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// OrderSweepConfig tunes the sweep
type OrderSweepConfig struct {
	// BatchSize is the page size; one run pages through every pending record
	BatchSize int
	// LockTTL is the lease granted on acquire and on every renewal. The
	// lease is renewed before each page and each delivery, so it must
	// exceed a single delivery timeout.
	LockTTL time.Duration
	// Retryable classifies delivery errors; permanent ones are logged at
	// error level. Nil treats every error as retryable.
	Retryable func(error) bool
}

// OrderSweep forwards unprocessed order records to the downstream consumer
type OrderSweep struct {
	orders   ports.OrderRepository
	consumer ports.OrderConsumer
	locker   ports.Locker
	metrics  ports.Metrics
	cfg      OrderSweepConfig
	running  *semaphore.Weighted
	logger   zerolog.Logger
	now      func() time.Time
}

// NewOrderSweep creates the sweep. locker and metrics may be nil.
func NewOrderSweep(
	orders ports.OrderRepository,
	consumer ports.OrderConsumer,
	locker ports.Locker,
	metrics ports.Metrics,
	cfg OrderSweepConfig,
	logger zerolog.Logger,
) *OrderSweep {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultSweepBatch
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &OrderSweep{
		orders:   orders,
		consumer: consumer,
		locker:   locker,
		metrics:  metrics,
		cfg:      cfg,
		running:  semaphore.NewWeighted(1),
		logger:   logger,
		now:      time.Now,
	}
}

// Run performs one sweep. It returns immediately with Skipped set when a
// sweep is already in flight in this process or on another instance.
func (s *OrderSweep) Run(ctx context.Context) (SweepResult, error) {
	if !s.running.TryAcquire(1) {
		s.logger.Debug().Msg("Order sweep already running, skipping")
		s.finished("skipped", 0)
		return SweepResult{Skipped: 1}, nil
	}
	defer s.running.Release(1)

	var lease ports.Lease
	if s.locker != nil {
		var err error
		lease, err = s.locker.TryLock(ctx, sweepLockKey, s.cfg.LockTTL)
		if err != nil {
			s.finished("error", 0)
			return SweepResult{}, domain.NewPersistenceError("failed to acquire sweep lock", err)
		}
		if lease == nil {
			s.logger.Debug().Msg("Order sweep held by another instance, skipping")
			s.finished("skipped", 0)
			return SweepResult{Skipped: 1}, nil
		}
		defer func() {
			if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to release sweep lock")
			}
		}()
	}

	started := s.now()
	result, err := s.sweep(ctx, lease)
	elapsed := s.now().Sub(started).Seconds()
	if errors.Is(err, ErrSweepLeaseLost) {
		s.finished("lease_lost", elapsed)
		s.logger.Warn().
			Int("attempted", result.Attempted).
			Int("delivered", result.Delivered).
			Msg("Order sweep lease lost, stopping")
		return result, err
	}
	if err != nil {
		s.finished("error", elapsed)
		return result, err
	}

	s.finished("completed", elapsed)
	s.logger.Info().
		Int("attempted", result.Attempted).
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Float64("seconds", elapsed).
		Msg("Order sweep finished")
	return result, nil
}

// sweep pages through every pending record once, in id order. Failed
// records stay pending but no longer hold back the records behind them.
func (s *OrderSweep) sweep(ctx context.Context, lease ports.Lease) (SweepResult, error) {
	var result SweepResult

	after := ""
	for {
		if err := s.renew(ctx, lease); err != nil {
			return result, err
		}
		page, err := s.orders.FindPending(ctx, after, s.cfg.BatchSize)
		if err != nil {
			return result, domain.NewPersistenceError("failed to load pending orders", err)
		}

		for _, order := range page {
			if err := s.renew(ctx, lease); err != nil {
				return result, err
			}
			result.Attempted++
			s.deliver(ctx, order, &result)
		}

		if len(page) < s.cfg.BatchSize {
			return result, nil
		}
		after = page[len(page)-1].ID
	}
}

// renew extends the lease before more work is started under it
func (s *OrderSweep) renew(ctx context.Context, lease ports.Lease) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if lease == nil {
		return nil
	}
	ok, err := lease.Extend(ctx, s.cfg.LockTTL)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to renew sweep lease")
		return ErrSweepLeaseLost
	}
	if !ok {
		return ErrSweepLeaseLost
	}
	return nil
}

func (s *OrderSweep) deliver(ctx context.Context, order *domain.Order, result *SweepResult) {
	log := s.logger.With().
		Str("id", order.ID).
		Str("orderId", order.OrderID).
		Str("topic", order.WebhookInfo.Topic).
		Str("shop", order.WebhookInfo.ShopDomain).
		Logger()

	if err := s.consumer.Deliver(ctx, order); err != nil {
		result.Failed++
		s.delivery("failed")
		event := log.Warn()
		if s.cfg.Retryable != nil && !s.cfg.Retryable(err) {
			event = log.Error()
		}
		event.Err(err).Int("attempts", order.Attempts+1).Msg("Failed to deliver order")
		if rerr := s.orders.RecordFailure(ctx, order.ID, err.Error()); rerr != nil {
			log.Error().Err(rerr).Msg("Failed to record delivery failure")
		}
		return
	}

	if err := s.orders.MarkProcessed(ctx, order.ID, s.now().UTC()); err != nil {
		// delivered but not marked: the next sweep redelivers
		result.Failed++
		s.delivery("unmarked")
		log.Error().Err(err).Msg("Failed to mark order processed")
		return
	}
	result.Delivered++
	s.delivery("delivered")
	log.Debug().Msg("Order delivered")
}

// Start runs the sweep every interval until ctx is done. A receive on wake
// triggers an early run; overlapping triggers collapse into the running
// sweep.
func (s *OrderSweep) Start(ctx context.Context, interval time.Duration, wake <-chan *domain.WebhookEvent) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("Order sweep scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Order sweep scheduler stopped")
			return
		case <-ticker.C:
			s.runAsync(ctx)
		case event, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			s.logger.Debug().Str("topic", string(event.Topic)).Msg("Order event received, sweeping early")
			s.runAsync(ctx)
		}
	}
}

func (s *OrderSweep) runAsync(ctx context.Context) {
	go func() {
		if _, err := s.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Order sweep failed")
		}
	}()
}

func (s *OrderSweep) finished(outcome string, seconds float64) {
	if s.metrics != nil {
		s.metrics.SweepFinished(outcome, seconds)
	}
}

func (s *OrderSweep) delivery(outcome string) {
	if s.metrics != nil {
		s.metrics.OrderDelivery(outcome)
	}
}
