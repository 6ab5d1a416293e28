// Package scheduler runs the periodic billing maintenance jobs: closing
// usage cycles that reached their end and converting expired trials.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CycleCloser generates invoices for usage cycles whose window has ended
type CycleCloser interface {
	CloseEndedCycles(ctx context.Context, now time.Time) (int, error)
}

// TrialSweeper converts trials whose window has expired
type TrialSweeper interface {
	SweepExpiredTrials(ctx context.Context, now time.Time) (int, error)
}

// BillingCycleSchedulerConfig holds configuration for the billing cycle scheduler
type BillingCycleSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// CheckInterval is how often ended cycles and expired trials are swept
	CheckInterval time.Duration

	// JobTimeout is the maximum time for a single sweep run
	JobTimeout time.Duration
}

// DefaultBillingCycleSchedulerConfig returns default configuration
func DefaultBillingCycleSchedulerConfig() BillingCycleSchedulerConfig {
	return BillingCycleSchedulerConfig{
		Enabled:       true,
		CheckInterval: time.Hour,
		JobTimeout:    10 * time.Minute,
	}
}

// BillingCycleScheduler periodically closes ended usage cycles and
// converts expired trials
type BillingCycleScheduler struct {
	cycles    CycleCloser
	trials    TrialSweeper
	logger    *zap.Logger
	config    BillingCycleSchedulerConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewBillingCycleScheduler creates a new billing cycle scheduler
func NewBillingCycleScheduler(
	cycles CycleCloser,
	trials TrialSweeper,
	logger *zap.Logger,
	config BillingCycleSchedulerConfig,
) *BillingCycleScheduler {
	return &BillingCycleScheduler{
		cycles: cycles,
		trials: trials,
		logger: logger,
		config: config,
	}
}

// Start starts the billing cycle scheduler
func (s *BillingCycleScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Billing cycle scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Billing cycle scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *BillingCycleScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Billing cycle scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Billing cycle scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *BillingCycleScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Billing cycle loop stopping")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep runs one maintenance pass. A failure in one job does not
// prevent the other from running.
func (s *BillingCycleScheduler) executeSweep(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	now := time.Now()
	startTime := now

	closed, err := s.cycles.CloseEndedCycles(jobCtx, now)
	if err != nil {
		s.logger.Error("Billing cycle close failed",
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err),
		)
	}

	converted, err := s.trials.SweepExpiredTrials(jobCtx, now)
	if err != nil {
		s.logger.Error("Trial expiration sweep failed",
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err),
		)
	}

	s.logger.Info("Billing maintenance sweep completed",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("cycles_closed", closed),
		zap.Int("trials_converted", converted),
	)
}

// TriggerImmediateSweep triggers a maintenance pass outside the schedule
func (s *BillingCycleScheduler) TriggerImmediateSweep(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("Triggering immediate billing maintenance sweep")

	go func() {
		defer s.wg.Done()
		s.executeSweep(ctx)
	}()

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *BillingCycleScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
