/*
scheduler.go - Periodic balance recompute

PURPOSE:
  Accrual is a function of the date, so cached balances go stale when a
  month ends (monthly mode) or a year turns over. The scheduler rewrites
  them on a fixed interval.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on Start
  - Recompute derives every balance from the roster and the approved
    requests, so running it twice gives the same result

CONFIGURATION:
  - Interval: How often to recompute (default: 1 hour)
  - Enabled:  Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewRecomputeScheduler(ledger, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Recompute endpoint (manual run)
  - timeoff/ledger.go: Ledger.Recompute
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-tracker/timeoff"
)

// RecomputeScheduler refreshes cached balances on a ticker.
type RecomputeScheduler struct {
	Ledger   *timeoff.Ledger
	Interval time.Duration
	Enabled  bool

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRecomputeScheduler creates a new scheduler.
func NewRecomputeScheduler(ledger *timeoff.Ledger, logger *zap.Logger) *RecomputeScheduler {
	if logger == nil {
		logger = zap.L()
	}
	return &RecomputeScheduler{
		Ledger:   ledger,
		Interval: 1 * time.Hour,
		Enabled:  true,
		logger:   logger.Named("scheduler"),
	}
}

// Start begins the scheduler.
func (rs *RecomputeScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.Interval <= 0 {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.logger.Info("started", zap.Duration("interval", rs.Interval))
}

// Stop stops the scheduler and waits for a running recompute to finish.
func (rs *RecomputeScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("stopped")
	}
}

func (rs *RecomputeScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow()

	for {
		select {
		case <-ticker.C:
			rs.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow recomputes every cached balance as of today.
func (rs *RecomputeScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := rs.Ledger.Recompute(ctx, rs.Ledger.Today())
	if err != nil {
		rs.logger.Error("recompute failed", zap.Error(err))
		return
	}
	rs.logger.Debug("recompute complete", zap.Int("employees", n))
}
