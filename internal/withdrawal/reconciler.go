package withdrawal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reconciler periodically advances stale withdrawals. Only one sweep is in
// flight at a time: the run loop blocks on the current sweep, so a slow sweep
// delays the next tick rather than overlapping it.
type Reconciler struct {
	repo       Repository
	lifecycle  *Lifecycle
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
}

// NewReconciler constructs the reconciliation scheduler. staleAfter is how
// old a withdrawal must be before a sweep acts on it.
func NewReconciler(repo Repository, lifecycle *Lifecycle, interval, staleAfter time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		repo:       repo,
		lifecycle:  lifecycle,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// Run sweeps on every tick until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("withdrawal reconciler started",
		"interval", r.interval.String(), "stale_after", r.staleAfter.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("withdrawal reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep queries withdrawals older than the stale threshold, partitioned by
// status, and invokes the matching lifecycle handler on each record. Records
// are processed concurrently and independently: one failing handler is
// logged and skipped, never failing the sweep, and the next sweep retries it.
func (r *Reconciler) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.staleAfter)

	for _, status := range []Status{StatusCreated, StatusInProgress, StatusFailed} {
		stale, err := r.repo.ListStale(ctx, status, cutoff)
		if err != nil {
			r.logger.Error("list stale withdrawals", "status", string(status), "error", err)
			continue
		}

		var wg sync.WaitGroup
		for _, w := range stale {
			w := w
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := r.process(ctx, w); err != nil {
					r.logger.Error("reconcile withdrawal",
						"withdrawal_id", w.ID, "status", string(w.Status), "error", err)
				}
			}()
		}
		wg.Wait()
	}
}

func (r *Reconciler) process(ctx context.Context, w Withdrawal) error {
	switch w.Status {
	case StatusCreated:
		return r.lifecycle.ProcessCreated(ctx, w)
	case StatusInProgress:
		return r.lifecycle.ProcessInProgress(ctx, w)
	case StatusFailed:
		return r.lifecycle.ProcessFailed(ctx, w)
	default:
		return nil
	}
}
