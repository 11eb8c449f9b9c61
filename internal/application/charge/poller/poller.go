// Package poller drives repeated status checks for a single charge until it
// settles, expires, or the polling window closes.
package poller

import (
	"context"
	"time"

	"pixgate/internal/application/charge/usecases"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

// StatusChecker answers one status check for a charge.
type StatusChecker interface {
	Execute(ctx context.Context, transactionID string) (*usecases.ChargeStatusView, error)
}

// Outcome is the terminal result of a polling run.
type Outcome string

const (
	// OutcomePaid means the charge settled while polling.
	OutcomePaid Outcome = "paid"
	// OutcomeExpired means the charge's payment window closed while polling.
	OutcomeExpired Outcome = "expired"
	// OutcomeTimeout means the polling window closed with the charge still pending.
	OutcomeTimeout Outcome = "timeout"
)

// Result reports how a polling run ended.
type Result struct {
	Outcome Outcome
	View    *usecases.ChargeStatusView
}

// Poller repeatedly checks charge status at a fixed interval.
type Poller struct {
	checker  StatusChecker
	interval time.Duration
	timeout  time.Duration
	logger   logger.Interface
}

// New creates a Poller. Non-positive interval or timeout fall back to
// 2 seconds and 5 minutes.
func New(checker StatusChecker, interval, timeout time.Duration, logger logger.Interface) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Poller{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// PollUntilSettled checks the charge immediately and then on every tick until
// a terminal answer arrives. Transient check failures are logged and retried
// on the next tick; only context cancellation aborts the run with an error.
func (p *Poller) PollUntilSettled(ctx context.Context, transactionID string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastView *usecases.ChargeStatusView
	for {
		view, err := p.checker.Execute(ctx, transactionID)
		switch {
		case err != nil && errors.IsNotFoundError(err):
			// An unknown charge will not appear by waiting.
			return nil, err
		case err != nil && ctx.Err() == nil:
			p.logger.Warnw("status check failed, will retry",
				"transaction_id", transactionID,
				"error", err,
			)
		case err == nil:
			lastView = view
			switch view.Status {
			case valueobjects.ChargeStatusPaid:
				return &Result{Outcome: OutcomePaid, View: view}, nil
			case valueobjects.ChargeStatusExpired:
				return &Result{Outcome: OutcomeExpired, View: view}, nil
			}
		}

		select {
		case <-ctx.Done():
			// Caller cancellation aborts; our own deadline is the timeout outcome.
			if ctx.Err() == context.Canceled {
				return nil, ctx.Err()
			}
			return &Result{Outcome: OutcomeTimeout, View: lastView}, nil
		case <-ticker.C:
		}
	}
}
