// Package usecases implements the application services for the charge
// lifecycle: creation, status checks, and settlement reconciliation.
package usecases

import (
	"context"
	"fmt"
	"time"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/domain/charge"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

// Observation is a provider-side report about a charge, regardless of how it
// arrived (webhook delivery, polling tick, or the stale-charge sweep).
type Observation struct {
	ExternalID  string
	Status      string
	AmountCents int64
	PaymentID   string
	PaymentDate *time.Time
	PayerName   string
	PayerTaxID  string
	// Source labels the observation channel for logs: "webhook", "poll", "sweep".
	Source string
}

// ReconcileResult reports what the engine did with an observation.
type ReconcileResult struct {
	// Transitioned is true when this observation performed the pending→paid
	// transition.
	Transitioned bool
	// AlreadySettled is true when the charge was paid before this observation
	// arrived; the observation is acknowledged as a no-op replay.
	AlreadySettled bool
	Charge         *charge.Charge
}

// MismatchNotifier alerts an operator when an observed amount disagrees with
// the stored charge. Settlement is withheld in that case.
type MismatchNotifier interface {
	NotifyAmountMismatch(ctx context.Context, c *charge.Charge, observedCents int64, source string)
}

// TxManager runs a function inside a database transaction. Satisfied by
// db.TransactionManager.
type TxManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReconcileObservationUseCase folds provider observations into stored charge
// state. All settlement paths converge here so the at-most-once guarantee
// lives in exactly one place.
type ReconcileObservationUseCase struct {
	chargeRepo charge.Repository
	txMgr      TxManager
	notifier   MismatchNotifier
	logger     logger.Interface
}

// NewReconcileObservationUseCase creates the reconciliation engine.
// notifier may be nil when no operator alerting is configured.
func NewReconcileObservationUseCase(
	chargeRepo charge.Repository,
	txMgr TxManager,
	notifier MismatchNotifier,
	logger logger.Interface,
) *ReconcileObservationUseCase {
	return &ReconcileObservationUseCase{
		chargeRepo: chargeRepo,
		txMgr:      txMgr,
		notifier:   notifier,
		logger:     logger,
	}
}

// Execute applies one observation. The sequence is:
//  1. resolve the charge by external id
//  2. map the provider status; non-settled statuses are no-ops
//  3. verify the observed amount matches the stored amount exactly
//  4. conditionally settle; losing the write means a concurrent observer won
//
// A late settlement for a charge past its window still settles: the money
// moved, and expiry is only a read-time view.
func (uc *ReconcileObservationUseCase) Execute(ctx context.Context, obs Observation) (*ReconcileResult, error) {
	if obs.ExternalID == "" {
		return nil, errors.NewValidationError("external id is required", "")
	}

	c, err := uc.chargeRepo.GetByExternalID(ctx, obs.ExternalID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			uc.logger.Warnw("observation for unknown charge",
				"external_id", obs.ExternalID,
				"source", obs.Source,
			)
		}
		return nil, err
	}

	status, known := gateway.MapStatus(obs.Status)
	if !known {
		uc.logger.Warnw("unrecognized provider status, treating as pending",
			"external_id", obs.ExternalID,
			"provider_status", obs.Status,
			"source", obs.Source,
		)
	}
	if !status.IsPaid() {
		return &ReconcileResult{Charge: c}, nil
	}

	if c.Status().IsPaid() {
		uc.logger.Debugw("observation replay for settled charge",
			"external_id", obs.ExternalID,
			"source", obs.Source,
		)
		return &ReconcileResult{AlreadySettled: true, Charge: c}, nil
	}

	if obs.AmountCents != c.Amount().Cents() {
		uc.logger.Errorw("observed amount does not match charge",
			"external_id", obs.ExternalID,
			"expected_cents", c.Amount().Cents(),
			"observed_cents", obs.AmountCents,
			"source", obs.Source,
		)
		if uc.notifier != nil {
			uc.notifier.NotifyAmountMismatch(ctx, c, obs.AmountCents, obs.Source)
		}
		return nil, errors.NewAmountMismatchError(
			"observed amount does not match charge",
			fmt.Sprintf("expected %d, observed %d", c.Amount().Cents(), obs.AmountCents),
		)
	}

	settlement := charge.Settlement{
		PaymentID:   obs.PaymentID,
		PaymentDate: uc.paymentDate(obs),
		PayerName:   obs.PayerName,
		PayerTaxID:  obs.PayerTaxID,
	}

	// The conditional write and the re-read run in one transaction so the
	// returned charge reflects this observation's own outcome.
	var (
		won     bool
		updated *charge.Charge
	)
	txErr := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		var err error
		won, err = uc.chargeRepo.SettleIfPending(txCtx, obs.ExternalID, settlement)
		if err != nil {
			return err
		}
		updated, err = uc.chargeRepo.GetByExternalID(txCtx, obs.ExternalID)
		return err
	})
	if txErr != nil {
		return nil, errors.NewInternalError("failed to settle charge", txErr.Error())
	}

	if !won {
		// A concurrent observer settled first. This is the expected outcome
		// of the webhook-vs-poll race, not an error.
		uc.logger.Infow("charge settled by concurrent observer",
			"external_id", obs.ExternalID,
			"source", obs.Source,
		)
		return &ReconcileResult{AlreadySettled: true, Charge: updated}, nil
	}

	uc.logger.Infow("charge settled",
		"external_id", obs.ExternalID,
		"payment_id", obs.PaymentID,
		"amount_cents", obs.AmountCents,
		"source", obs.Source,
	)
	return &ReconcileResult{Transitioned: true, Charge: updated}, nil
}

// paymentDate returns the observed payment time, falling back to the
// observation time when the provider omitted or mangled it.
func (uc *ReconcileObservationUseCase) paymentDate(obs Observation) time.Time {
	if obs.PaymentDate == nil || obs.PaymentDate.IsZero() {
		return biztime.NowUTC()
	}
	return biztime.ToUTC(*obs.PaymentDate)
}
