package usecases

import (
	"context"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/domain/charge"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

// sweepBatchSize bounds how many pending charges one sweep pass touches.
const sweepBatchSize = 100

// SweepStaleChargesUseCase reconciles pending charges whose webhook may have
// been missed. It asks the provider for each open charge and routes any
// settlement evidence through the reconciliation engine. Charges past their
// window are left alone; they read as expired and a late webhook can still
// settle them.
type SweepStaleChargesUseCase struct {
	chargeRepo charge.Repository
	gateway    gateway.PixGateway
	reconcile  *ReconcileObservationUseCase
	logger     logger.Interface
}

// NewSweepStaleChargesUseCase creates a new SweepStaleChargesUseCase.
func NewSweepStaleChargesUseCase(
	chargeRepo charge.Repository,
	gw gateway.PixGateway,
	reconcile *ReconcileObservationUseCase,
	logger logger.Interface,
) *SweepStaleChargesUseCase {
	return &SweepStaleChargesUseCase{
		chargeRepo: chargeRepo,
		gateway:    gw,
		reconcile:  reconcile,
		logger:     logger,
	}
}

// Execute runs one sweep pass and returns how many charges settled.
func (uc *SweepStaleChargesUseCase) Execute(ctx context.Context) (int, error) {
	charges, err := uc.chargeRepo.ListStalePending(ctx, biztime.NowUTC(), sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(charges) == 0 {
		return 0, nil
	}

	settled := 0
	for _, c := range charges {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}

		snapshot, err := uc.gateway.GetChargeByTransactionID(ctx, c.TransactionID())
		if err != nil {
			uc.logger.Warnw("sweep status check failed",
				"transaction_id", c.TransactionID(),
				"error", err,
			)
			continue
		}
		if !gateway.IsSettled(snapshot.Status) {
			continue
		}

		if detail, derr := uc.gateway.GetChargeDetail(ctx, c.TransactionID()); derr == nil && detail != nil {
			snapshot = detail
		}

		result, err := uc.reconcile.Execute(ctx, Observation{
			ExternalID:  c.ExternalID(),
			Status:      snapshot.Status,
			AmountCents: snapshot.AmountCents,
			PaymentID:   snapshot.PaymentID,
			PaymentDate: snapshot.PaymentDate,
			PayerName:   snapshot.PayerName,
			PayerTaxID:  snapshot.PayerTaxID,
			Source:      "sweep",
		})
		if err != nil {
			if !errors.IsAmountMismatchError(err) {
				uc.logger.Errorw("sweep reconciliation failed",
					"external_id", c.ExternalID(),
					"error", err,
				)
			}
			continue
		}
		if result.Transitioned {
			settled++
		}
	}

	if settled > 0 {
		uc.logger.Infow("sweep settled stale charges", "count", settled, "checked", len(charges))
	}
	return settled, nil
}
