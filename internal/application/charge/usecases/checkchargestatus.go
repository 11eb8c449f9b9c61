package usecases

import (
	"context"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/domain/charge"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/biztime"
	"pixgate/internal/shared/logger"
)

// ChargeStatusView is the read-model returned by status checks. Status is the
// effective classification: a pending charge past its window reads as expired.
type ChargeStatusView struct {
	Status valueobjects.ChargeStatus
	Charge *charge.Charge
}

// CheckChargeStatusUseCase answers "is it paid yet?". For pending charges it
// consults the provider and routes any settlement evidence through the
// reconciliation engine, so a poll and a webhook converge on the same write.
type CheckChargeStatusUseCase struct {
	chargeRepo charge.Repository
	gateway    gateway.PixGateway
	reconcile  *ReconcileObservationUseCase
	logger     logger.Interface
}

// NewCheckChargeStatusUseCase creates a new CheckChargeStatusUseCase.
func NewCheckChargeStatusUseCase(
	chargeRepo charge.Repository,
	gw gateway.PixGateway,
	reconcile *ReconcileObservationUseCase,
	logger logger.Interface,
) *CheckChargeStatusUseCase {
	return &CheckChargeStatusUseCase{
		chargeRepo: chargeRepo,
		gateway:    gw,
		reconcile:  reconcile,
		logger:     logger,
	}
}

// Execute checks one charge by gateway transaction id.
func (uc *CheckChargeStatusUseCase) Execute(ctx context.Context, transactionID string) (*ChargeStatusView, error) {
	c, err := uc.chargeRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return uc.check(ctx, c)
}

// ExecuteByExternalID checks one charge by correlation id.
func (uc *CheckChargeStatusUseCase) ExecuteByExternalID(ctx context.Context, externalID string) (*ChargeStatusView, error) {
	c, err := uc.chargeRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	return uc.check(ctx, c)
}

func (uc *CheckChargeStatusUseCase) check(ctx context.Context, c *charge.Charge) (*ChargeStatusView, error) {
	if c.Status().IsPaid() {
		return &ChargeStatusView{Status: valueobjects.ChargeStatusPaid, Charge: c}, nil
	}

	snapshot, err := uc.gateway.GetChargeByTransactionID(ctx, c.TransactionID())
	if err != nil {
		// Provider unavailability degrades to the local view; the charge
		// stays pending and a later check or webhook will catch up.
		uc.logger.Warnw("provider status check failed, returning local state",
			"transaction_id", c.TransactionID(),
			"error", err,
		)
		return &ChargeStatusView{Status: c.EffectiveStatus(biztime.NowUTC()), Charge: c}, nil
	}

	if !gateway.IsSettled(snapshot.Status) {
		return &ChargeStatusView{Status: c.EffectiveStatus(biztime.NowUTC()), Charge: c}, nil
	}

	// The provider reports payment but may omit payer identity on the plain
	// status endpoint; the detail view fills it in when available.
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
		Source:      "poll",
	})
	if err != nil {
		return nil, err
	}
	return &ChargeStatusView{Status: result.Charge.EffectiveStatus(biztime.NowUTC()), Charge: result.Charge}, nil
}
