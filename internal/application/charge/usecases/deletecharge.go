package usecases

import (
	"context"

	"pixgate/internal/domain/charge"
	"pixgate/internal/shared/logger"
)

// DeleteChargeUseCase removes a charge record. Deletion is an operator
// action and is not arbitrated by reconciliation; settled charges can be
// removed too.
type DeleteChargeUseCase struct {
	chargeRepo charge.Repository
	logger     logger.Interface
}

// NewDeleteChargeUseCase creates a new DeleteChargeUseCase.
func NewDeleteChargeUseCase(chargeRepo charge.Repository, logger logger.Interface) *DeleteChargeUseCase {
	return &DeleteChargeUseCase{chargeRepo: chargeRepo, logger: logger}
}

// Execute deletes the charge identified by sid.
func (uc *DeleteChargeUseCase) Execute(ctx context.Context, sid string) error {
	c, err := uc.chargeRepo.GetBySID(ctx, sid)
	if err != nil {
		return err
	}
	if err := uc.chargeRepo.Delete(ctx, sid); err != nil {
		return err
	}

	uc.logger.Infow("charge deleted", "sid", sid, "external_id", c.ExternalID())
	return nil
}
