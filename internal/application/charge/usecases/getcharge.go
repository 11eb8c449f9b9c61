package usecases

import (
	"context"

	"pixgate/internal/domain/charge"
	"pixgate/internal/shared/logger"
)

// GetChargeUseCase retrieves a single charge by its public short id.
type GetChargeUseCase struct {
	chargeRepo charge.Repository
	logger     logger.Interface
}

// NewGetChargeUseCase creates a new GetChargeUseCase.
func NewGetChargeUseCase(chargeRepo charge.Repository, logger logger.Interface) *GetChargeUseCase {
	return &GetChargeUseCase{chargeRepo: chargeRepo, logger: logger}
}

// Execute retrieves the charge.
func (uc *GetChargeUseCase) Execute(ctx context.Context, sid string) (*charge.Charge, error) {
	return uc.chargeRepo.GetBySID(ctx, sid)
}

// ExecuteByExternalID retrieves the charge by its correlation id.
func (uc *GetChargeUseCase) ExecuteByExternalID(ctx context.Context, externalID string) (*charge.Charge, error) {
	return uc.chargeRepo.GetByExternalID(ctx, externalID)
}
