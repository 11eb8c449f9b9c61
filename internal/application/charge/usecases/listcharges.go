package usecases

import (
	"context"

	"pixgate/internal/domain/charge"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

// ListChargesInput carries pagination and filtering for charge listings.
type ListChargesInput struct {
	Status   string
	Page     int
	PageSize int
}

// ListChargesUseCase returns a paginated page of charges.
type ListChargesUseCase struct {
	chargeRepo charge.Repository
	logger     logger.Interface
}

// NewListChargesUseCase creates a new ListChargesUseCase.
func NewListChargesUseCase(chargeRepo charge.Repository, logger logger.Interface) *ListChargesUseCase {
	return &ListChargesUseCase{chargeRepo: chargeRepo, logger: logger}
}

// Execute lists charges. Only stored statuses are valid filters; expired is a
// read-time view, not a queryable column.
func (uc *ListChargesUseCase) Execute(ctx context.Context, input ListChargesInput) ([]*charge.Charge, int64, error) {
	if input.Page < 1 {
		input.Page = 1
	}
	if input.PageSize < 1 || input.PageSize > 100 {
		input.PageSize = 20
	}
	if input.Status != "" {
		if _, err := valueobjects.NewChargeStatus(input.Status); err != nil {
			return nil, 0, errors.NewValidationError("invalid status filter", input.Status)
		}
	}

	return uc.chargeRepo.List(ctx, charge.ListFilter{
		Status:   input.Status,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
}
