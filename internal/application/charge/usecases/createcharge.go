package usecases

import (
	"context"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/domain/charge"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

// CreateChargeInput carries the parameters for creating a charge.
type CreateChargeInput struct {
	ExternalID        string
	AmountCents       int64
	Currency          string
	Description       string
	PayerName         string
	PayerDocument     string
	ExpirationSeconds int
}

// CreateChargeUseCase registers a charge upstream and persists the local
// record with the gateway-issued QR payload.
type CreateChargeUseCase struct {
	chargeRepo charge.Repository
	gateway    gateway.PixGateway
	logger     logger.Interface
}

// NewCreateChargeUseCase creates a new CreateChargeUseCase.
func NewCreateChargeUseCase(
	chargeRepo charge.Repository,
	gw gateway.PixGateway,
	logger logger.Interface,
) *CreateChargeUseCase {
	return &CreateChargeUseCase{
		chargeRepo: chargeRepo,
		gateway:    gw,
		logger:     logger,
	}
}

// Execute creates the charge. A caller-supplied external id that already
// exists is a conflict; the stored charge is the source of truth for that key.
func (uc *CreateChargeUseCase) Execute(ctx context.Context, input CreateChargeInput) (*charge.Charge, error) {
	amount, err := valueobjects.NewMoney(input.AmountCents, input.Currency)
	if err != nil {
		return nil, err
	}

	c, err := charge.NewCharge(input.ExternalID, amount, input.Description, input.ExpirationSeconds)
	if err != nil {
		return nil, err
	}

	if input.ExternalID != "" {
		existing, err := uc.chargeRepo.GetByExternalID(ctx, input.ExternalID)
		if err != nil && !errors.IsNotFoundError(err) {
			return nil, err
		}
		if existing != nil {
			return nil, errors.NewConflictError("external id already in use")
		}
	}

	created, err := uc.gateway.CreateCharge(ctx, gateway.ChargeRequest{
		Amount:            amount.Decimal(),
		ExternalID:        c.ExternalID(),
		PayerQuestion:     c.Description(),
		PayerName:         input.PayerName,
		PayerDocument:     input.PayerDocument,
		ExpirationSeconds: c.ExpirationSeconds(),
	})
	if err != nil {
		uc.logger.Errorw("gateway charge creation failed",
			"external_id", c.ExternalID(),
			"error", err,
		)
		return nil, err
	}

	if err := c.AttachGatewayCharge(created.TransactionID, created.QRCode, created.QRCodeImage); err != nil {
		return nil, err
	}

	if err := uc.chargeRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	uc.logger.Infow("charge created",
		"sid", c.SID(),
		"external_id", c.ExternalID(),
		"transaction_id", c.TransactionID(),
		"amount_cents", c.Amount().Cents(),
	)
	return c, nil
}
