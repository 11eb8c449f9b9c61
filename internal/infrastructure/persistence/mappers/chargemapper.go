package mappers

import (
	"fmt"
	"time"

	"pixgate/internal/domain/charge"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/infrastructure/persistence/models"
)

func ChargeToModel(c *charge.Charge) *models.ChargeModel {
	var expiresAt *time.Time
	if c.ExpirationSeconds() > 0 {
		e := c.ExpiresAt()
		expiresAt = &e
	}

	return &models.ChargeModel{
		SID:               c.SID(),
		ExternalID:        c.ExternalID(),
		TransactionID:     c.TransactionID(),
		AmountCents:       c.Amount().Cents(),
		Currency:          c.Amount().Currency(),
		Status:            c.Status().String(),
		Description:       c.Description(),
		QRCode:            c.QRCode(),
		QRCodeImage:       c.QRCodeImage(),
		ExpirationSeconds: c.ExpirationSeconds(),
		ExpiresAt:         expiresAt,
		PaymentID:         c.PaymentID(),
		PaymentDate:       c.PaymentDate(),
		PayerName:         c.PayerName(),
		PayerTaxID:        c.PayerTaxID(),
		CreatedAt:         c.CreatedAt(),
		UpdatedAt:         c.UpdatedAt(),
	}
}

func ChargeToDomain(model *models.ChargeModel) (*charge.Charge, error) {
	status, err := valueobjects.NewChargeStatus(model.Status)
	if err != nil {
		return nil, fmt.Errorf("invalid charge status: %s", model.Status)
	}

	amount := valueobjects.ReconstructMoney(model.AmountCents, model.Currency)

	return charge.ReconstructCharge(
		model.SID,
		model.ExternalID,
		model.TransactionID,
		amount,
		status,
		model.Description,
		model.QRCode,
		model.QRCodeImage,
		model.ExpirationSeconds,
		model.PaymentID,
		model.PaymentDate,
		model.PayerName,
		model.PayerTaxID,
		model.CreatedAt,
		model.UpdatedAt,
	), nil
}
